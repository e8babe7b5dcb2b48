package tests

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kidcare/apps/api/echo"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/traffic"
	"github.com/trezcool/kidcare/core/user"
	testutil "github.com/trezcool/kidcare/tests"
)

func Test_centerApi(t *testing.T) {
	env := setup(t)
	super := testutil.CreateUser(t, env.users, "", "Root", "root01", "root@kidcare.test", "", []string{user.RoleSuper}, true)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	admin := testutil.CreateUser(t, env.users, sunny.ID, "Admin", "admin1", "admin@sunny.test", "", []string{user.RoleAdminOwner}, true)
	superToken := env.getToken(t, super)

	runTests(t, env, []httpTest{
		{
			name: "super user required", method: http.MethodPost, path: "/v1/centers", token: env.getToken(t, admin),
			body: []byte(`{"name": "Happy Kids"}`), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "slug taken", method: http.MethodPost, path: "/v1/centers", token: superToken,
			body: []byte(`{"name": "Sunny"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"slug": "a center with this slug already exists"}`),
		},
		{
			name: "bad color", method: http.MethodPost, path: "/v1/centers", token: superToken,
			body: []byte(`{"name": "Rainbow", "branding": {"primary_color": "red"}}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"primary_color": "must be a hex color like #1a2b3c"}`),
		},
		{name: "not found", path: "/v1/centers/nope", token: superToken, wantCode: http.StatusNotFound},
	})

	var created center.Center
	env.mustServe(t, httpTest{
		method: http.MethodPost, path: "/v1/centers", token: superToken, wantCode: http.StatusCreated,
		body: []byte(`{"name": "Happy Kids", "custom_domain": "WWW.HappyKids.test"}`),
	}, &created)
	assert.Equal(t, "happy-kids", created.Slug)
	assert.Equal(t, "happykids.test", created.CustomDomain)
	assert.True(t, created.IsActive)

	var presets []string
	env.mustServe(t, httpTest{path: "/v1/centers/presets", token: superToken}, &presets)
	assert.Contains(t, presets, center.DefaultPreset)

	env.mustServe(t, httpTest{method: http.MethodDelete, path: "/v1/centers/" + created.ID, token: superToken, wantCode: http.StatusNoContent}, nil)
	runTests(t, env, []httpTest{
		{
			name: "deactivated center", path: "/v1/public/center", host: "happykids.test", wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "center unavailable"}),
		},
	})
}

func Test_publicApi(t *testing.T) {
	env := setup(t)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	admin := testutil.CreateUser(t, env.users, sunny.ID, "Admin", "admin1", "admin@sunny.test", "", []string{user.RoleAdmin}, true)
	public := testutil.CreateTherapist(t, env.therapists, sunny.ID, "Dr. Kim", true)
	private := testutil.CreateTherapist(t, env.therapists, sunny.ID, "Mr. Lee", false)

	runTests(t, env, []httpTest{
		{name: "center required", path: "/v1/public/center", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "center not found"})},
		{name: "unknown center", path: "/v1/public/center", center: "nope", wantCode: http.StatusNotFound},
		{name: "no blog", path: "/v1/public/blog", center: sunny.Slug, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "center has no blog feed"})},
		{name: "private therapist", path: "/v1/public/therapists/" + private.ID, center: sunny.Slug, wantCode: http.StatusNotFound},
	})

	t.Run("center by sub-domain", func(t *testing.T) {
		var got echoapi.PublicCenter
		env.mustServe(t, httpTest{path: "/v1/public/center", host: "sunny.kidcare.test"}, &got)
		assert.Equal(t, sunny.ID, got.ID)
		assert.Equal(t, "https://sunny.kidcare.test", got.URL)
		assert.Equal(t, center.DefaultPreset, got.Branding.Preset)
		assert.Equal(t, "#2f80ed", got.Branding.PrimaryColor)
		assert.False(t, got.HasBlog)
	})

	t.Run("public therapists", func(t *testing.T) {
		var got []echoapi.PublicTherapist
		env.mustServe(t, httpTest{path: "/v1/public/therapists", center: sunny.Slug}, &got)
		require.Len(t, got, 1)
		assert.Equal(t, public.ID, got[0].ID)
	})

	t.Run("sitemap", func(t *testing.T) {
		rec := env.serve(httpTest{path: "/sitemap.xml", host: "sunny.kidcare.test"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/xml"))
		body := rec.Body.String()
		assert.Contains(t, body, "<loc>https://sunny.kidcare.test/</loc>")
		assert.Contains(t, body, "<loc>https://sunny.kidcare.test/therapists/"+public.ID+"</loc>")
	})

	t.Run("robots", func(t *testing.T) {
		rec := env.serve(httpTest{path: "/robots.txt", center: sunny.Slug})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Sitemap: https://sunny.kidcare.test/sitemap.xml")
	})

	t.Run("visits & stats", func(t *testing.T) {
		visits := []string{
			`{"path": "/", "referrer": "https://www.google.com/search?q=therapy", "session_id": "s1"}`,
			`{"path": "/about", "referrer": "https://sunny.kidcare.test/", "session_id": "s1"}`,
			`{"path": "/", "utm_source": "newsletter", "utm_medium": "email", "session_id": "s2"}`,
		}
		for _, v := range visits {
			env.mustServe(t, httpTest{
				method: http.MethodPost, path: "/v1/public/visits", host: "sunny.kidcare.test",
				body: []byte(v), wantCode: http.StatusNoContent,
			}, nil)
		}
		runTests(t, env, []httpTest{
			{
				name: "path required", method: http.MethodPost, path: "/v1/public/visits", center: sunny.Slug,
				body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"path": "this field is required"}`),
			},
			{name: "admin required", path: "/v1/traffic/stats", wantCode: http.StatusUnauthorized},
		})

		var stats traffic.Stats
		env.mustServe(t, httpTest{path: "/v1/traffic/stats", token: env.getToken(t, admin)}, &stats)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 2, stats.UniqueSessions)
		assert.Equal(t, 1, stats.ByCategory[traffic.CategorySearch])
		assert.Equal(t, 1, stats.ByCategory[traffic.CategoryInternal])
		assert.Equal(t, 1, stats.ByCategory[traffic.CategoryEmail])
		assert.Equal(t, 0, stats.ByCategory[traffic.CategorySocial])
	})
}
