package tests

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kidcare/apps/api/echo"
	"github.com/trezcool/kidcare/core/user"
	testutil "github.com/trezcool/kidcare/tests"
)

func TestHome(t *testing.T) {
	env := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	env.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to KidCare API!", rec.Body.String())
}

func Test_userApi_login(t *testing.T) {
	env := setup(t)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	other := testutil.CreateCenter(t, env.centers, "other", "Other", "", true)
	admin := testutil.CreateUser(t, env.users, sunny.ID, "Admin", "admin1", "admin@sunny.test", testutil.Password, []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, env.users, sunny.ID, "Gone", "gone01", "gone@sunny.test", testutil.Password, []string{user.RoleParent}, false)
	super := testutil.CreateUser(t, env.users, "", "Root", "root01", "root@kidcare.test", testutil.Password, []string{user.RoleSuper}, true)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}
	failed := marchallObj(t, httpErr{Error: "authentication failed"})

	runTests(t, env, []httpTest{
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username": "this field is required", "password": "this field is required"}`),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: login("nobody", testutil.Password),
			wantCode: http.StatusBadRequest, wantData: failed,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: login("admin1", "Wr0ng#Pwd"),
			wantCode: http.StatusBadRequest, wantData: failed,
		},
		{
			name: "wrong center", method: http.MethodPost, path: "/v1/users/login", center: other.Slug,
			body: login("admin1", testutil.Password), wantCode: http.StatusBadRequest, wantData: failed,
		},
		{
			name: "deactivated", method: http.MethodPost, path: "/v1/users/login", center: sunny.Slug,
			body: login("gone01", testutil.Password), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	})

	ok := []struct {
		name, center, uname, centerID string
	}{
		{name: "by username", center: sunny.Slug, uname: "ADMIN1", centerID: admin.CenterID},
		{name: "by email, no center", uname: "admin@sunny.test", centerID: admin.CenterID},
		{name: "super user in any center", center: other.Slug, uname: super.Username},
	}
	for _, tt := range ok {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(httpTest{method: http.MethodPost, path: "/v1/users/login", center: tt.center, body: login(tt.uname, testutil.Password)})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp echoapi.LoginResponse
			unmarshal(t, rec, &resp)
			claims := new(echoapi.Claims)
			_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(env.conf.SecretKey), nil
			})
			require.NoError(t, err)
			assert.Equal(t, tt.centerID, claims.CenterID)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	env := setup(t)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	other := testutil.CreateCenter(t, env.centers, "other", "Other", "", true)

	now := time.Now()
	admin := testutil.CreateUser(t, env.users, sunny.ID, "Admin", "admin1", "admin@sunny.test", "", []string{user.RoleAdmin}, true, now.Add(1*time.Hour))
	therapist := testutil.CreateUser(t, env.users, sunny.ID, "Therapist", "thera1", "t@sunny.test", "", []string{user.RoleTherapist}, true, now.Add(2*time.Hour))
	parent := testutil.CreateUser(t, env.users, sunny.ID, "Parent", "parent", "p@sunny.test", "", []string{user.RoleParent}, false, now.Add(3*time.Hour))
	outsider := testutil.CreateUser(t, env.users, other.ID, "Outsider", "outsider", "o@other.test", "", []string{user.RoleAdmin}, true)
	super := testutil.CreateUser(t, env.users, "", "Root", "root01", "root@kidcare.test", "", []string{user.RoleSuper}, true)

	adminToken := env.getToken(t, admin)
	path := func(v url.Values) string { return "/v1/users?" + v.Encode() }

	runTests(t, env, []httpTest{
		{name: "auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/v1/users", token: env.getToken(t, parent), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "other center", path: "/v1/users", center: other.Slug, token: adminToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "user does not belong to this center"}),
		},
		{name: "center users", path: "/v1/users", token: adminToken, wantData: marchallList(t, admin, therapist, parent)},
		{
			name: "ordering", path: path(url.Values{"ordering": {"-created_at"}}), token: adminToken,
			wantData: marchallList(t, parent, therapist, admin),
		},
		{name: "search", path: path(url.Values{"search": {"THERA"}}), token: adminToken, wantData: marchallList(t, therapist)},
		{name: "role", path: path(url.Values{"role": {user.RoleParent}}), token: adminToken, wantData: marchallList(t, parent)},
		{name: "is_active", path: path(url.Values{"is_active": {"false"}}), token: adminToken, wantData: marchallList(t, parent)},
		{
			name: "bad is_active", path: path(url.Values{"is_active": {"maybe"}}), token: adminToken,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"is_active": "must be a boolean"}`),
		},
		{
			name: "super user, all centers", path: path(url.Values{"search": {"o"}}), token: env.getToken(t, super),
			wantData: marchallList(t, outsider, super),
		},
		{
			name: "super user, one center", path: "/v1/users", center: other.Slug, token: env.getToken(t, super),
			wantData: marchallList(t, outsider),
		},
	})
}

func Test_userApi_detail(t *testing.T) {
	env := setup(t)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	other := testutil.CreateCenter(t, env.centers, "other", "Other", "", true)
	admin := testutil.CreateUser(t, env.users, sunny.ID, "Admin", "admin1", "admin@sunny.test", "", []string{user.RoleAdmin}, true)
	parent := testutil.CreateUser(t, env.users, sunny.ID, "Parent", "parent", "p@sunny.test", "", []string{user.RoleParent}, true)
	parent2 := testutil.CreateUser(t, env.users, sunny.ID, "Parent2", "parent2", "p2@sunny.test", "", []string{user.RoleParent}, true)
	outsider := testutil.CreateUser(t, env.users, other.ID, "Outsider", "outsider", "o@other.test", "", []string{user.RoleParent}, true)

	adminToken := env.getToken(t, admin)
	parentToken := env.getToken(t, parent)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	runTests(t, env, []httpTest{
		{name: "self", path: "/v1/users/" + parent.ID, token: parentToken, wantData: marchallObj(t, parent)},
		{name: "me", path: "/v1/users/me", token: parentToken, wantData: marchallObj(t, parent)},
		{name: "other parent", path: "/v1/users/" + parent2.ID, token: parentToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin", path: "/v1/users/" + parent2.ID, token: adminToken, wantData: marchallObj(t, parent2)},
		{name: "admin, other center", path: "/v1/users/" + outsider.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "parent cannot change roles", method: http.MethodPut, path: "/v1/users/" + parent.ID, token: parentToken,
			body: []byte(`{"roles": ["admin:"]}`), wantCode: http.StatusForbidden,
		},
		{
			name: "admin cannot delete themselves", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken,
			wantCode: http.StatusForbidden,
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/users/" + parent2.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/v1/users/" + parent2.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
	})

	t.Run("update name", func(t *testing.T) {
		rec := env.serve(httpTest{method: http.MethodPut, path: "/v1/users/" + parent.ID, token: parentToken, body: []byte(`{"name": "  Mom  "}`)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		unmarshal(t, rec, &got)
		assert.Equal(t, "Mom", got.Name)
		assert.Equal(t, parent.Username, got.Username)
	})
}

func Test_userApi_create(t *testing.T) {
	env := setup(t)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	admin := testutil.CreateUser(t, env.users, sunny.ID, "Admin", "admin1", "admin@sunny.test", "", []string{user.RoleAdminOwner}, true)
	super := testutil.CreateUser(t, env.users, "", "Root", "root01", "root@kidcare.test", "", []string{user.RoleSuper}, true)
	orphan := testutil.CreateUser(t, env.users, "", "Orphan", "orphan", "orphan@mail.test", "", []string{user.RoleAdmin}, true)

	superToken := env.getToken(t, super)
	newUser := func(uname string, roles ...string) []byte {
		return marchallObj(t, map[string]interface{}{
			"name": uname, "username": uname, "password": testutil.Password, "password_confirm": testutil.Password, "roles": roles,
		})
	}
	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	runTests(t, env, []httpTest{
		{
			name: "non super user outside a center", method: http.MethodPost, path: "/v1/users/register", token: superToken,
			body: newUser("owner01", user.RoleAdminOwner), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles": "only super users can exist outside a center"}`),
		},
		{
			name: "center-less user is not a member of any center", path: "/v1/users", token: env.getToken(t, orphan),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "center-less user reads no children", path: "/v1/children", token: env.getToken(t, orphan),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "cannot move a super user into no center's roles", method: http.MethodPut, path: "/v1/users/" + super.ID,
			token: superToken, body: []byte(`{"roles": ["admin:"]}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles": "only super users can exist outside a center"}`),
		},
	})
	_, err := env.users.GetUser(context.Background(), user.GetFilter{Username: "owner01"})
	assert.Equal(t, user.ErrNotFound, err)

	t.Run("super user in a center", func(t *testing.T) {
		var got user.User
		env.mustServe(t, httpTest{
			method: http.MethodPost, path: "/v1/users/register", center: sunny.Slug, token: superToken,
			body: newUser("owner02", user.RoleAdminOwner), wantCode: http.StatusCreated,
		}, &got)
		assert.Equal(t, sunny.ID, got.CenterID)
		assert.Equal(t, []string{user.RoleAdminOwner}, got.Roles)
	})

	t.Run("admin, collection route", func(t *testing.T) {
		var got user.User
		env.mustServe(t, httpTest{
			method: http.MethodPost, path: "/v1/users", token: env.getToken(t, admin),
			body: newUser("parent01", user.RoleParent), wantCode: http.StatusCreated,
		}, &got)
		assert.Equal(t, sunny.ID, got.CenterID)
		assert.Equal(t, "parent01", got.Username)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	env := setup(t)
	sunny := testutil.CreateCenter(t, env.centers, "sunny", "Sunny", "", true)
	testutil.CreateUser(t, env.users, sunny.ID, "Parent", "parent", "p@sunny.test", testutil.Password, []string{user.RoleParent}, true)

	for _, email := range []string{"unknown@sunny.test", "P@Sunny.test"} {
		rec := env.serve(httpTest{method: http.MethodPost, path: "/v1/users/password-reset", body: marchallObj(t, echoapi.PasswordResetRequest{Email: email})})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "If the email address supplied"))
	}

	sent := env.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "p@sunny.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "/password-reset/")
}
