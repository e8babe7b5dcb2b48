package center_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kidcare/core/center"
	dummydb "github.com/trezcool/kidcare/storage/database/dummy"
	testutil "github.com/trezcool/kidcare/tests"
)

func newService(t *testing.T) (*center.Service, center.Repository) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewCenterRepository(db)
	return center.NewService(repo, testutil.NewConfig()), repo
}

func TestService_Resolve(t *testing.T) {
	svc, repo := newService(t)
	sunny := testutil.CreateCenter(t, repo, "sunny", "Sunny", "", true)
	happy := testutil.CreateCenter(t, repo, "happy", "Happy", "happy.test", true)
	testutil.CreateCenter(t, repo, "closed", "Closed", "closed.test", false)

	tests := []struct {
		name         string
		host, header string
		wantID       string
		wantErr      error
	}{
		{name: "header slug", host: "happy.test", header: " Sunny ", wantID: sunny.ID},
		{name: "custom domain", host: "WWW.Happy.test:8080", wantID: happy.ID},
		{name: "sub-domain", host: "sunny.kidcare.test", wantID: sunny.ID},
		{name: "custom domain wins over slug", host: "happy.kidcare.test", wantID: happy.ID},
		{name: "nested sub-domain", host: "a.sunny.kidcare.test", wantErr: center.ErrNotFound},
		{name: "unknown slug", host: "nope.kidcare.test", wantErr: center.ErrNotFound},
		{name: "foreign host", host: "example.com", wantErr: center.ErrNotFound},
		{name: "no host", wantErr: center.ErrNotFound},
		{name: "inactive", host: "closed.test", wantErr: center.ErrCenterInactive},
		{name: "inactive by header", header: "closed", wantErr: center.ErrCenterInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := svc.Resolve(context.Background(), tt.host, tt.header)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, c.ID)
		})
	}
}

func TestService_URL(t *testing.T) {
	svc, _ := newService(t)
	assert.Equal(t, "https://sunny.kidcare.test", svc.URL(center.Center{Slug: "sunny"}))
	assert.Equal(t, "https://happy.test", svc.URL(center.Center{Slug: "happy", CustomDomain: "happy.test"}))
}

func TestNewCenter_Validate(t *testing.T) {
	svc, repo := newService(t)
	validate, _ := testutil.NewValidator()
	testutil.CreateCenter(t, repo, "sunny", "Sunny", "sunny.test", true)

	nc := center.NewCenter{Name: "  Happy Kids ", CustomDomain: "www.HappyKids.test.", Branding: center.Branding{PrimaryColor: "#ABCDEF"}}
	require.NoError(t, nc.Validate(context.Background(), validate, svc))
	assert.Equal(t, "Happy Kids", nc.Name)
	assert.Equal(t, "happy-kids", nc.Slug)
	assert.Equal(t, "happykids.test", nc.CustomDomain)
	assert.Equal(t, "#abcdef", nc.Branding.PrimaryColor)

	taken := center.NewCenter{Name: "Sunny 2", Slug: "sunny"}
	err := taken.Validate(context.Background(), validate, svc)
	require.Error(t, err)
	assert.Equal(t, center.ErrSlugExists.Error(), err.Error())

	domain := center.NewCenter{Name: "Other", CustomDomain: "sunny.test"}
	err = domain.Validate(context.Background(), validate, svc)
	require.Error(t, err)
	assert.Equal(t, center.ErrDomainExists.Error(), err.Error())

	bad := center.NewCenter{Name: "Bad", Slug: "Not--a slug"}
	assert.Error(t, bad.Validate(context.Background(), validate, svc))
}

func TestService_Deactivate(t *testing.T) {
	svc, repo := newService(t)
	sunny := testutil.CreateCenter(t, repo, "sunny", "Sunny", "", true)

	c, err := svc.Deactivate(context.Background(), sunny)
	require.NoError(t, err)
	assert.False(t, c.IsActive)

	_, err = svc.Resolve(context.Background(), "", "sunny")
	assert.Equal(t, center.ErrCenterInactive, err)
}

func TestBranding(t *testing.T) {
	names, err := center.Presets()
	require.NoError(t, err)
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, center.DefaultPreset)
	assert.Contains(t, names, "sunshine")

	tests := []struct {
		name string
		in   center.Branding
		want center.Branding
	}{
		{
			name: "empty",
			want: center.Branding{Preset: center.DefaultPreset, PrimaryColor: "#2f80ed", SecondaryColor: "#f2c94c"},
		},
		{
			name: "preset",
			in:   center.Branding{Preset: "sunshine"},
			want: center.Branding{Preset: "sunshine", PrimaryColor: "#f2994a", SecondaryColor: "#fff4e5"},
		},
		{
			name: "explicit color wins",
			in:   center.Branding{Preset: "sunshine", PrimaryColor: "#000000", LogoURL: "https://cdn.test/logo.png"},
			want: center.Branding{Preset: "sunshine", PrimaryColor: "#000000", SecondaryColor: "#fff4e5", LogoURL: "https://cdn.test/logo.png"},
		},
		{
			name: "unknown preset",
			in:   center.Branding{Preset: "neon"},
			want: center.Branding{Preset: center.DefaultPreset, PrimaryColor: "#2f80ed", SecondaryColor: "#f2c94c"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := center.ResolveBranding(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := map[string]string{
		"":                    "",
		"Sunny.KidCare.test":  "sunny.kidcare.test",
		"www.happy.test:8443": "happy.test",
		"happy.test.":         "happy.test",
		"[::1]:8080":          "[::1]",
		"[::1]":               "[::1]",
	}
	for in, want := range tests {
		assert.Equal(t, want, center.NormalizeHost(in), in)
	}
}
