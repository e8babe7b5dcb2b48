package seo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/therapist"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestBuildSitemap(t *testing.T) {
	c := center.Center{Slug: "sunny", UpdatedAt: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}
	therapists := []therapist.Therapist{
		{ID: "b-2", IsPublic: true, IsActive: true, UpdatedAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)},
		{ID: "a-1", IsPublic: true, IsActive: true, UpdatedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)},
		{ID: "c-3", IsPublic: false, IsActive: true},
		{ID: "d-4", IsPublic: true, IsActive: false},
	}
	entries := CenterEntries(c, therapists)
	entries = append(entries, Entry{Path: "/about", Priority: 0.1}) // duplicate

	xml, err := BuildSitemap(center.URL(c, "kidcare.localhost")+"/", entries)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "sitemap", xml)
}

func TestRobots(t *testing.T) {
	newGoldie(t).Assert(t, "robots", Robots("https://sunny.kidcare.localhost"))
}

func TestLoc(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"https://a.test", "/", "https://a.test/"},
		{"https://a.test/", "", "https://a.test/"},
		{"https://a.test/", "/blog", "https://a.test/blog"},
		{"https://a.test", "blog", "https://a.test/blog"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Loc(tt.base, tt.path))
	}
}

func TestPinger_Ping(t *testing.T) {
	var (
		mu       sync.Mutex
		indexReq indexNowRequest
		sitemaps []string
	)
	indexNow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&indexReq))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer indexNow.Close()

	pingOK := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		sitemaps = append(sitemaps, r.URL.Query().Get("sitemap"))
	}))
	defer pingOK.Close()

	pingKO := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer pingKO.Close()

	conf := &core.Config{SEO: core.SEOConfig{
		IndexNowKey:      "abc123",
		IndexNowEndpoint: indexNow.URL,
		PingEndpoints:    []string{pingOK.URL + "/ping", pingKO.URL + "/ping"},
	}}
	pinger := NewPinger(conf, indexNow.Client(), nopLogger{})
	assert.Equal(t, "abc123", pinger.Key())

	sitemapURL := "https://sunny.kidcare.localhost/sitemap.xml"
	urls := []string{"https://sunny.kidcare.localhost/", "https://sunny.kidcare.localhost/blog"}
	results := pinger.Ping(context.Background(), sitemapURL, urls)

	require.Len(t, results, 3)
	assert.Equal(t, indexNowEngine, results[0].Engine)
	assert.Equal(t, http.StatusAccepted, results[0].StatusCode)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.False(t, results[2].OK())
	assert.Equal(t, http.StatusInternalServerError, results[2].StatusCode)
	assert.NotEmpty(t, results[2].Error)

	assert.Equal(t, indexNowRequest{
		Host:        "sunny.kidcare.localhost",
		Key:         "abc123",
		KeyLocation: "https://sunny.kidcare.localhost/abc123.txt",
		URLList:     urls,
	}, indexReq)
	assert.Equal(t, []string{sitemapURL}, sitemaps)
}

func TestPinger_PingWithoutKey(t *testing.T) {
	pinger := NewPinger(&core.Config{}, nil, nopLogger{})
	assert.Empty(t, pinger.Ping(context.Background(), "https://a.test/sitemap.xml", []string{"https://a.test/"}))
}
