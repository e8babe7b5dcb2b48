package traffic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name                     string
		referrer, source, medium string
		siteHost                 string
		want                     Source
	}{
		{name: "direct", siteHost: "sunny.kidcare.test", want: Source{CategoryDirect, "direct"}},
		{name: "google", referrer: "https://www.google.com/search?q=speech+therapy", want: Source{CategorySearch, "google"}},
		{name: "naver search", referrer: "https://search.naver.com/search.naver?query=x", want: Source{CategorySearch, "naver"}},
		{name: "naver mobile blog", referrer: "https://m.blog.naver.com/mom/1234", want: Source{CategoryBlog, "naver_blog"}},
		{name: "naver cafe", referrer: "https://cafe.naver.com/moms", want: Source{CategorySocial, "naver_cafe"}},
		{name: "sub-domain of known source", referrer: "l.facebook.com/l.php?u=x", want: Source{CategorySocial, "facebook"}},
		{name: "internal", referrer: "https://sunny.kidcare.test/about", siteHost: "sunny.kidcare.test:443", want: Source{CategoryInternal, "internal"}},
		{name: "unknown referrer", referrer: "https://WWW.Example.org/post", want: Source{CategoryReferral, "example.org"}},
		{name: "paid", referrer: "https://www.google.com/", source: "google", medium: "CPC", want: Source{CategoryAds, "google"}},
		{name: "paid without source", medium: "display", want: Source{CategoryAds, "display"}},
		{name: "email", medium: "email", want: Source{CategoryEmail, "email"}},
		{name: "known utm source", source: " Instagram ", want: Source{CategorySocial, "instagram"}},
		{name: "unknown utm source", source: "partner_x", referrer: "https://www.google.com/", want: Source{CategoryReferral, "partner_x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.referrer, tt.source, tt.medium, tt.siteHost))
		})
	}
}

func TestReferrerHost(t *testing.T) {
	assert.Equal(t, "", ReferrerHost(" "))
	assert.Equal(t, "example.com", ReferrerHost("https://WWW.Example.com:8080/x"))
	assert.Equal(t, "blog.example.com", ReferrerHost("blog.example.com/post"))
}

func TestAggregate(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	visits := []Visit{
		{Category: CategorySearch, SourceName: "naver", SessionID: "s1", CreatedAt: day1},
		{Category: CategoryInternal, SourceName: "internal", SessionID: "s1", CreatedAt: day1},
		{Category: CategorySearch, SourceName: "google", SessionID: "s2", CreatedAt: day2},
		{Category: CategorySearch, SourceName: "naver", CreatedAt: day2},
	}

	stats := aggregate(visits, day1, day2.Add(time.Hour))
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.UniqueSessions)
	assert.Len(t, stats.ByCategory, len(Categories))
	assert.Equal(t, 3, stats.ByCategory[CategorySearch])
	assert.Equal(t, 0, stats.ByCategory[CategoryAds])
	assert.Equal(t, []Count{{"naver", 2}, {"google", 1}, {"internal", 1}}, stats.TopSources)
	assert.Equal(t, []Count{{"2026-03-01", 2}, {"2026-03-02", 2}}, stats.Daily)

	empty := aggregate(nil, day1, day2)
	assert.NotNil(t, empty.TopSources)
	assert.NotNil(t, empty.Daily)
	assert.Zero(t, empty.Total)
}
