package traffic

import (
	"net/url"
	"sort"
	"strings"

	"github.com/trezcool/kidcare/core"
)

// Categories
const (
	CategoryDirect   = "direct"
	CategoryInternal = "internal"
	CategorySearch   = "search"
	CategorySocial   = "social"
	CategoryBlog     = "blog"
	CategoryAds      = "ads"
	CategoryEmail    = "email"
	CategoryReferral = "referral"
)

var Categories = []string{
	CategoryDirect, CategoryInternal, CategorySearch, CategorySocial,
	CategoryBlog, CategoryAds, CategoryEmail, CategoryReferral,
}

// Source is where a visit came from.
type Source struct {
	Category string `json:"category"`
	Name     string `json:"name"`
}

type knownSource struct {
	suffix   string // host suffix (or utm_source value)
	name     string
	category string
}

var (
	paidMediums  = []string{"cpc", "ppc", "paid", "paidsearch", "paid_search", "display", "ad", "ads"}
	emailMediums = []string{"email", "e-mail", "newsletter"}

	// knownSources is matched on referrer hosts by suffix, longest first, so that
	// "blog.naver.com" wins over "naver.com".
	knownSources = sortedSources([]knownSource{
		// blogs
		{"blog.naver.com", "naver_blog", CategoryBlog},
		{"m.blog.naver.com", "naver_blog", CategoryBlog},
		{"tistory.com", "tistory", CategoryBlog},
		{"brunch.co.kr", "brunch", CategoryBlog},
		{"medium.com", "medium", CategoryBlog},
		{"velog.io", "velog", CategoryBlog},
		{"wordpress.com", "wordpress", CategoryBlog},
		{"blog.daum.net", "daum_blog", CategoryBlog},

		// social
		{"facebook.com", "facebook", CategorySocial},
		{"fb.com", "facebook", CategorySocial},
		{"instagram.com", "instagram", CategorySocial},
		{"twitter.com", "twitter", CategorySocial},
		{"x.com", "twitter", CategorySocial},
		{"t.co", "twitter", CategorySocial},
		{"story.kakao.com", "kakaostory", CategorySocial},
		{"pf.kakao.com", "kakao_channel", CategorySocial},
		{"open.kakao.com", "kakao", CategorySocial},
		{"youtube.com", "youtube", CategorySocial},
		{"youtu.be", "youtube", CategorySocial},
		{"tiktok.com", "tiktok", CategorySocial},
		{"linkedin.com", "linkedin", CategorySocial},
		{"lnkd.in", "linkedin", CategorySocial},
		{"threads.net", "threads", CategorySocial},
		{"band.us", "band", CategorySocial},
		{"cafe.naver.com", "naver_cafe", CategorySocial},

		// search
		{"google.com", "google", CategorySearch},
		{"google.co.kr", "google", CategorySearch},
		{"naver.com", "naver", CategorySearch},
		{"search.naver.com", "naver", CategorySearch},
		{"daum.net", "daum", CategorySearch},
		{"search.daum.net", "daum", CategorySearch},
		{"bing.com", "bing", CategorySearch},
		{"yahoo.com", "yahoo", CategorySearch},
		{"duckduckgo.com", "duckduckgo", CategorySearch},
		{"baidu.com", "baidu", CategorySearch},
		{"zum.com", "zum", CategorySearch},
	})

	// utmSources maps well-known utm_source values.
	utmSources = map[string]Source{
		"google":        {CategorySearch, "google"},
		"naver":         {CategorySearch, "naver"},
		"daum":          {CategorySearch, "daum"},
		"bing":          {CategorySearch, "bing"},
		"naver_blog":    {CategoryBlog, "naver_blog"},
		"blog":          {CategoryBlog, "blog"},
		"tistory":       {CategoryBlog, "tistory"},
		"facebook":      {CategorySocial, "facebook"},
		"fb":            {CategorySocial, "facebook"},
		"instagram":     {CategorySocial, "instagram"},
		"ig":            {CategorySocial, "instagram"},
		"twitter":       {CategorySocial, "twitter"},
		"kakao":         {CategorySocial, "kakao"},
		"kakaotalk":     {CategorySocial, "kakao"},
		"kakao_channel": {CategorySocial, "kakao_channel"},
		"youtube":       {CategorySocial, "youtube"},
		"tiktok":        {CategorySocial, "tiktok"},
		"newsletter":    {CategoryEmail, "newsletter"},
		"email":         {CategoryEmail, "email"},
	}
)

func sortedSources(srcs []knownSource) []knownSource {
	sort.SliceStable(srcs, func(i, j int) bool { return len(srcs[i].suffix) > len(srcs[j].suffix) })
	return srcs
}

// Categorize classifies a visit from its referrer & UTM parameters.
// `siteHost` is the host the visit landed on; a referrer from that host is internal.
func Categorize(referrer, utmSource, utmMedium, siteHost string) Source {
	medium := strings.ToLower(strings.TrimSpace(utmMedium))
	source := strings.ToLower(strings.TrimSpace(utmSource))

	if core.StringsContain(paidMediums, medium) {
		return Source{Category: CategoryAds, Name: nonEmpty(source, medium)}
	}
	if core.StringsContain(emailMediums, medium) {
		return Source{Category: CategoryEmail, Name: nonEmpty(source, medium)}
	}
	if source != "" {
		if src, ok := utmSources[source]; ok {
			return src
		}
		return Source{Category: CategoryReferral, Name: source}
	}

	host := ReferrerHost(referrer)
	if host == "" {
		return Source{Category: CategoryDirect, Name: CategoryDirect}
	}
	if site := trimWWW(stripPort(strings.ToLower(strings.TrimSpace(siteHost)))); site != "" && host == site {
		return Source{Category: CategoryInternal, Name: CategoryInternal}
	}
	for _, ks := range knownSources {
		if host == ks.suffix || strings.HasSuffix(host, "."+ks.suffix) {
			return Source{Category: ks.category, Name: ks.name}
		}
	}
	return Source{Category: CategoryReferral, Name: host}
}

// ReferrerHost extracts the lower-cased host of `referrer`, without "www.".
func ReferrerHost(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return ""
	}
	if !strings.Contains(referrer, "://") {
		referrer = "http://" + referrer
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return trimWWW(strings.ToLower(u.Hostname()))
}

func trimWWW(host string) string {
	return strings.TrimPrefix(strings.TrimSuffix(host, "."), "www.")
}

func stripPort(host string) string {
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

func nonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
