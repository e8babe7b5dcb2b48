package blog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kidcare/core"
)

var feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Sunny Center Blog</title>
	<link>https://blog.naver.com/sunny</link>
	<description>news</description>
	<item>
		<title><![CDATA[Old post]]></title>
		<link>https://blog.naver.com/sunny/1</link>
		<description><![CDATA[<p>Old</p>]]></description>
		<pubDate>Fri, 20 Feb 2026 09:00:00 +0900</pubDate>
	</item>
	<item>
		<title><![CDATA[Newest]]></title>
		<link>https://blog.naver.com/sunny/3</link>
		<category><![CDATA[notice]]></category>
		<description><![CDATA[<p><img src="https://blogthumb.pstatic.net/a.jpg" />Hello&nbsp;<b>world</b></p>]]></description>
		<pubDate>Thu, 05 Mar 2026 09:00:00 +0900</pubDate>
	</item>
	<item>
		<title><![CDATA[Middle]]></title>
		<link>https://blog.naver.com/sunny/2</link>
		<description><![CDATA[` + longText + `]]></description>
		<pubDate>Mon, 02 Mar 2026 09:00:00 +0900</pubDate>
	</item>
</channel>
</rss>`

var longText = strings.Repeat("a", 250)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestFetcher() *Fetcher {
	return NewFetcher(&core.Config{Blog: core.BlogConfig{
		CacheTTL:     time.Minute,
		MaxItems:     2,
		FetchTimeout: 5 * time.Second,
	}}, nil, nopLogger{})
}

func TestFetcher_Fetch(t *testing.T) {
	var (
		hits    int32
		failing int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if atomic.LoadInt32(&failing) == 1 {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	now := time.Now()
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	f := newTestFetcher()
	posts, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "Newest", posts[0].Title)
	assert.Equal(t, "https://blog.naver.com/sunny/3", posts[0].Link)
	assert.Equal(t, "Hello world", posts[0].Summary)
	assert.Equal(t, "https://blogthumb.pstatic.net/a.jpg", posts[0].Thumbnail)
	assert.Equal(t, []string{"notice"}, posts[0].Categories)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), posts[0].PublishedAt)

	assert.Equal(t, "Middle", posts[1].Title)
	assert.Equal(t, strings.Repeat("a", summaryMaxLen)+"…", posts[1].Summary)
	assert.Empty(t, posts[1].Thumbnail)

	// cached
	_, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	// expired & failing: stale posts are served
	atomic.StoreInt32(&failing, 1)
	now = now.Add(2 * time.Minute)
	stale, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, posts, stale)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))

	// failing without cache
	_, err = newTestFetcher().Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetcher_FetchCopies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	f := newTestFetcher()
	posts, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, posts[0].Categories, 1)
	posts[0].Title = "changed"
	posts[0].Categories[0] = "changed"

	again, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Newest", again[0].Title)
	assert.Equal(t, []string{"notice"}, again[0].Categories)
}

func TestFetcher_FetchOnce(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	f := newTestFetcher()
	var wg sync.WaitGroup
	results := make([][]Post, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.Fetch(context.Background(), srv.URL)
		}(i)
	}
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 }, time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	for _, posts := range results {
		assert.Len(t, posts, 2)
	}
}

func TestFetcher_FetchNoFeed(t *testing.T) {
	_, err := newTestFetcher().Fetch(context.Background(), "  ")
	assert.Equal(t, ErrNoFeed, err)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name, in, want string
		maxLen         int
	}{
		{name: "plain", in: "hello", want: "hello", maxLen: 10},
		{name: "tags & entities", in: "<div>Tom &amp; <i>Jerry</i></div>\n\n<br/>", want: "Tom & Jerry", maxLen: 50},
		{name: "multi-line tag", in: "a<img\nsrc='x'>b", want: "a b", maxLen: 50},
		{name: "truncated runes", in: "가나다라마바", want: "가나다…", maxLen: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.in, tt.maxLen))
		})
	}
}
