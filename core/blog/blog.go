// Package blog proxies the RSS/Atom feed of a center's blog.
package blog

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
)

const summaryMaxLen = 200

var (
	NowFunc = time.Now // mockable

	ErrNoFeed = errors.New("center has no blog feed")

	tagRegex = regexp.MustCompile(`(?s)<[^>]*>`)
	imgRegex = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)
)

type Post struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Summary     string    `json:"summary"`
	Thumbnail   string    `json:"thumbnail"`
	Categories  []string  `json:"categories"`
}

type cacheEntry struct {
	posts     []Post
	fetchedAt time.Time
}

// Fetcher downloads & parses feeds, caching the result of each feed URL.
type Fetcher struct {
	parser   *gofeed.Parser
	logger   core.Logger
	maxItems int
	ttl      time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	cache   map[string]cacheEntry
	fetches map[string]*sync.Mutex // one fetch at a time per feed URL
}

func NewFetcher(conf *core.Config, client *http.Client, logger core.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	return &Fetcher{
		parser:   parser,
		logger:   logger,
		maxItems: conf.Blog.MaxItems,
		ttl:      conf.Blog.CacheTTL,
		timeout:  conf.Blog.FetchTimeout,
		cache:    make(map[string]cacheEntry),
		fetches:  make(map[string]*sync.Mutex),
	}
}

// Fetch returns the latest posts of `feedURL`, newest first.
// If the feed cannot be fetched, a stale cached result is returned when available.
// Concurrent cache misses of the same feed share a single download.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]Post, error) {
	feedURL = core.CleanString(feedURL)
	if feedURL == "" {
		return nil, ErrNoFeed
	}

	if entry, cached := f.cached(feedURL); cached && f.fresh(entry) {
		return copyPosts(entry.posts), nil
	}

	lock := f.fetchLock(feedURL)
	lock.Lock()
	defer lock.Unlock()

	// the feed may have been fetched while waiting for the lock
	entry, cached := f.cached(feedURL)
	if cached && f.fresh(entry) {
		return copyPosts(entry.posts), nil
	}

	posts, err := f.fetch(ctx, feedURL)
	if err != nil {
		if cached {
			f.logger.Warn(fmt.Sprintf("blog.Fetch(%s): serving stale posts: %v", feedURL, err))
			return copyPosts(entry.posts), nil
		}
		return nil, err
	}

	f.mu.Lock()
	f.cache[feedURL] = cacheEntry{posts: posts, fetchedAt: NowFunc()}
	f.mu.Unlock()
	return copyPosts(posts), nil
}

func (f *Fetcher) fresh(entry cacheEntry) bool {
	return NowFunc().Sub(entry.fetchedAt) < f.ttl
}

func (f *Fetcher) cached(feedURL string) (cacheEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.cache[feedURL]
	return entry, ok
}

func (f *Fetcher) fetchLock(feedURL string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	lock, ok := f.fetches[feedURL]
	if !ok {
		lock = new(sync.Mutex)
		f.fetches[feedURL] = lock
	}
	return lock
}

// copyPosts keeps callers from mutating cached posts.
func copyPosts(posts []Post) []Post {
	cp := make([]Post, len(posts))
	for i, p := range posts {
		p.Categories = append([]string{}, p.Categories...)
		cp[i] = p
	}
	return cp
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) ([]Post, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "fetching feed")
	}
	return f.toPosts(feed), nil
}

func (f *Fetcher) toPosts(feed *gofeed.Feed) []Post {
	var feedImage string
	if feed.Image != nil {
		feedImage = feed.Image.URL
	}

	posts := make([]Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		body := item.Description
		if body == "" {
			body = item.Content
		}
		post := Post{
			Title:      strings.TrimSpace(html.UnescapeString(item.Title)),
			Link:       strings.TrimSpace(item.Link),
			Summary:    Summarize(body, summaryMaxLen),
			Thumbnail:  thumbnail(item, body, feedImage),
			Categories: item.Categories,
		}
		if item.PublishedParsed != nil {
			post.PublishedAt = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			post.PublishedAt = item.UpdatedParsed.UTC()
		}
		if post.Categories == nil {
			post.Categories = []string{}
		}
		posts = append(posts, post)
	}

	sort.SliceStable(posts, func(i, j int) bool { return posts[i].PublishedAt.After(posts[j].PublishedAt) })
	if f.maxItems > 0 && len(posts) > f.maxItems {
		posts = posts[:f.maxItems]
	}
	return posts
}

func thumbnail(item *gofeed.Item, body, feedImage string) string {
	if m := imgRegex.FindStringSubmatch(body); m != nil {
		return html.UnescapeString(m[1])
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return feedImage
}

// Summarize turns an HTML fragment into plain text of at most `maxLen` runes (ellipsis excluded).
func Summarize(s string, maxLen int) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxLen])) + "…"
}
