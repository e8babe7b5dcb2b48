// Package seo renders the sitemap & robots.txt of center sites and notifies search engines of their changes.
package seo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/therapist"
)

const sitemapXMLNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Change frequencies
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// Entry is a page listed in a sitemap.
type Entry struct {
	Path       string // absolute path, eg: "/therapists"
	LastMod    time.Time
	ChangeFreq string
	Priority   float64
	Static     bool // static entries keep their order, ahead of dynamic ones
}

// StaticPages of a center's public site.
var StaticPages = []Entry{
	{Path: "/", ChangeFreq: FreqWeekly, Priority: 1.0, Static: true},
	{Path: "/about", ChangeFreq: FreqMonthly, Priority: 0.8, Static: true},
	{Path: "/programs", ChangeFreq: FreqMonthly, Priority: 0.8, Static: true},
	{Path: "/therapists", ChangeFreq: FreqWeekly, Priority: 0.8, Static: true},
	{Path: "/blog", ChangeFreq: FreqDaily, Priority: 0.7, Static: true},
	{Path: "/contact", ChangeFreq: FreqMonthly, Priority: 0.6, Static: true},
}

type (
	urlSet struct {
		XMLName xml.Name   `xml:"urlset"`
		XMLNS   string     `xml:"xmlns,attr"`
		URLs    []urlEntry `xml:"url"`
	}

	urlEntry struct {
		Loc        string `xml:"loc"`
		LastMod    string `xml:"lastmod,omitempty"`
		ChangeFreq string `xml:"changefreq,omitempty"`
		Priority   string `xml:"priority,omitempty"`
	}
)

// CenterEntries lists the sitemap entries of a center site: its static pages, dated by the center's last update,
// followed by the profiles of its public therapists.
func CenterEntries(c center.Center, therapists []therapist.Therapist) []Entry {
	entries := make([]Entry, 0, len(StaticPages)+len(therapists))
	for _, page := range StaticPages {
		page.LastMod = c.UpdatedAt
		entries = append(entries, page)
	}
	for _, t := range therapists {
		if !t.IsPublic || !t.IsActive {
			continue
		}
		entries = append(entries, Entry{
			Path:       "/therapists/" + t.ID,
			LastMod:    t.UpdatedAt,
			ChangeFreq: FreqMonthly,
			Priority:   0.6,
		})
	}
	return entries
}

// BuildSitemap renders `entries` as a sitemaps.org XML document.
// Entries are de-duplicated by location; static entries come first, then dynamic ones sorted by location.
func BuildSitemap(baseURL string, entries []Entry) ([]byte, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	var static, dynamic []urlEntry
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		loc := Loc(baseURL, e.Path)
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}

		u := urlEntry{Loc: loc, ChangeFreq: e.ChangeFreq}
		if !e.LastMod.IsZero() {
			u.LastMod = e.LastMod.UTC().Format("2006-01-02")
		}
		if e.Priority > 0 {
			u.Priority = fmt.Sprintf("%.1f", e.Priority)
		}
		if e.Static {
			static = append(static, u)
		} else {
			dynamic = append(dynamic, u)
		}
	}
	sort.SliceStable(dynamic, func(i, j int) bool { return dynamic[i].Loc < dynamic[j].Loc })

	set := urlSet{XMLNS: sitemapXMLNS, URLs: append(static, dynamic...)}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Loc joins baseURL & path.
func Loc(baseURL, path string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if path == "" || path == "/" {
		return baseURL + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return baseURL + path
}

// DisallowedPaths are never crawled.
var DisallowedPaths = []string{"/admin", "/portal", "/api"}

// Robots renders the robots.txt of a center site.
func Robots(baseURL string) []byte {
	var buf bytes.Buffer
	buf.WriteString("User-agent: *\n")
	buf.WriteString("Allow: /\n")
	for _, p := range DisallowedPaths {
		buf.WriteString("Disallow: " + p + "\n")
	}
	buf.WriteString("\nSitemap: " + Loc(baseURL, "/sitemap.xml") + "\n")
	return buf.Bytes()
}
