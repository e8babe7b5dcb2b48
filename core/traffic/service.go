package traffic

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
)

var NowFunc = time.Now // mockable

const topSourcesLimit = 10

type Visit struct {
	ID           string    `json:"id"`
	CenterID     string    `json:"center_id"`
	Path         string    `json:"path"`
	Referrer     string    `json:"referrer"`
	ReferrerHost string    `json:"referrer_host"`
	UTMSource    string    `json:"utm_source"`
	UTMMedium    string    `json:"utm_medium"`
	UTMCampaign  string    `json:"utm_campaign"`
	Category     string    `json:"category"`
	SourceName   string    `json:"source_name"`
	SessionID    string    `json:"session_id"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// NewVisit is posted by the public site on each page view.
type NewVisit struct {
	CenterID    string `json:"-"`
	SiteHost    string `json:"-"`
	UserAgent   string `json:"-"`
	Path        string `json:"path" validate:"required,max=2000"`
	Referrer    string `json:"referrer" validate:"max=2000"`
	UTMSource   string `json:"utm_source" validate:"max=200"`
	UTMMedium   string `json:"utm_medium" validate:"max=200"`
	UTMCampaign string `json:"utm_campaign" validate:"max=200"`
	SessionID   string `json:"session_id" validate:"max=100"`
}

func (nv *NewVisit) Validate(validate *validator.Validate) error {
	nv.Path = core.CleanString(nv.Path)
	nv.Referrer = core.CleanString(nv.Referrer)
	nv.UTMSource = core.CleanString(nv.UTMSource)
	nv.UTMMedium = core.CleanString(nv.UTMMedium)
	nv.UTMCampaign = core.CleanString(nv.UTMCampaign)
	nv.SessionID = core.CleanString(nv.SessionID)
	return validate.Struct(nv)
}

// QueryFilter selects Visits. From & To bound CreatedAt as [From, To).
type QueryFilter struct {
	CenterID string
	From     time.Time
	To       time.Time
}

type (
	Count struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	Stats struct {
		From           time.Time      `json:"from"`
		To             time.Time      `json:"to"`
		Total          int            `json:"total"`
		UniqueSessions int            `json:"unique_sessions"`
		ByCategory     map[string]int `json:"by_category"`
		TopSources     []Count        `json:"top_sources"`
		Daily          []Count        `json:"daily"` // Name: YYYY-MM-DD
	}
)

type (
	Repository interface {
		CreateVisit(ctx context.Context, v Visit) (Visit, error)
		QueryVisits(ctx context.Context, filter *QueryFilter) ([]Visit, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordVisit categorizes & stores a visit.
func (svc *Service) RecordVisit(ctx context.Context, nv NewVisit) (Visit, error) {
	src := Categorize(nv.Referrer, nv.UTMSource, nv.UTMMedium, nv.SiteHost)
	return svc.repo.CreateVisit(ctx, Visit{
		CenterID:     nv.CenterID,
		Path:         nv.Path,
		Referrer:     nv.Referrer,
		ReferrerHost: ReferrerHost(nv.Referrer),
		UTMSource:    nv.UTMSource,
		UTMMedium:    nv.UTMMedium,
		UTMCampaign:  nv.UTMCampaign,
		Category:     src.Category,
		SourceName:   src.Name,
		SessionID:    nv.SessionID,
		UserAgent:    nv.UserAgent,
		CreatedAt:    NowFunc().UTC(),
	})
}

// Stats aggregates the visits of a center in [from, to).
func (svc *Service) Stats(ctx context.Context, centerID string, from, to time.Time) (Stats, error) {
	visits, err := svc.repo.QueryVisits(ctx, &QueryFilter{CenterID: centerID, From: from, To: to})
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying visits")
	}
	return aggregate(visits, from, to), nil
}

func aggregate(visits []Visit, from, to time.Time) Stats {
	stats := Stats{
		From:       from,
		To:         to,
		Total:      len(visits),
		ByCategory: make(map[string]int, len(Categories)),
		TopSources: []Count{},
		Daily:      []Count{},
	}
	for _, cat := range Categories {
		stats.ByCategory[cat] = 0
	}

	sessions := make(map[string]struct{})
	sources := make(map[string]int)
	daily := make(map[string]int)
	for _, v := range visits {
		if v.SessionID != "" {
			sessions[v.SessionID] = struct{}{}
		}
		stats.ByCategory[v.Category]++
		sources[v.SourceName]++
		daily[v.CreatedAt.UTC().Format("2006-01-02")]++
	}
	stats.UniqueSessions = len(sessions)

	stats.TopSources = sortedCounts(sources, func(a, b Count) bool {
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(stats.TopSources) > topSourcesLimit {
		stats.TopSources = stats.TopSources[:topSourcesLimit]
	}
	stats.Daily = sortedCounts(daily, func(a, b Count) bool { return a.Name < b.Name })
	return stats
}

func sortedCounts(m map[string]int, less func(a, b Count) bool) []Count {
	counts := make([]Count, 0, len(m))
	for name, cnt := range m {
		counts = append(counts, Count{Name: name, Count: cnt})
	}
	sort.Slice(counts, func(i, j int) bool { return less(counts[i], counts[j]) })
	return counts
}
