package seo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kidcare/core"
)

const indexNowEngine = "indexnow"

// PingResult is the outcome of notifying one search engine.
type PingResult struct {
	Engine     string `json:"engine"`
	StatusCode int    `json:"status_code"`
	Err        error  `json:"-"`
	Error      string `json:"error,omitempty"`
}

func (r PingResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

type indexNowRequest struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation"`
	URLList     []string `json:"urlList"`
}

// Pinger notifies search engines that a site changed. Failures are reported, never retried.
type Pinger struct {
	client    *http.Client
	logger    core.Logger
	key       string
	indexNow  string
	endpoints []string
}

func NewPinger(conf *core.Config, client *http.Client, logger core.Logger) *Pinger {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Pinger{
		client:    client,
		logger:    logger,
		key:       conf.SEO.IndexNowKey,
		indexNow:  conf.SEO.IndexNowEndpoint,
		endpoints: conf.SEO.PingEndpoints,
	}
}

// Key returns the IndexNow key, served at `/<key>.txt` for ownership verification.
func (p *Pinger) Key() string { return p.key }

// Ping submits `urls` to IndexNow (when a key is configured) and the sitemap to each ping endpoint.
func (p *Pinger) Ping(ctx context.Context, sitemapURL string, urls []string) []PingResult {
	results := make([]PingResult, 0, len(p.endpoints)+1)
	if p.key != "" && p.indexNow != "" && len(urls) > 0 {
		results = append(results, p.pingIndexNow(ctx, sitemapURL, urls))
	}
	for _, endpoint := range p.endpoints {
		results = append(results, p.pingSitemap(ctx, endpoint, sitemapURL))
	}

	for i, res := range results {
		if res.Err != nil {
			results[i].Error = res.Err.Error()
			p.logger.Warn(fmt.Sprintf("seo.Ping(%s): %v", res.Engine, res.Err))
		}
	}
	return results
}

func (p *Pinger) pingIndexNow(ctx context.Context, sitemapURL string, urls []string) PingResult {
	res := PingResult{Engine: indexNowEngine}

	site, err := url.Parse(sitemapURL)
	if err != nil || site.Host == "" {
		res.Err = errors.Errorf("invalid sitemap URL %q", sitemapURL)
		return res
	}
	body, err := json.Marshal(indexNowRequest{
		Host:        site.Host,
		Key:         p.key,
		KeyLocation: fmt.Sprintf("%s://%s/%s.txt", site.Scheme, site.Host, p.key),
		URLList:     urls,
	})
	if err != nil {
		res.Err = errors.Wrap(err, "encoding IndexNow request")
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.indexNow, bytes.NewReader(body))
	if err != nil {
		res.Err = errors.Wrap(err, "creating IndexNow request")
		return res
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	res.StatusCode, res.Err = p.do(req)
	return res
}

func (p *Pinger) pingSitemap(ctx context.Context, endpoint, sitemapURL string) PingResult {
	res := PingResult{Engine: endpoint}
	u, err := url.Parse(endpoint)
	if err != nil {
		res.Err = errors.Wrap(err, "parsing ping endpoint")
		return res
	}
	res.Engine = u.Host
	q := u.Query()
	q.Set("sitemap", sitemapURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		res.Err = errors.Wrap(err, "creating ping request")
		return res
	}
	res.StatusCode, res.Err = p.do(req)
	return res
}

func (p *Pinger) do(req *http.Request) (int, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return resp.StatusCode, errors.Errorf("unexpected status %s", resp.Status)
	}
	return resp.StatusCode, nil
}
