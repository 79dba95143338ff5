// Package github enriches repository descriptions from the GitHub REST v3 API
package github

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	perr "repolens/internal/platform/errors"
	"repolens/internal/providers"
)

const (
	baseURLDefault = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	defaultUA      = "repolens-detect"
)

// Options configures the plugin
type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
}

// Plugin implements providers.Plugin for github.com
type Plugin struct {
	http *http.Client
	opts Options
}

// New creates a GitHub plugin with sane defaults
func New(o Options) *Plugin {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Plugin{http: &http.Client{Timeout: o.Timeout}, opts: o}
}

// Name implements providers.Plugin
func (p *Plugin) Name() string { return "github" }

// Hosts implements providers.Plugin
func (p *Plugin) Hosts() []string { return []string{"github.com"} }

// Enrich fetches stars, forks, default branch, description and an
// approximate contributor count
func (p *Plugin) Enrich(ctx context.Context, repoURL string) (providers.Enrichment, error) {
	owner, name, ok := providers.OwnerRepo(repoURL)
	if !ok {
		return providers.Enrichment{}, perr.InvalidArgf("github: cannot parse owner/repo from %q", repoURL)
	}

	body, err := p.get(ctx, "/repos/"+owner+"/"+name)
	if err != nil {
		return providers.Enrichment{}, err
	}
	e := providers.Enrichment{
		Stars:         int(gjson.GetBytes(body, "stargazers_count").Int()),
		Forks:         int(gjson.GetBytes(body, "forks_count").Int()),
		DefaultBranch: gjson.GetBytes(body, "default_branch").String(),
		Description:   gjson.GetBytes(body, "description").String(),
	}

	// contributor count is best effort; its failure never fails enrichment
	if raw, cerr := p.get(ctx, "/repos/"+owner+"/"+name+"/contributors?per_page=100"); cerr == nil {
		e.Contributors = int(gjson.GetBytes(raw, "#").Int())
	}
	return e, nil
}

func (p *Plugin) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.BaseURL+path, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "github: new request")
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if p.opts.Token != "" {
		req.Header.Set("Authorization", "token "+p.opts.Token)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "github: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, perr.NotFoundf("github: repository not found")
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, perr.Newf(perr.ErrorCodeTooManyRequests, "github: rate limited")
	case resp.StatusCode != http.StatusOK:
		return nil, perr.Unavailablef("github: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
