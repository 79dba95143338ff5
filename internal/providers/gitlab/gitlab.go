// Package gitlab enriches repository descriptions from the GitLab v4 API
package gitlab

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	perr "repolens/internal/platform/errors"
	"repolens/internal/providers"
)

const (
	baseURLDefault = "https://gitlab.com"
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

// Plugin implements providers.Plugin for gitlab.com
type Plugin struct {
	http *http.Client
	opts Options
}

// New creates a GitLab plugin with sane defaults
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
func (p *Plugin) Name() string { return "gitlab" }

// Hosts implements providers.Plugin
func (p *Plugin) Hosts() []string { return []string{"gitlab.com"} }

// Enrich fetches star and fork counts, default branch and description for
// the project path encoded in the URL
func (p *Plugin) Enrich(ctx context.Context, repoURL string) (providers.Enrichment, error) {
	owner, name, ok := providers.OwnerRepo(repoURL)
	if !ok {
		return providers.Enrichment{}, perr.InvalidArgf("gitlab: cannot parse project path from %q", repoURL)
	}
	project := url.PathEscape(owner + "/" + name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.opts.BaseURL+"/api/v4/projects/"+project, nil)
	if err != nil {
		return providers.Enrichment{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "gitlab: new request")
	}
	req.Header.Set("User-Agent", p.opts.UserAgent)
	if p.opts.Token != "" {
		req.Header.Set("PRIVATE-TOKEN", p.opts.Token)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return providers.Enrichment{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "gitlab: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return providers.Enrichment{}, perr.NotFoundf("gitlab: project not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return providers.Enrichment{}, perr.Newf(perr.ErrorCodeTooManyRequests, "gitlab: rate limited")
	case resp.StatusCode != http.StatusOK:
		return providers.Enrichment{}, perr.Unavailablef("gitlab: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return providers.Enrichment{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "gitlab: read body")
	}
	return providers.Enrichment{
		Stars:         int(gjson.GetBytes(body, "star_count").Int()),
		Forks:         int(gjson.GetBytes(body, "forks_count").Int()),
		DefaultBranch: gjson.GetBytes(body, "default_branch").String(),
		Description:   gjson.GetBytes(body, "description").String(),
	}, nil
}
