// Package providers resolves optional repository-hosting enrichment plugins
// by URL host. The registration table is static and built at startup; there
// is no runtime discovery
package providers

import (
	"context"
	"net/url"
	"strings"

	perr "repolens/internal/platform/errors"
)

// Enrichment is what a hosting provider can add to a description
type Enrichment struct {
	Stars         int    `json:"stars"`
	Forks         int    `json:"forks"`
	Contributors  int    `json:"contributors"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Plugin is one hosting provider
type Plugin interface {
	Name() string
	Hosts() []string
	Enrich(ctx context.Context, repoURL string) (Enrichment, error)
}

// ErrNotSupported reports that no plugin handles the repository's host
var ErrNotSupported = perr.NotFoundf("no provider for repository host")

// Registry maps URL hosts to plugins
type Registry struct {
	byHost map[string]Plugin
}

// NewRegistry builds the static host table. Later registrations win on
// host collisions
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{byHost: make(map[string]Plugin, len(plugins)*2)}
	for _, p := range plugins {
		for _, h := range p.Hosts() {
			r.byHost[strings.ToLower(h)] = p
		}
	}
	return r
}

// Resolve returns the plugin for the repository URL's host
func (r *Registry) Resolve(repoURL string) (Plugin, bool) {
	host := Host(repoURL)
	if host == "" {
		return nil, false
	}
	p, ok := r.byHost[host]
	if !ok {
		p, ok = r.byHost[strings.TrimPrefix(host, "www.")]
	}
	return p, ok
}

// Enrich resolves and calls the plugin in one step. ErrNotSupported when no
// plugin matches
func (r *Registry) Enrich(ctx context.Context, repoURL string) (Enrichment, error) {
	p, ok := r.Resolve(repoURL)
	if !ok {
		return Enrichment{}, ErrNotSupported
	}
	return p.Enrich(ctx, repoURL)
}

// Host extracts the lowercase host from an http(s) or scp-style git URL
func Host(repoURL string) string {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return ""
	}
	// scp-style: git@github.com:owner/repo.git
	if at := strings.Index(repoURL, "@"); at > 0 && !strings.Contains(repoURL, "://") {
		rest := repoURL[at+1:]
		if colon := strings.Index(rest, ":"); colon > 0 {
			return strings.ToLower(rest[:colon])
		}
	}
	u, err := url.Parse(repoURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// OwnerRepo splits the URL path into owner and repository name, dropping a
// trailing .git
func OwnerRepo(repoURL string) (string, string, bool) {
	var p string
	if at := strings.Index(repoURL, "@"); at > 0 && !strings.Contains(repoURL, "://") {
		if colon := strings.Index(repoURL[at+1:], ":"); colon > 0 {
			p = repoURL[at+1+colon+1:]
		}
	} else if u, err := url.Parse(repoURL); err == nil {
		p = u.Path
	}
	p = strings.Trim(strings.TrimSuffix(p, ".git"), "/")
	parts := strings.Split(p, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.Join(parts[1:], "/"), true
}

// RepoName derives a repository name from a URL or local path
func RepoName(repoOrPath string) string {
	if _, name, ok := OwnerRepo(repoOrPath); ok {
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	trimmed := strings.TrimRight(strings.ReplaceAll(repoOrPath, "\\", "/"), "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSuffix(trimmed, ".git")
}
