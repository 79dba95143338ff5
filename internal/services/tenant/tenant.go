// Package tenant resolves and authorizes tenant identifiers for every job
// and record operation
package tenant

import (
	"regexp"
	"strings"

	"repolens/internal/platform/config"
	perr "repolens/internal/platform/errors"
)

// Header and query parameter carrying the tenant id
const (
	Header = "X-Tenant-ID"
	Param  = "tenant_id"
)

// Config controls resolution and authorization
type Config struct {
	// Required rejects requests with no resolvable tenant id
	Required bool
	// Default is used when the request carries no explicit id
	Default string
	// Allowlist, when non-empty, is the closed set of permitted ids
	Allowlist []string
}

// FromConfig reads the guard settings from the environment
func FromConfig(cfg config.Conf) Config {
	tc := cfg.Prefix("TENANT_")
	return Config{
		Required:  tc.MayBool("REQUIRED", true),
		Default:   tc.MayString("DEFAULT", ""),
		Allowlist: tc.MayCSV("ALLOWLIST", nil),
	}
}

// Resolver applies the resolution order: explicit header, then query
// parameter, then the configured default
type Resolver struct {
	cfg   Config
	allow map[string]struct{}
}

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// New builds a Resolver. Allowlist entries are normalized to lowercase
func New(cfg Config) *Resolver {
	r := &Resolver{cfg: cfg}
	if len(cfg.Allowlist) > 0 {
		r.allow = make(map[string]struct{}, len(cfg.Allowlist))
		for _, id := range cfg.Allowlist {
			id = strings.ToLower(strings.TrimSpace(id))
			if id != "" {
				r.allow[id] = struct{}{}
			}
		}
	}
	return r
}

// Resolve picks the tenant id from the supplied values and authorizes it.
// The returned id is always validated against the allow-list when one is
// configured
func (r *Resolver) Resolve(headerVal, paramVal string) (string, error) {
	id := strings.TrimSpace(headerVal)
	if id == "" {
		id = strings.TrimSpace(paramVal)
	}
	if id == "" {
		id = r.cfg.Default
	}
	if id == "" {
		if r.cfg.Required {
			return "", perr.Unauthorizedf("tenant id required")
		}
		return "", nil
	}
	if err := r.Validate(id); err != nil {
		return "", err
	}
	return strings.ToLower(id), nil
}

// Validate checks the id's shape and allow-list membership
func (r *Resolver) Validate(id string) error {
	id = strings.ToLower(strings.TrimSpace(id))
	if !idPattern.MatchString(id) {
		return perr.InvalidArgf("invalid tenant id")
	}
	if r.allow != nil {
		if _, ok := r.allow[id]; !ok {
			return perr.Forbiddenf("tenant not permitted")
		}
	}
	return nil
}

// Match reports whether a stored tenant id belongs to the caller. A
// mismatch is reported as not-found so record existence cannot be probed
// across tenants
func Match(callerID, storedID string) error {
	if callerID == "" || !strings.EqualFold(callerID, storedID) {
		return perr.NotFoundf("not found")
	}
	return nil
}
