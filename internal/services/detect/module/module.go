// Package module wires the detection orchestrator into the API using modkit
package module

import (
	"net/http"

	"repolens/internal/core/ruleset"
	modkit "repolens/internal/modkit"
	"repolens/internal/modkit/httpkit"
	str "repolens/internal/platform/strings"
	"repolens/internal/providers"
	"repolens/internal/providers/github"
	"repolens/internal/providers/gitlab"
	"repolens/internal/services/detect/domain"
	detecthttp "repolens/internal/services/detect/http"
	detectrepo "repolens/internal/services/detect/repo"
	detectsvc "repolens/internal/services/detect/service"
	recordsdom "repolens/internal/services/records/domain"
)

// Ports exposed by the detect module
type Ports struct {
	Service domain.ServicePort
	Runner  *detectsvc.Svc
}

// Module implements the modkit.Module interface
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(http.Handler) http.Handler
	ports     Ports
	swaggerOn bool

	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *detectsvc.Svc
}

// New constructs a detect module. The records writer port must be supplied
// via WithRecordsModule (or WithPorts); the job store defaults to Postgres
// when deps.PG is set and falls back to the in-memory store otherwise
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("detect"),
		modkit.WithPrefix("/detections"),
	}, opts...)...)

	writer, ok := b.Ports.(recordsdom.WriterPort)
	if !ok {
		panic("detect module: expected WithPorts(records writer port)")
	}

	cfg := FromConfig(deps.Cfg)

	var store domain.JobStore
	if deps.PG != nil {
		store = detectrepo.NewPG().Bind(deps.PG)
	} else {
		store = detectrepo.NewMemory()
	}

	svc := detectsvc.New(store, writer, ruleset.Must(), detectsvc.Config{
		Workers:         cfg.Workers,
		JobTimeout:      cfg.JobTimeout,
		MaxEntries:      cfg.MaxEntries,
		MaxReadBytes:    cfg.MaxReadBytes,
		EnrichMandatory: cfg.EnrichMandatory,
	})
	svc.Providers = providers.NewRegistry(
		github.New(github.Options{Token: cfg.GitHubToken}),
		gitlab.New(gitlab.Options{Token: cfg.GitLabToken}),
	)
	if deps.CH != nil {
		svc.Sink = detectrepo.NewEvents(deps.CH)
	}

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		swaggerOn: b.SwaggerOn,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Service: svc, Runner: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		detecthttp.Register(r, m.svc)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
