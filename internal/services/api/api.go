// Package api provides the HTTP API for the application
package api

import (
	"repolens/internal/platform/config"
	"repolens/internal/platform/logger"
	phttp "repolens/internal/platform/net/http"
	"repolens/internal/platform/store"

	"repolens/internal/modkit"
	"repolens/internal/modkit/httpkit"
	"repolens/internal/modkit/module"
	"repolens/internal/modkit/swaggerkit"

	metamod "repolens/internal/services/api/meta/module"
	detectmod "repolens/internal/services/detect/module"
	recordsmod "repolens/internal/services/records/module"
	"repolens/internal/services/tenant"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mounted carries the constructed modules so main can reach their ports,
// notably the detect runner
type Mounted struct {
	Detect  *detectmod.Module
	Records module.Module
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) Mounted {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}

	// Records owns the description store; detect consumes its writer port
	records := recordsmod.New(deps)
	detect := detectmod.New(deps, detectmod.WithRecordsModule(records))

	mods := []module.Module{
		metamod.New(deps),
		records,
		detect,
	}

	// tenant resolution applies to every v1 route
	guard := httpkit.Tenancy(tenant.New(tenant.FromConfig(deps.Cfg)), phttp.JSON)

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, append(httpkit.CommonStack(), guard), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})

	return Mounted{Detect: detect, Records: records}
}
