// @title         Repolens API
// @version       0.1.0
// @description   Repository classification engine and detection job API

package main

import (
	"context"
	"errors"

	"github.com/joho/godotenv"

	"repolens/internal/platform/config"
	"repolens/internal/platform/logger"
	phttp "repolens/internal/platform/net/http"
	"repolens/internal/platform/store"

	"repolens/internal/services/api"
	detectmod "repolens/internal/services/detect/module"
)

func main() {
	_ = godotenv.Load()

	// service-scoped config for HTTP etc (REPOLENS_API_*)
	root := config.New()
	apiCfg := root.Prefix("REPOLENS_API_")

	pgCfg := root.Prefix("SERVICE_PGSQL_")      // pgCfg lives under SERVICE_PGSQL_*
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_") // chCfg lives under SERVICE_CLICKHOUSE_*
	// bring up logging early
	l := logger.Get()

	// open the platform store (postgres + CH adapter)
	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:    chCfg.MayBool("ENABLED", true),
				URL:        chCfg.MayString("DBURL", ""),
				ClientName: "repolens",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// http server (reads REPOLENS_API_PORT / REPOLENS_API_ADDR)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	mounted := api.Mount(
		srv.Router(),
		api.Options{
			Config:         apiCfg,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", true),
		},
	)

	// start the detection worker pool alongside the server
	runCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	runner := mounted.Detect.Ports().(detectmod.Ports).Runner
	go func() {
		if err := runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			l.Error().Err(err).Msg("detect runner stopped")
		}
	}()

	// run
	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
