// repolens-detect runs the classification pipeline over a local tree and
// prints the resulting description as JSON. No store, no tenants
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"repolens/internal/core/ruleset"
	"repolens/internal/platform/logger"
	detectsvc "repolens/internal/services/detect/service"
)

func main() {
	_ = godotenv.Load()
	l := logger.Get()

	var (
		path       = flag.String("path", ".", "repository root to analyze")
		name       = flag.String("name", "", "repository name override")
		maxEntries = flag.Int("max-entries", 0, "scanner entry cap (0 = default)")
		pretty     = flag.Bool("pretty", true, "indent the JSON output")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := filepath.Abs(*path)
	if err != nil {
		l.Fatal().Err(err).Str("path", *path).Msg("resolve path")
	}

	pack, err := ruleset.Load()
	if err != nil {
		l.Fatal().Err(err).Msg("load rule tables")
	}

	desc, err := detectsvc.Describe(ctx, root, detectsvc.DescribeInputs{
		Name:   *name,
		Source: "local",
	}, pack, detectsvc.DescribeOptions{MaxEntries: *maxEntries})
	if err != nil {
		l.Fatal().Err(err).Msg("detection failed")
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(desc); err != nil {
		l.Fatal().Err(err).Msg("encode description")
	}
}
