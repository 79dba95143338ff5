package module

import (
	"time"

	"repolens/internal/platform/config"
)

// Options holds configuration settings for the detect module
type Options struct {
	Workers         int
	JobTimeout      time.Duration
	MaxEntries      int
	MaxReadBytes    int64
	EnrichMandatory bool

	GitHubToken string
	GitLabToken string
}

// FromConfig extracts Options from the given config.Conf
func FromConfig(cfg config.Conf) Options {
	df := cfg.Prefix("DETECT_")
	return Options{
		Workers:         df.MayInt("WORKERS", 2),
		JobTimeout:      df.MayDuration("JOB_TIMEOUT", 5*time.Minute),
		MaxEntries:      df.MayInt("MAX_ENTRIES", 0),
		MaxReadBytes:    int64(df.MayInt("MAX_READ_BYTES", 0)),
		EnrichMandatory: df.MayBool("ENRICH_MANDATORY", false),
		GitHubToken:     df.MayString("GITHUB_TOKEN", ""),
		GitLabToken:     df.MayString("GITLAB_TOKEN", ""),
	}
}
