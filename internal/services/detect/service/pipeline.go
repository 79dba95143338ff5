package service

import (
	"context"
	"fmt"
	"time"

	"repolens/internal/core/classify"
	"repolens/internal/core/gitinfo"
	"repolens/internal/core/langdetect"
	"repolens/internal/core/ruleset"
	"repolens/internal/core/scan"
	"repolens/internal/core/signals"
	"repolens/internal/core/synthesize"
	"repolens/internal/providers"
)

// Pipeline stage names, also surfaced as job progress messages
const (
	StageScan       = "scanning"
	StageSignals    = "extracting signals"
	StageDetect     = "detecting stack"
	StageClassify   = "classifying"
	StageSynthesize = "synthesizing"
)

// StageError tags a pipeline failure with the stage it occurred in
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// DescribeInputs identify the repository being described
type DescribeInputs struct {
	Name   string
	URL    string
	Source string // "local" | "remote"
}

// DescribeOptions tune the pipeline
type DescribeOptions struct {
	MaxEntries   int
	MaxReadBytes int64

	// OnStage is invoked as each stage begins, with a 0-100 progress hint
	OnStage func(stage string, progress int)
}

// Describe runs the full classification pipeline over a local tree: scan,
// signal extraction, stack detection, git analysis, classification,
// synthesis. Cancellation is observed between stages. Used by the job runner
// and by the offline binary
func Describe(ctx context.Context, root string, in DescribeInputs, pack *ruleset.Pack, opts DescribeOptions) (synthesize.Description, error) {
	stage := func(name string, pct int) {
		if opts.OnStage != nil {
			opts.OnStage(name, pct)
		}
	}

	stage(StageScan, 10)
	inv, err := scan.Walk(ctx, root, pack, scan.Options{MaxEntries: opts.MaxEntries})
	if err != nil {
		return synthesize.Description{}, &StageError{Stage: StageScan, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return synthesize.Description{}, &StageError{Stage: StageSignals, Err: err}
	}
	stage(StageSignals, 35)
	set, err := signals.Extract(ctx, root, inv, pack, signals.Options{MaxReadBytes: opts.MaxReadBytes})
	if err != nil {
		return synthesize.Description{}, &StageError{Stage: StageSignals, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return synthesize.Description{}, &StageError{Stage: StageDetect, Err: err}
	}
	stage(StageDetect, 55)
	ranking := langdetect.Detect(inv, set, pack)
	git := gitinfo.Analyze(root)

	if err := ctx.Err(); err != nil {
		return synthesize.Description{}, &StageError{Stage: StageClassify, Err: err}
	}
	stage(StageClassify, 70)
	cls := classify.Classify(inv, set, ranking)

	stage(StageSynthesize, 80)
	name := in.Name
	if name == "" {
		name = providers.RepoName(root)
	}
	desc := synthesize.Build(synthesize.Inputs{
		Name:           name,
		URL:            in.URL,
		Source:         in.Source,
		Timestamp:      time.Now().UTC(),
		Inventory:      inv,
		Signals:        set,
		Ranking:        ranking,
		Classification: cls,
		Git:            git,
	})
	return desc, nil
}
