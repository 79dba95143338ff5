// Package signals reads the bounded set of important files identified by the
// rule pack and turns them into typed detection signals. Single-file read or
// parse failures degrade that one signal, never the whole extraction
package signals

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"repolens/internal/core/ruleset"
	"repolens/internal/core/scan"
)

// Signal is one typed piece of evidence
type Signal struct {
	Kind     string             `json:"kind"`
	Path     string             `json:"path"`
	Format   ruleset.FileFormat `json:"format"`
	Raw      string             `json:"raw,omitempty"`
	Parsed   map[string]any     `json:"parsed,omitempty"`
	Degraded bool               `json:"degraded,omitempty"`
}

// Flags are presence booleans derived from the inventory
type Flags struct {
	HasTests  bool `json:"has_tests"`
	HasDocs   bool `json:"has_docs"`
	HasCI     bool `json:"has_ci"`
	HasDocker bool `json:"has_docker"`
	HasIaC    bool `json:"has_iac"`
}

// Set is the full extraction result for one repository
type Set struct {
	Signals      []Signal `json:"signals"`
	Flags        Flags    `json:"flags"`
	CIPlatform   string   `json:"ci_platform,omitempty"`
	PipelineRefs []string `json:"pipeline_refs,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Artifacts    []string `json:"artifacts,omitempty"`
	Description  string   `json:"description,omitempty"`
	License      string   `json:"license,omitempty"`
}

// Options bound per-file reads
type Options struct {
	MaxReadBytes int64 // <=0 uses the pack's max_read_bytes
}

// Extract walks the inventory in order and reads matched important files.
// Entry order fixes signal order, which downstream uses for tie-breaks
func Extract(ctx context.Context, root string, inv *scan.Inventory, pack *ruleset.Pack, opts Options) (*Set, error) {
	maxRead := opts.MaxReadBytes
	if maxRead <= 0 {
		maxRead = pack.MaxReadBytes
	}

	set := &Set{
		Flags: Flags{
			HasTests:  inv.HasCategory("test"),
			HasDocs:   inv.HasCategory("doc"),
			HasCI:     inv.HasCategory("ci"),
			HasDocker: inv.HasCategory("docker"),
			HasIaC:    inv.HasCategory("infra"),
		},
	}
	depSeen := make(map[string]struct{}, 32)
	artSeen := make(map[string]struct{}, 8)

	for _, e := range inv.Entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		imp, ok := pack.MatchImportant(e.Path)
		if !ok {
			continue
		}

		sig := Signal{Kind: imp.Kind, Path: e.Path, Format: imp.Format}

		if imp.Format == ruleset.FormatName {
			set.Signals = append(set.Signals, sig)
			continue
		}
		if e.Size > maxRead {
			sig.Degraded = true
			set.Signals = append(set.Signals, sig)
			continue
		}

		raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(e.Path)))
		if err != nil {
			sig.Degraded = true
			set.Signals = append(set.Signals, sig)
			continue
		}
		sig.Raw = string(raw)

		frag, deps, arts, perr := parseFragment(imp, sig.Raw)
		if perr != nil {
			sig.Degraded = true
			sig.Raw = ""
		} else {
			sig.Parsed = frag
			for _, d := range deps {
				if _, dup := depSeen[d]; !dup {
					depSeen[d] = struct{}{}
					set.Dependencies = append(set.Dependencies, d)
				}
			}
			for _, a := range arts {
				if _, dup := artSeen[a]; !dup {
					artSeen[a] = struct{}{}
					set.Artifacts = append(set.Artifacts, a)
				}
			}
		}
		set.Signals = append(set.Signals, sig)

		if sig.Kind == "doc:readme" && set.Description == "" && !sig.Degraded {
			set.Description = firstParagraph(sig.Raw)
		}

		if platform, isCI := pack.CIPlatforms[sig.Kind]; isCI {
			if set.CIPlatform == "" {
				set.CIPlatform = platform
			}
			set.PipelineRefs = append(set.PipelineRefs, e.Path)
		}
	}

	// license signals are name-only and skip the read branch above
	if set.License == "" {
		for _, s := range set.Signals {
			if s.Kind == "doc:license" {
				set.License = filepath.Base(s.Path)
				break
			}
		}
	}

	sort.Strings(set.PipelineRefs)
	return set, nil
}

// Has reports whether a non-degraded signal with the kind exists
func (s *Set) Has(kind string) bool {
	for _, sig := range s.Signals {
		if sig.Kind == kind && !sig.Degraded {
			return true
		}
	}
	return false
}

// Kinds returns every signal kind in first-seen order
func (s *Set) Kinds() []string {
	out := make([]string, 0, len(s.Signals))
	seen := make(map[string]struct{}, len(s.Signals))
	for _, sig := range s.Signals {
		if _, ok := seen[sig.Kind]; ok {
			continue
		}
		seen[sig.Kind] = struct{}{}
		out = append(out, sig.Kind)
	}
	return out
}
