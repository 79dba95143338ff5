// Package synthesize merges scan, signal, detection and git results into one
// structured repository description. It is pure: no I/O, no clock beyond the
// timestamp it is handed
package synthesize

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"repolens/internal/core/classify"
	"repolens/internal/core/gitinfo"
	"repolens/internal/core/langdetect"
	"repolens/internal/core/scan"
	"repolens/internal/core/signals"
)

// DetectorVersion is stamped on every description
const DetectorVersion = "1.0.0"

// maxSecondaryLanguages caps the secondary language list
const maxSecondaryLanguages = 5

// Metrics summarizes the scanned tree
type Metrics struct {
	FileCount  int            `json:"file_count"`
	TotalBytes int64          `json:"total_bytes"`
	ByCategory map[string]int `json:"by_category,omitempty"`
	Truncated  bool           `json:"truncated,omitempty"`
}

// Meta is the detection metadata block
type Meta struct {
	Source    string    `json:"source"` // "local" | "remote"
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Checksum  string    `json:"checksum"`
}

// Enrichment carries optional provider fields
type Enrichment struct {
	Stars         int    `json:"stars,omitempty"`
	Forks         int    `json:"forks,omitempty"`
	Contributors  int    `json:"contributors,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Description is the synthesized repository record
type Description struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`

	PrimaryLanguage    string   `json:"primary_language,omitempty"`
	SecondaryLanguages []string `json:"secondary_languages,omitempty"`
	Frameworks         []string `json:"frameworks,omitempty"`
	PackageManagers    []string `json:"package_managers,omitempty"`
	BuildTools         []string `json:"build_tools,omitempty"`

	ProjectType string  `json:"project_type"`
	Domain      string  `json:"domain"`
	Confidence  float64 `json:"confidence"`

	BranchStrategy string   `json:"branch_strategy"`
	DefaultBranch  string   `json:"default_branch,omitempty"`
	CIPlatform     string   `json:"ci_platform,omitempty"`
	PipelineRefs   []string `json:"pipeline_refs,omitempty"`

	Artifacts    []string `json:"artifacts,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`

	HasTests  bool `json:"has_tests"`
	HasDocs   bool `json:"has_docs"`
	HasCI     bool `json:"has_ci"`
	HasDocker bool `json:"has_docker"`
	HasIaC    bool `json:"has_iac"`

	License    string      `json:"license,omitempty"`
	Metrics    Metrics     `json:"metrics"`
	Enrichment *Enrichment `json:"enrichment,omitempty"`
	Detection  Meta        `json:"detection"`
}

// Inputs are the pipeline results to merge
type Inputs struct {
	Name      string
	URL       string
	Source    string // "local" | "remote"
	Timestamp time.Time

	Inventory      *scan.Inventory
	Signals        *signals.Set
	Ranking        *langdetect.Ranking
	Classification classify.Result
	Git            gitinfo.Info
}

var titleCaser = cases.Title(language.English)

// Build assembles the description. Confidence and flags come straight from
// the classification and signal stages; nothing is recomputed here
func Build(in Inputs) Description {
	name := in.Name
	if name == "" {
		name = "repository"
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	d := Description{
		Name:        name,
		DisplayName: titleCaser.String(strings.NewReplacer("-", " ", "_", " ").Replace(name)),
		URL:         in.URL,
		Description: in.Signals.Description,

		ProjectType: in.Classification.ProjectType,
		Domain:      in.Classification.Domain,
		Confidence:  in.Classification.Confidence,

		BranchStrategy: string(in.Git.Strategy),
		DefaultBranch:  in.Git.DefaultBranch,
		CIPlatform:     in.Signals.CIPlatform,
		PipelineRefs:   in.Signals.PipelineRefs,

		Artifacts:    in.Signals.Artifacts,
		Dependencies: in.Signals.Dependencies,

		HasTests:  in.Signals.Flags.HasTests,
		HasDocs:   in.Signals.Flags.HasDocs,
		HasCI:     in.Signals.Flags.HasCI,
		HasDocker: in.Signals.Flags.HasDocker,
		HasIaC:    in.Signals.Flags.HasIaC,

		License: in.Signals.License,
		Metrics: Metrics{
			FileCount:  len(in.Inventory.Entries),
			TotalBytes: in.Inventory.TotalBytes,
			ByCategory: in.Inventory.Counts,
			Truncated:  in.Inventory.Truncated,
		},
		Detection: Meta{
			Source:    in.Source,
			Version:   DetectorVersion,
			Timestamp: ts.UTC(),
			Checksum:  in.Inventory.Checksum,
		},
	}

	if top, ok := langdetect.Top(in.Ranking.Languages); ok {
		d.PrimaryLanguage = top.Value
		for _, c := range in.Ranking.Languages[1:] {
			if len(d.SecondaryLanguages) == maxSecondaryLanguages {
				break
			}
			d.SecondaryLanguages = append(d.SecondaryLanguages, c.Value)
		}
	}
	d.Frameworks = values(in.Ranking.Frameworks)
	d.PackageManagers = values(in.Ranking.PackageManagers)
	d.BuildTools = values(in.Ranking.BuildTools)
	return d
}

// Enrich attaches provider fields; the provider's default branch wins only
// when local history had none
func (d *Description) Enrich(e Enrichment) {
	copied := e
	d.Enrichment = &copied
	if d.DefaultBranch == "" && e.DefaultBranch != "" {
		d.DefaultBranch = e.DefaultBranch
	}
	if d.Description == "" && e.Description != "" {
		d.Description = e.Description
	}
}

func values(list []langdetect.Candidate) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Value)
	}
	return out
}
