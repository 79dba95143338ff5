// Package classify combines ranked candidates, presence flags and directory
// heuristics into a (project type, domain, confidence) triple.
//
// The confidence function is additive over non-negative named weights:
// corroborating evidence can only add terms, so adding a corroborating
// signal never lowers confidence, and contradicting-only evidence never
// raises it
package classify

import (
	"strings"

	"repolens/internal/core/langdetect"
	"repolens/internal/core/scan"
	"repolens/internal/core/signals"
)

// Project types
const (
	TypeApplication  = "application"
	TypeLibrary      = "library"
	TypeCLI          = "cli"
	TypeMicroservice = "microservice"
	TypeDataScience  = "data_science"
	TypeIaC          = "iac"
	TypeUnknown      = "unknown"
)

// Domains
const (
	DomainWeb    = "web"
	DomainML     = "ml"
	DomainDevOps = "devops"
	DomainOther  = "other"
)

// Named scoring weights. Every term is non-negative; confidence is their
// clamped sum
const (
	weightLanguage     = 0.35 // scaled by the top language's cumulative weight, capped at 1
	weightManifest     = 0.25 // at least one recognized manifest signal
	weightFramework    = 0.15 // at least one framework candidate
	weightAgreement    = 0.15 // top framework's host language agrees with the top language
	weightPresence     = 0.05 // per presence flag (tests, docs, ci, docker, iac)
	minimumSignalScore = 0.15 // below this the result is an explicit unknown at confidence 0
)

// Result is the classification outcome
type Result struct {
	ProjectType string  `json:"project_type"`
	Domain      string  `json:"domain"`
	Confidence  float64 `json:"confidence"`
}

var webFrameworks = map[string]struct{}{
	"django": {}, "flask": {}, "fastapi": {}, "react": {}, "nextjs": {},
	"vue": {}, "angular": {}, "express": {}, "svelte": {}, "rails": {},
	"spring": {}, "laravel": {}, "gin": {}, "chi": {}, "echo": {},
	"actix": {}, "axum": {}, "aspnet": {}, "phoenix": {},
}

var dataScienceFrameworks = map[string]struct{}{
	"jupyter": {}, "pytorch": {}, "tensorflow": {}, "scikit-learn": {},
}

// Classify resolves the project type, domain and confidence for one
// repository. An empty or unrecognizable tree yields unknown at exactly 0
func Classify(inv *scan.Inventory, set *signals.Set, ranking *langdetect.Ranking) Result {
	score := confidence(set, ranking)
	if score < minimumSignalScore {
		return Result{ProjectType: TypeUnknown, Domain: DomainOther, Confidence: 0}
	}

	topLang, _ := langdetect.Top(ranking.Languages)
	topFw, hasFw := langdetect.Top(ranking.Frameworks)

	ptype, domain := decide(inv, set, topLang.Value, topFw.Value, hasFw, ranking)
	return Result{ProjectType: ptype, Domain: domain, Confidence: score}
}

// confidence is the documented scoring function. It only ever adds
// non-negative terms
func confidence(set *signals.Set, ranking *langdetect.Ranking) float64 {
	score := 0.0

	if top, ok := langdetect.Top(ranking.Languages); ok {
		w := top.Weight
		if w > 1 {
			w = 1
		}
		score += weightLanguage * w
	}
	if hasManifestSignal(set) {
		score += weightManifest
	}
	if topFw, ok := langdetect.Top(ranking.Frameworks); ok {
		score += weightFramework
		if topLang, lok := langdetect.Top(ranking.Languages); lok {
			if fwLanguage(topFw.Value) == topLang.Value {
				score += weightAgreement
			}
		}
	}
	for _, flag := range []bool{
		set.Flags.HasTests, set.Flags.HasDocs, set.Flags.HasCI,
		set.Flags.HasDocker, set.Flags.HasIaC,
	} {
		if flag {
			score += weightPresence
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

func decide(inv *scan.Inventory, set *signals.Set, topLang, topFw string, hasFw bool, ranking *langdetect.Ranking) (string, string) {
	if _, ds := dataScienceFrameworks[topFw]; ds || hasNotebooks(inv) {
		return TypeDataScience, DomainML
	}
	// any ranked data-science framework counts even when a web framework
	// outranks it slightly
	for _, c := range ranking.Frameworks {
		if _, ok := dataScienceFrameworks[c.Value]; ok {
			return TypeDataScience, DomainML
		}
	}

	infraHeavy := set.Flags.HasIaC && inv.Counts["source"] <= inv.Counts["infra"]
	if topFw == "terraform" || infraHeavy {
		return TypeIaC, DomainDevOps
	}

	_, web := webFrameworks[topFw]
	if web && set.Flags.HasDocker {
		return TypeMicroservice, DomainWeb
	}
	if web {
		return TypeApplication, DomainWeb
	}

	if looksLikeCLI(inv, set, topLang) {
		return TypeCLI, DomainOther
	}

	if hasFw || set.Flags.HasDocker {
		domain := DomainOther
		if set.Flags.HasDocker || set.Flags.HasIaC {
			domain = DomainDevOps
		}
		return TypeApplication, domain
	}

	if hasManifestSignal(set) {
		return TypeLibrary, DomainOther
	}
	return TypeApplication, DomainOther
}

func hasManifestSignal(set *signals.Set) bool {
	for _, sig := range set.Signals {
		if strings.HasPrefix(sig.Kind, "manifest:") {
			return true
		}
	}
	return false
}

func hasNotebooks(inv *scan.Inventory) bool {
	for _, e := range inv.Entries {
		if e.Ext == "ipynb" {
			return true
		}
	}
	return false
}

// looksLikeCLI uses directory naming plus dependency markers
func looksLikeCLI(inv *scan.Inventory, set *signals.Set, topLang string) bool {
	for _, dep := range set.Dependencies {
		switch {
		case strings.HasPrefix(dep, "github.com/spf13/cobra"),
			strings.HasPrefix(dep, "github.com/urfave/cli"),
			dep == "click", dep == "typer", dep == "clap", dep == "commander":
			return true
		}
	}
	if topLang == "go" {
		for _, e := range inv.Entries {
			if strings.HasPrefix(e.Path, "cmd/") {
				return true
			}
		}
	}
	return false
}

// fwLanguage resolves the host language a framework corroborates
func fwLanguage(fw string) string {
	hosts := map[string]string{
		"django": "python", "flask": "python", "fastapi": "python",
		"pytest": "python", "jupyter": "python", "pytorch": "python",
		"tensorflow": "python", "scikit-learn": "python",
		"react": "javascript", "nextjs": "javascript", "vue": "javascript",
		"express": "javascript", "svelte": "javascript",
		"angular": "typescript",
		"gin": "go", "chi": "go", "echo": "go", "cobra": "go",
		"rails": "ruby", "spring": "java", "laravel": "php",
		"actix": "rust", "axum": "rust", "aspnet": "csharp",
		"phoenix": "elixir", "flutter": "dart",
	}
	if lang, ok := hosts[fw]; ok {
		return lang
	}
	return ""
}
