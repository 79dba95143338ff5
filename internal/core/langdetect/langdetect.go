// Package langdetect aggregates weighted detection candidates for language,
// framework, package manager and build tool from the inventory and signal
// set. Output ranking is deterministic: cumulative weight descending, then
// first-seen order
package langdetect

import (
	"path"
	"sort"
	"strings"

	"repolens/internal/core/ruleset"
	"repolens/internal/core/scan"
	"repolens/internal/core/signals"
)

// Candidate categories
const (
	CategoryLanguage       = "language"
	CategoryFramework      = "framework"
	CategoryPackageManager = "package_manager"
	CategoryBuildTool      = "build_tool"
)

// Candidate is one scored hypothesis. Seq is the first-seen order and the
// only tie-break after weight
type Candidate struct {
	Category string  `json:"category"`
	Value    string  `json:"value"`
	Weight   float64 `json:"weight"`
	Seq      int     `json:"-"`
}

// Ranking holds the ranked candidate lists per category
type Ranking struct {
	Languages       []Candidate `json:"languages"`
	Frameworks      []Candidate `json:"frameworks"`
	PackageManagers []Candidate `json:"package_managers"`
	BuildTools      []Candidate `json:"build_tools"`
}

// Top returns the best candidate for a list, or false when empty
func Top(list []Candidate) (Candidate, bool) {
	if len(list) == 0 {
		return Candidate{}, false
	}
	return list[0], true
}

type accumulator struct {
	byKey map[string]*Candidate
	order []*Candidate
	next  int
}

func newAccumulator() *accumulator {
	return &accumulator{byKey: make(map[string]*Candidate, 16)}
}

func (a *accumulator) add(category, value string, weight float64) {
	if value == "" || weight <= 0 {
		return
	}
	key := category + "\x00" + value
	if c, ok := a.byKey[key]; ok {
		c.Weight += weight
		return
	}
	c := &Candidate{Category: category, Value: value, Weight: weight, Seq: a.next}
	a.next++
	a.byKey[key] = c
	a.order = append(a.order, c)
}

func (a *accumulator) ranked(category string) []Candidate {
	var out []Candidate
	for _, c := range a.order {
		if c.Category == category {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Seq < out[j].Seq
	})
	return out
}

// Detect runs the rule tables over the inventory and signal set.
// Contribution order is fixed (inventory entries, then signals, then
// framework rules) so identical input always yields identical ranking
func Detect(inv *scan.Inventory, set *signals.Set, pack *ruleset.Pack) *Ranking {
	acc := newAccumulator()

	// 1. extension weights, walk order
	for _, e := range inv.Entries {
		if rule, ok := pack.Extensions[e.Ext]; ok {
			acc.add(CategoryLanguage, rule.Language, rule.Weight)
		}
	}

	// 2. manifest weights, signal order. Presence of a degraded manifest
	// still counts; only its content is gone
	for _, sig := range set.Signals {
		rule, ok := pack.Manifests[sig.Kind]
		if !ok {
			continue
		}
		for _, value := range sortedKeys(rule.Language) {
			acc.add(CategoryLanguage, value, rule.Language[value])
		}
		for _, value := range sortedKeys(rule.PackageManager) {
			acc.add(CategoryPackageManager, value, rule.PackageManager[value])
		}
		for _, value := range sortedKeys(rule.BuildTool) {
			acc.add(CategoryBuildTool, value, rule.BuildTool[value])
		}
	}

	// 3. framework markers, table order
	idx := indexInventory(inv)
	for _, fr := range pack.Frameworks {
		if frameworkMatches(fr, set, idx) {
			acc.add(CategoryFramework, fr.Value, fr.Weight)
			if fr.Language != "" {
				// a framework hit corroborates its host language
				acc.add(CategoryLanguage, fr.Language, fr.Weight/4)
			}
		}
	}

	return &Ranking{
		Languages:       acc.ranked(CategoryLanguage),
		Frameworks:      acc.ranked(CategoryFramework),
		PackageManagers: acc.ranked(CategoryPackageManager),
		BuildTools:      acc.ranked(CategoryBuildTool),
	}
}

type inventoryIndex struct {
	bases map[string]struct{}
	dirs  map[string]struct{}
	exts  map[string]struct{}
}

func indexInventory(inv *scan.Inventory) inventoryIndex {
	idx := inventoryIndex{
		bases: make(map[string]struct{}, len(inv.Entries)),
		dirs:  make(map[string]struct{}, 16),
		exts:  make(map[string]struct{}, 16),
	}
	for _, e := range inv.Entries {
		idx.bases[path.Base(e.Path)] = struct{}{}
		if e.Ext != "" {
			idx.exts[e.Ext] = struct{}{}
		}
		dir := path.Dir(e.Path)
		for dir != "." && dir != "/" {
			idx.dirs[dir] = struct{}{}
			dir = path.Dir(dir)
		}
	}
	return idx
}

func frameworkMatches(fr ruleset.FrameworkRule, set *signals.Set, idx inventoryIndex) bool {
	for _, want := range fr.Deps {
		for _, dep := range set.Dependencies {
			if depMatches(dep, want) {
				return true
			}
		}
	}
	for _, f := range fr.Files {
		if _, ok := idx.bases[f]; ok {
			return true
		}
	}
	for _, d := range fr.Dirs {
		if _, ok := idx.dirs[d]; ok {
			return true
		}
	}
	for _, e := range fr.Extensions {
		if _, ok := idx.exts[e]; ok {
			return true
		}
	}
	return false
}

// depMatches compares a dependency name against a marker, tolerating
// versioned module path suffixes like /v5
func depMatches(dep, want string) bool {
	if strings.EqualFold(dep, want) {
		return true
	}
	return strings.HasPrefix(strings.ToLower(dep), strings.ToLower(want)+"/")
}

func sortedKeys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
