// Package gitinfo inspects a repository's .git directory to list branches
// and infer a branch strategy. It reads HEAD, refs/heads and packed-refs
// directly; a missing or unreadable history is never an error, it resolves
// to the unknown strategy
package gitinfo

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Strategy is the closed branch-strategy set
type Strategy string

// Known strategies
const (
	StrategyTrunk      Strategy = "trunk"
	StrategyGitHubFlow Strategy = "github-flow"
	StrategyGitFlow    Strategy = "git-flow"
	StrategyUnknown    Strategy = "unknown"
)

// Info is the analysis result
type Info struct {
	DefaultBranch string   `json:"default_branch,omitempty"`
	Branches      []string `json:"branches,omitempty"`
	Strategy      Strategy `json:"strategy"`
}

// Analyze inspects root/.git. Absence of history yields Strategy unknown
// with no error so the rest of the pipeline proceeds
func Analyze(root string) Info {
	gitDir := filepath.Join(root, ".git")
	fi, err := os.Stat(gitDir)
	if err != nil || !fi.IsDir() {
		return Info{Strategy: StrategyUnknown}
	}

	info := Info{
		DefaultBranch: headBranch(gitDir),
		Branches:      branches(gitDir),
	}
	info.Strategy = classify(info.DefaultBranch, info.Branches)
	return info
}

// ClassifyBranches applies the strategy rules to an externally supplied
// branch list, e.g. one reported by a hosting provider
func ClassifyBranches(defaultBranch string, names []string) Strategy {
	return classify(defaultBranch, names)
}

func headBranch(gitDir string) string {
	raw, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(raw))
	const prefix = "ref: refs/heads/"
	if strings.HasPrefix(line, prefix) {
		return strings.TrimPrefix(line, prefix)
	}
	return "" // detached HEAD
}

func branches(gitDir string) []string {
	seen := make(map[string]struct{}, 8)

	headsDir := filepath.Join(gitDir, "refs", "heads")
	_ = filepath.WalkDir(headsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(headsDir, p)
		if relErr != nil {
			return nil
		}
		seen[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})

	if f, err := os.Open(filepath.Join(gitDir, "packed-refs")); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
				continue
			}
			fields := strings.Fields(line)
			if len(fields) != 2 {
				continue
			}
			if name, ok := strings.CutPrefix(fields[1], "refs/heads/"); ok {
				seen[name] = struct{}{}
			}
		}
		_ = f.Close()
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func classify(defaultBranch string, names []string) Strategy {
	if len(names) == 0 {
		return StrategyUnknown
	}

	var hasDevelop, hasRelease, hasHotfix, hasFeature bool
	for _, n := range names {
		switch {
		case n == "develop" || n == "dev":
			hasDevelop = true
		case strings.HasPrefix(n, "release/"):
			hasRelease = true
		case strings.HasPrefix(n, "hotfix/"):
			hasHotfix = true
		case strings.HasPrefix(n, "feature/") || strings.HasPrefix(n, "feat/"):
			hasFeature = true
		}
	}

	switch {
	case hasDevelop && (hasRelease || hasHotfix):
		return StrategyGitFlow
	case hasDevelop && hasFeature:
		return StrategyGitFlow
	case hasFeature:
		return StrategyGitHubFlow
	case len(names) <= 2 && longLived(defaultBranch):
		return StrategyTrunk
	default:
		return StrategyUnknown
	}
}

func longLived(name string) bool {
	switch name {
	case "main", "master", "trunk":
		return true
	}
	return false
}
