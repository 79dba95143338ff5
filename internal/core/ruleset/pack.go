// Package ruleset loads and compiles the detection rule tables from the
// embedded rules.json. The compiled pack is immutable and shared by the
// scanner, signal extractor and detector
package ruleset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

//go:embed rules.json
var embedded []byte

// FileFormat tells the signal extractor how to read an important file
type FileFormat string

// Known file formats
const (
	FormatJSON       FileFormat = "json"
	FormatTOML       FileFormat = "toml"
	FormatYAML       FileFormat = "yaml"
	FormatText       FileFormat = "text"
	FormatDockerfile FileFormat = "dockerfile"
	FormatName       FileFormat = "name" // presence only, content never read
)

// ImportantFile maps a signal kind to the glob patterns that identify it
type ImportantFile struct {
	Kind     string     `json:"kind"`
	Patterns []string   `json:"patterns"`
	Format   FileFormat `json:"format"`
}

// ExtensionRule contributes language weight for a file extension
type ExtensionRule struct {
	Language string  `json:"language"`
	Weight   float64 `json:"weight"`
}

// ManifestRule contributes per-category weights for a manifest signal kind
type ManifestRule struct {
	Language       map[string]float64 `json:"language"`
	PackageManager map[string]float64 `json:"package_manager"`
	BuildTool      map[string]float64 `json:"build_tool"`
}

// FrameworkRule describes one framework marker set
type FrameworkRule struct {
	Value      string   `json:"value"`
	Language   string   `json:"language"`
	Weight     float64  `json:"weight"`
	Deps       []string `json:"deps,omitempty"`
	Files      []string `json:"files,omitempty"`
	Dirs       []string `json:"dirs,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
}

type rawCategory struct {
	Dirs       []string `json:"dirs,omitempty"`
	Files      []string `json:"files,omitempty"`
	Suffixes   []string `json:"suffixes,omitempty"`
	Prefixes   []string `json:"prefixes,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
}

type rawPack struct {
	Version      int                     `json:"version"`
	Meta         map[string]any          `json:"meta"`
	SkipDirs     []string                `json:"skip_dirs"`
	Categories   map[string]rawCategory  `json:"categories"`
	Important    []ImportantFile         `json:"important"`
	MaxReadBytes int64                   `json:"max_read_bytes"`
	Extensions   map[string]ExtensionRule `json:"extensions"`
	Manifests    map[string]ManifestRule `json:"manifests"`
	Frameworks   []FrameworkRule         `json:"frameworks"`
	CIPlatforms  map[string]string       `json:"ci_platforms"`
}

type compiledCategory struct {
	name       string
	dirs       map[string]struct{}
	dirPaths   []string // entries containing a slash, matched against the dir path
	files      map[string]struct{}
	suffixes   []string
	prefixes   []string
	extensions map[string]struct{}
}

// Pack is the compiled, immutable rule pack
type Pack struct {
	Version      int
	MaxReadBytes int64
	Important    []ImportantFile
	Extensions   map[string]ExtensionRule
	Manifests    map[string]ManifestRule
	Frameworks   []FrameworkRule
	CIPlatforms  map[string]string

	skipDirs map[string]struct{}
	// category precedence is fixed; first match wins
	cats []compiledCategory
}

// categoryOrder fixes match precedence: specific buckets before the
// catch-all config/source classification
var categoryOrder = []string{"docker", "ci", "infra", "test", "build", "doc", "config", "source"}

// Load parses and compiles the embedded rules.json
func Load() (*Pack, error) {
	var rp rawPack
	if err := json.Unmarshal(embedded, &rp); err != nil {
		return nil, fmt.Errorf("ruleset: parse rules.json: %w", err)
	}
	if rp.Version != 1 {
		return nil, fmt.Errorf("ruleset: unsupported rules.json version %d (want 1)", rp.Version)
	}

	p := &Pack{
		Version:      rp.Version,
		MaxReadBytes: rp.MaxReadBytes,
		Important:    rp.Important,
		Extensions:   rp.Extensions,
		Manifests:    rp.Manifests,
		Frameworks:   rp.Frameworks,
		CIPlatforms:  rp.CIPlatforms,
		skipDirs:     make(map[string]struct{}, len(rp.SkipDirs)),
	}
	if p.MaxReadBytes <= 0 {
		p.MaxReadBytes = 1 << 20
	}

	for _, d := range rp.SkipDirs {
		d = strings.TrimSpace(d)
		if d != "" {
			p.skipDirs[d] = struct{}{}
		}
	}

	// validate every glob up front so a bad table fails at startup, not mid-scan
	for _, imp := range rp.Important {
		if imp.Kind == "" {
			return nil, fmt.Errorf("ruleset: important entry with empty kind")
		}
		for _, pat := range imp.Patterns {
			if !doublestar.ValidatePattern(pat) {
				return nil, fmt.Errorf("ruleset: invalid pattern %q for %s", pat, imp.Kind)
			}
		}
	}

	for _, name := range categoryOrder {
		raw, ok := rp.Categories[name]
		if !ok {
			continue
		}
		c := compiledCategory{
			name:       name,
			dirs:       make(map[string]struct{}, len(raw.Dirs)),
			files:      make(map[string]struct{}, len(raw.Files)),
			suffixes:   raw.Suffixes,
			prefixes:   raw.Prefixes,
			extensions: make(map[string]struct{}, len(raw.Extensions)),
		}
		for _, d := range raw.Dirs {
			if strings.Contains(d, "/") {
				c.dirPaths = append(c.dirPaths, d)
				continue
			}
			c.dirs[d] = struct{}{}
		}
		for _, f := range raw.Files {
			c.files[f] = struct{}{}
		}
		for _, e := range raw.Extensions {
			c.extensions[strings.ToLower(e)] = struct{}{}
		}
		p.cats = append(p.cats, c)
	}

	return p, nil
}

// Must loads the pack or panics; intended for tests and one-shot tools
func Must() *Pack {
	p, err := Load()
	if err != nil {
		panic(err)
	}
	return p
}

// SkipDir reports whether a directory name is in the built-in skip set
func (p *Pack) SkipDir(name string) bool {
	_, ok := p.skipDirs[name]
	return ok
}

// Categorize assigns a category tag to a slash-separated relative path.
// Precedence is fixed (docker, ci, infra, test, build, doc, config, source);
// anything unmatched is "other"
func (p *Pack) Categorize(rel string) string {
	base := path.Base(rel)
	dir := path.Dir(rel)
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(rel), "."))
	parts := strings.Split(dir, "/")

	for _, c := range p.cats {
		if _, ok := c.files[base]; ok {
			return c.name
		}
		hit := false
		for _, seg := range parts {
			if _, ok := c.dirs[seg]; ok {
				hit = true
				break
			}
		}
		if !hit {
			for _, dp := range c.dirPaths {
				if dir == dp || strings.HasPrefix(dir+"/", dp+"/") || strings.Contains("/"+dir+"/", "/"+dp+"/") {
					hit = true
					break
				}
			}
		}
		if hit {
			return c.name
		}
		for _, s := range c.suffixes {
			if strings.HasSuffix(base, s) {
				hit = true
				break
			}
		}
		if !hit {
			for _, pre := range c.prefixes {
				if strings.HasPrefix(base, pre) {
					hit = true
					break
				}
			}
		}
		if !hit && ext != "" {
			_, hit = c.extensions[ext]
		}
		if hit {
			return c.name
		}
	}
	return "other"
}

// MatchImportant resolves the first important-file rule matching rel.
// Table order is significant and preserved
func (p *Pack) MatchImportant(rel string) (ImportantFile, bool) {
	for _, imp := range p.Important {
		for _, pat := range imp.Patterns {
			if ok, _ := doublestar.Match(pat, rel); ok {
				return imp, true
			}
		}
	}
	return ImportantFile{}, false
}
