package signals

import (
	"bufio"
	"fmt"
	"strings"
	"unicode/utf8"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	yaml "gopkg.in/yaml.v3"

	"repolens/internal/core/ruleset"
)

// parseFragment extracts a structured fragment plus dependency and artifact
// names from one important file. A parse error means the caller degrades the
// signal; text formats never fail
func parseFragment(imp ruleset.ImportantFile, raw string) (map[string]any, []string, []string, error) {
	switch imp.Format {
	case ruleset.FormatJSON:
		return parseJSONManifest(imp.Kind, raw)
	case ruleset.FormatTOML:
		return parseTOMLManifest(imp.Kind, raw)
	case ruleset.FormatYAML:
		return parseYAMLFile(imp.Kind, raw)
	case ruleset.FormatDockerfile:
		return parseDockerfile(raw)
	case ruleset.FormatText:
		return parseTextManifest(imp.Kind, raw)
	default:
		return nil, nil, nil, nil
	}
}

func parseJSONManifest(kind, raw string) (map[string]any, []string, []string, error) {
	if !gjson.Valid(raw) {
		return nil, nil, nil, fmt.Errorf("signals: invalid json manifest")
	}
	frag := map[string]any{}
	var deps, arts []string

	switch kind {
	case "manifest:package_json":
		if name := gjson.Get(raw, "name"); name.Exists() {
			frag["name"] = name.String()
			arts = append(arts, name.String())
		}
		if v := gjson.Get(raw, "version"); v.Exists() {
			frag["version"] = v.String()
		}
		for _, key := range []string{"dependencies", "devDependencies"} {
			gjson.Get(raw, key).ForEach(func(k, _ gjson.Result) bool {
				deps = append(deps, strings.ToLower(k.String()))
				return true
			})
		}
		if s := gjson.Get(raw, "scripts"); s.Exists() {
			var names []string
			s.ForEach(func(k, _ gjson.Result) bool {
				names = append(names, k.String())
				return true
			})
			frag["scripts"] = names
		}
	case "manifest:composer":
		if name := gjson.Get(raw, "name"); name.Exists() {
			frag["name"] = name.String()
			arts = append(arts, name.String())
		}
		gjson.Get(raw, "require").ForEach(func(k, _ gjson.Result) bool {
			key := strings.ToLower(k.String())
			if key != "php" {
				deps = append(deps, key)
			}
			return true
		})
	}
	return frag, deps, arts, nil
}

func parseTOMLManifest(kind, raw string) (map[string]any, []string, []string, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("signals: toml: %w", err)
	}
	frag := map[string]any{}
	var deps, arts []string

	switch kind {
	case "manifest:pyproject":
		if proj, ok := doc["project"].(map[string]any); ok {
			if name, ok := proj["name"].(string); ok {
				frag["name"] = name
				arts = append(arts, name)
			}
			if list, ok := proj["dependencies"].([]any); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						deps = append(deps, requirementName(s))
					}
				}
			}
		}
		if tool, ok := doc["tool"].(map[string]any); ok {
			if poetry, ok := tool["poetry"].(map[string]any); ok {
				frag["poetry"] = true
				if name, ok := poetry["name"].(string); ok && len(arts) == 0 {
					frag["name"] = name
					arts = append(arts, name)
				}
				if pd, ok := poetry["dependencies"].(map[string]any); ok {
					for k := range pd {
						if !strings.EqualFold(k, "python") {
							deps = append(deps, strings.ToLower(k))
						}
					}
				}
			}
		}
	case "manifest:cargo":
		if pkg, ok := doc["package"].(map[string]any); ok {
			if name, ok := pkg["name"].(string); ok {
				frag["name"] = name
				arts = append(arts, name)
			}
		}
		if dd, ok := doc["dependencies"].(map[string]any); ok {
			for k := range dd {
				deps = append(deps, strings.ToLower(k))
			}
		}
	case "manifest:pipfile":
		if dd, ok := doc["packages"].(map[string]any); ok {
			for k := range dd {
				deps = append(deps, strings.ToLower(k))
			}
		}
	}
	return frag, deps, arts, nil
}

func parseYAMLFile(kind, raw string) (map[string]any, []string, []string, error) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("signals: yaml: %w", err)
	}
	frag := map[string]any{}
	var deps, arts []string

	switch kind {
	case "docker:compose":
		if services, ok := doc["services"].(map[string]any); ok {
			var names []string
			for name := range services {
				names = append(names, name)
			}
			frag["services"] = names
		}
	case "manifest:pubspec":
		if name, ok := doc["name"].(string); ok {
			frag["name"] = name
			arts = append(arts, name)
		}
		if dd, ok := doc["dependencies"].(map[string]any); ok {
			for k := range dd {
				deps = append(deps, strings.ToLower(k))
			}
		}
	default:
		// CI configs: keep the workflow name when present
		if name, ok := doc["name"].(string); ok {
			frag["name"] = name
		}
	}
	return frag, deps, arts, nil
}

func parseDockerfile(raw string) (map[string]any, []string, []string, error) {
	var bases []string
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(strings.ToUpper(line), "FROM ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			bases = append(bases, fields[1])
		}
	}
	if len(bases) == 0 {
		return nil, nil, nil, nil
	}
	return map[string]any{"base_images": bases}, nil, nil, nil
}

func parseTextManifest(kind, raw string) (map[string]any, []string, []string, error) {
	var deps []string
	switch kind {
	case "manifest:requirements":
		sc := bufio.NewScanner(strings.NewReader(raw))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
				continue
			}
			if name := requirementName(line); name != "" {
				deps = append(deps, name)
			}
		}
	case "manifest:go_mod":
		deps = goModRequires(raw)
	case "manifest:gemfile":
		sc := bufio.NewScanner(strings.NewReader(raw))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if !strings.HasPrefix(line, "gem ") {
				continue
			}
			rest := strings.TrimSpace(strings.TrimPrefix(line, "gem "))
			rest = strings.Trim(rest, `"'`)
			if i := strings.IndexAny(rest, `"',`); i > 0 {
				rest = rest[:i]
			}
			if rest != "" {
				deps = append(deps, strings.ToLower(rest))
			}
		}
	case "manifest:pom", "manifest:gradle":
		// raw text is enough for the framework marker scan downstream
	}
	return nil, deps, nil, nil
}

// requirementName strips version constraints and extras from a pip-style
// requirement line
func requirementName(line string) string {
	line = strings.TrimSpace(line)
	for i, r := range line {
		switch r {
		case '=', '<', '>', '!', '~', '[', ';', ' ', '(', '#':
			return strings.ToLower(line[:i])
		}
	}
	return strings.ToLower(line)
}

// goModRequires pulls module paths out of a go.mod require section
func goModRequires(raw string) []string {
	var out []string
	inBlock := false
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "require ("):
			inBlock = true
		case inBlock && line == ")":
			inBlock = false
		case inBlock:
			fields := strings.Fields(line)
			if len(fields) >= 1 && strings.Contains(fields[0], "/") {
				out = append(out, fields[0])
			}
		case strings.HasPrefix(line, "require "):
			fields := strings.Fields(strings.TrimPrefix(line, "require "))
			if len(fields) >= 1 && strings.Contains(fields[0], "/") {
				out = append(out, fields[0])
			}
		}
	}
	return out
}

// firstParagraph returns the first non-heading paragraph of a README
func firstParagraph(raw string) string {
	var buf []string
	sc := bufio.NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if len(buf) > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "=") ||
			strings.HasPrefix(line, "![") || strings.HasPrefix(line, "[!") {
			continue
		}
		buf = append(buf, line)
	}
	out := strings.Join(buf, " ")
	if len(out) > 500 {
		cut := 500
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}
