package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Built-in template ids.
const (
	Planner   = "planner"
	Aggregate = "aggregate"
	Validate  = "validate"
	Instruct  = "instruct"
)

//go:embed planner.md
var plannerTemplate string

//go:embed aggregate.md
var aggregateTemplate string

//go:embed validate.md
var validateTemplate string

//go:embed instruct.md
var instructTemplate string

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Filler renders a named template with the given parameters.
type Filler interface {
	Fill(id string, params map[string]string) (string, error)
}

// Library holds prompt templates by id. Templates use {{name}} placeholders.
type Library struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewLibrary returns a library seeded with the built-in templates.
func NewLibrary() *Library {
	return &Library{templates: map[string]string{
		Planner:   plannerTemplate,
		Aggregate: aggregateTemplate,
		Validate:  validateTemplate,
		Instruct:  instructTemplate,
	}}
}

// Set adds or replaces a template.
func (l *Library) Set(id, template string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[id] = template
}

// Template returns the raw template for id.
func (l *Library) Template(id string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, ok := l.templates[id]
	return t, ok
}

// IDs returns the template ids in sorted order.
func (l *Library) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.templates))
	for id := range l.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Placeholders returns the distinct placeholder names a template uses.
func (l *Library) Placeholders(id string) ([]string, error) {
	t, ok := l.Template(id)
	if !ok {
		return nil, fmt.Errorf("prompt '%s' not found", id)
	}
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(t, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names, nil
}

// Fill substitutes every placeholder in one pass. Parameter values are not
// rescanned, so text that happens to contain braces passes through as-is.
func (l *Library) Fill(id string, params map[string]string) (string, error) {
	t, ok := l.Template(id)
	if !ok {
		return "", fmt.Errorf("prompt '%s' not found", id)
	}

	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(t, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := params[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt '%s': no value for %s", id, strings.Join(missing, ", "))
	}
	return out, nil
}

// libraryFile is the on-disk YAML layout:
//
//	prompts:
//	  planner: |
//	    ...
type libraryFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// LoadYAML merges templates from a YAML file into the library, replacing
// any template with the same id.
func (l *Library) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read prompt library: %w", err)
	}

	var f libraryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse prompt library %s: %w", path, err)
	}
	if len(f.Prompts) == 0 {
		return fmt.Errorf("prompt library %s has no prompts", path)
	}
	for id, t := range f.Prompts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("prompt library %s: prompt '%s' is empty", path, id)
		}
		l.Set(id, t)
	}
	return nil
}
