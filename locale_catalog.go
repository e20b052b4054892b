package resources

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"gopkg.in/yaml.v3"
)

// CultureDefinition customizes one culture of a CultureCatalog.
type CultureDefinition struct {
	// Parent replaces the CLDR parent; "" keeps it, "invariant" forces the root
	Parent      string `json:"parent" yaml:"parent"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// CultureCatalog is an immutable set of cultures whose parents can be
// overridden, e.g. to send "pt-BR" straight to "pt" or to give a private
// culture a real parent. Cultures it returns are interned.
type CultureCatalog struct {
	cultures map[string]*catalogCulture
	names    []string
}

type catalogCulture struct {
	catalog     *CultureCatalog
	name        string
	parent      string
	override    bool
	displayName string
}

var _ Locale = (*catalogCulture)(nil)

func (c *catalogCulture) Name() string {
	return c.name
}

func (c *catalogCulture) Parent() Locale {
	if c.override {
		return c.catalog.lookup(c.parent)
	}
	return c.catalog.lookup(localeParentTag(c.name))
}

func (c *catalogCulture) IsInvariant() bool {
	return c.name == ""
}

func (c *catalogCulture) String() string {
	return localeStringer{c}.String()
}

// NewCultureCatalog validates definitions: names must be valid locales and
// every parent chain must reach the invariant culture.
func NewCultureCatalog(definitions map[string]CultureDefinition) (*CultureCatalog, error) {
	c := &CultureCatalog{cultures: make(map[string]*catalogCulture, len(definitions)+1)}
	c.cultures[""] = &catalogCulture{catalog: c}

	for original, definition := range definitions {
		name, ok := canonicalLocale(original)
		if !ok || name == "" {
			return nil, fmt.Errorf("culture catalog: invalid culture %q", original)
		}
		if _, exists := c.cultures[name]; exists {
			return nil, fmt.Errorf("culture catalog: duplicate culture %q", name)
		}
		entry := &catalogCulture{catalog: c, name: name, displayName: definition.DisplayName}
		if definition.Parent != "" {
			parent, ok := canonicalLocale(definition.Parent)
			if !ok {
				return nil, fmt.Errorf("culture catalog: %q has invalid parent %q", name, definition.Parent)
			}
			entry.parent, entry.override = parent, true
		}
		c.cultures[name] = entry
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)

	for _, name := range c.names {
		if err := c.checkChain(name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *CultureCatalog) checkChain(name string) error {
	seen := map[string]struct{}{}
	var current Locale = c.cultures[name]
	for !current.IsInvariant() {
		if _, loop := seen[current.Name()]; loop {
			return fmt.Errorf("culture catalog: parent cycle through %q", current.Name())
		}
		seen[current.Name()] = struct{}{}
		current = current.Parent()
	}
	return nil
}

// LoadCultureCatalog reads definitions from a JSON or YAML file keyed by culture name.
func LoadCultureCatalog(path string) (*CultureCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("culture catalog: read %s: %w", path, err)
	}

	var definitions map[string]CultureDefinition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &definitions)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &definitions)
	default:
		return nil, fmt.Errorf("culture catalog: unsupported extension %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("culture catalog: decode %s: %w", path, err)
	}
	return NewCultureCatalog(definitions)
}

func (c *CultureCatalog) lookup(name string) Locale {
	if entry, ok := c.cultures[name]; ok {
		return entry
	}
	return &catalogCulture{catalog: c, name: name}
}

// Culture returns the interned culture for name. Names outside the catalog
// still resolve, with CLDR parents leading back into it.
func (c *CultureCatalog) Culture(name string) (Locale, error) {
	canonical, ok := canonicalLocale(name)
	if !ok {
		return nil, fmt.Errorf("culture catalog: invalid culture %q", name)
	}
	return c.lookup(canonical), nil
}

// Has reports whether the culture was defined in the catalog.
func (c *CultureCatalog) Has(name string) bool {
	canonical, ok := canonicalLocale(name)
	if !ok || canonical == "" {
		return false
	}
	_, exists := c.cultures[canonical]
	return exists
}

// Names returns every defined culture, sorted alphabetically.
func (c *CultureCatalog) Names() []string {
	if len(c.names) == 0 {
		return nil
	}
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// DisplayName returns the configured display name of a culture, or its name
// in the language of in as known to CLDR.
func (c *CultureCatalog) DisplayName(name string, in language.Tag) string {
	canonical, ok := canonicalLocale(name)
	if !ok {
		return ""
	}
	if canonical == "" {
		return "Invariant"
	}
	if entry, exists := c.cultures[canonical]; exists && entry.displayName != "" {
		return entry.displayName
	}
	tag, err := language.Parse(canonical)
	if err != nil {
		return canonical
	}
	if namer := display.Tags(in); namer != nil {
		if value := namer.Name(tag); value != "" {
			return value
		}
	}
	return canonical
}
