package resources

import (
	"fmt"

	"golang.org/x/text/language"
)

// Culture is a Locale backed by a BCP 47 tag. Parents follow the CLDR parent
// relation from golang.org/x/text, so "en-AU" falls back to "en-001" and then "en".
// The zero value is the invariant culture.
type Culture struct {
	name string
}

var _ Locale = Culture{}

// InvariantCulture returns the culture-neutral root.
func InvariantCulture() Culture {
	return Culture{}
}

// NewCulture canonicalizes name into a Culture. "", "und" and "iv" name the
// invariant culture.
func NewCulture(name string) (Culture, error) {
	canonical, ok := canonicalLocale(name)
	if !ok {
		return Culture{}, fmt.Errorf("resources: invalid culture name %q", name)
	}
	return Culture{name: canonical}, nil
}

// MustCulture is NewCulture that panics on invalid names.
func MustCulture(name string) Culture {
	c, err := NewCulture(name)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Culture) Name() string {
	return c.name
}

func (c Culture) Parent() Locale {
	return Culture{name: localeParentTag(c.name)}
}

func (c Culture) IsInvariant() bool {
	return c.name == ""
}

// Tag returns the language tag, language.Und for the invariant culture or
// names x/text cannot parse.
func (c Culture) Tag() language.Tag {
	if c.name == "" {
		return language.Und
	}
	tag, err := language.Parse(c.name)
	if err != nil {
		return language.Und
	}
	return tag
}

func (c Culture) String() string {
	if c.name == "" {
		return "<invariant>"
	}
	return c.name
}

// sameLocale compares locales by name, the identity used by every cache.
func sameLocale(a, b Locale) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name() == b.Name()
}
