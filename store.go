package resources

import (
	"go.uber.org/zap"
)

// StaticGroveler serves materialized resource sets from Translations, read
// only after construction. The invariant locale is stored under the "" key.
type StaticGroveler struct {
	translations Translations
	locales      []string
	logger       *zap.Logger
}

var _ Groveler = (*StaticGroveler)(nil)

// NewStaticGroveler builds an immutable snapshot from the given translations
func NewStaticGroveler(data Translations, opts ...GrovelerOption) *StaticGroveler {
	cfg := newGrovelerConfig(opts)
	translations := make(Translations, len(data))
	for locale, values := range data {
		if values == nil {
			continue
		}
		name, ok := canonicalLocale(locale)
		if !ok {
			cfg.logger.Warn("skipping invalid locale", zap.String("locale", locale))
			continue
		}
		translations[name] = values
	}
	translations = translations.Clone()

	return &StaticGroveler{
		translations: translations,
		locales:      translations.Locales(),
		logger:       cfg.logger,
	}
}

// NewStaticGrovelerFromLoader hydrates a StaticGroveler using the provided loader
func NewStaticGrovelerFromLoader(loader Loader, opts ...GrovelerOption) (*StaticGroveler, error) {
	if loader == nil {
		return NewStaticGroveler(nil, opts...), nil
	}

	translations, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return NewStaticGroveler(translations, opts...), nil
}

func (g *StaticGroveler) GrovelForResourceSet(locale Locale, existing map[string]*ResourceSet, tryParents, createIfNotExists bool) (*ResourceSet, error) {
	if set, ok := existing[locale.Name()]; ok {
		return set, nil
	}

	values, ok := g.translations[locale.Name()]
	if !ok {
		if tryParents && locale.IsInvariant() {
			return nil, missingFallback(locale, "static translations")
		}
		return nil, nil
	}
	if !createIfNotExists {
		return nil, nil
	}

	g.logger.Debug("static resources loaded", zap.String("locale", locale.Name()), zap.Int("count", len(values)))
	return NewStaticResourceSet(locale.Name(), values), nil
}

// Locales returns a slice with all locale names, "" standing for invariant
func (g *StaticGroveler) Locales() []string {
	if g == nil || len(g.locales) == 0 {
		return nil
	}
	out := make([]string, len(g.locales))
	copy(out, g.locales)
	return out
}
