package resources

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Manager resolves named resources for a locale by walking its fallback
// sequence over the resource sets a Groveler produces. Sets are cached per
// locale name for the lifetime of the manager or until ReleaseAllResources.
// A Manager is safe for concurrent use.
type Manager struct {
	baseName   string
	groveler   Groveler
	neutral    Locale
	ignoreCase bool
	locales    []Locale
	host       *onceHost
	cache      *setCache
	logger     *zap.Logger
}

var _ Lookup = (*Manager)(nil)

// NewManager builds a Manager from options, see Config.BuildManager.
func NewManager(opts ...Option) (*Manager, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return cfg.BuildManager()
}

// NewManagerWithGroveler is a shortcut for NewManager(WithGroveler(groveler), opts...).
func NewManagerWithGroveler(groveler Groveler, opts ...Option) (*Manager, error) {
	if groveler == nil {
		return nil, errors.New("resources: nil groveler")
	}
	return NewManager(append([]Option{WithGroveler(groveler)}, opts...)...)
}

// BaseName returns the resource base name the manager was built for.
func (m *Manager) BaseName() string {
	return m.baseName
}

// NeutralLocale returns the ultimate fallback locale.
func (m *Manager) NeutralLocale() Locale {
	if m.neutral == nil {
		return InvariantCulture()
	}
	return m.neutral
}

// IgnoreCase reports whether names are matched case-insensitively.
func (m *Manager) IgnoreCase() bool {
	return m.ignoreCase
}

// Fallbacks returns the fallback sequence lookups for locale walk.
func (m *Manager) Fallbacks(locale Locale) []string {
	return FallbackNames(FallbackSequence(locale, m.neutral, true, m.host))
}

func (m *Manager) requested(locale Locale) Locale {
	if locale == nil {
		locale = m.host.CurrentUICulture()
	}
	if locale == nil {
		return InvariantCulture()
	}
	return locale
}

// GetString returns the string stored under name for locale, the host's
// current UI culture when locale is nil. ok is false when no set along the
// fallback sequence holds the name.
func (m *Manager) GetString(name string, locale Locale) (string, bool, error) {
	value, ok, err := m.find(name, locale, true, true)
	if err != nil || !ok {
		return "", false, err
	}
	return value.(string), true, nil
}

// GetObject is GetString for any stored type. Streams come back as
// *io.SectionReader views bounded to the stored length.
func (m *Manager) GetObject(name string, locale Locale) (any, bool, error) {
	return m.find(name, locale, false, true)
}

// GetStream returns a stream resource. Any other stored type fails with
// ErrTypeMismatch.
func (m *Manager) GetStream(name string, locale Locale) (*io.SectionReader, bool, error) {
	value, ok, err := m.find(name, locale, false, true)
	if err != nil || !ok {
		return nil, false, err
	}
	stream, isStream := value.(*io.SectionReader)
	if !isStream {
		return nil, false, typeMismatch(name, TypeStream.String(), staticTypeCode(value))
	}
	return stream, true, nil
}

func (m *Manager) find(name string, locale Locale, wantString, retry bool) (any, bool, error) {
	locale = m.requested(locale)

	get := func(set *ResourceSet) (any, bool, error) {
		if wantString {
			str, ok, err := set.GetString(name, m.ignoreCase)
			return str, ok, err
		}
		return set.GetObject(name, m.ignoreCase)
	}

	if set := m.cache.fast(locale.Name()); set != nil {
		value, ok, err := get(set)
		switch {
		case err == nil && ok:
			return value, true, nil
		case err != nil && !errors.Is(err, ErrClosed):
			return nil, false, err
		}
	}

	var last *ResourceSet
	for candidate := range FallbackSequence(locale, m.neutral, true, m.host) {
		set, err := m.resourceSet(candidate, true, true)
		if err != nil {
			return nil, false, err
		}
		if set == nil {
			break
		}
		if set == last {
			continue
		}
		value, ok, err := get(set)
		if err != nil {
			if retry && errors.Is(err, ErrClosed) {
				// released while we were walking
				return m.find(name, locale, wantString, false)
			}
			return nil, false, err
		}
		if ok {
			m.cache.remember(candidate.Name(), set)
			return value, true, nil
		}
		last = set
	}

	m.logger.Debug("resource not found",
		zap.String("base", m.baseName),
		zap.String("name", name),
		zap.Stringer("locale", localeStringer{locale}),
	)
	return nil, false, nil
}

// GetResourceSet returns the set for locale. With createIfNotExists false only
// already loaded sets are returned. With tryParents the fallback sequence is
// walked until a container is found, and a missing invariant container fails
// with ErrMissingUltimateFallback.
func (m *Manager) GetResourceSet(locale Locale, createIfNotExists, tryParents bool) (*ResourceSet, error) {
	locale = m.requested(locale)
	if set := m.cache.get(locale.Name()); set != nil {
		return set, nil
	}
	return m.resourceSet(locale, createIfNotExists, tryParents)
}

// resourceSet walks from requested until a set is cached or a groveler
// produces one. The set found is registered under every locale between
// requested and the one that supplied it, so later walks stop early.
func (m *Manager) resourceSet(requested Locale, createIfNotExists, tryParents bool) (*ResourceSet, error) {
	if set := m.cache.get(requested.Name()); set != nil {
		return set, nil
	}

	var (
		set   *ResourceSet
		found Locale
	)
	for candidate := range FallbackSequence(requested, m.neutral, tryParents, m.host) {
		if cached := m.cache.get(candidate.Name()); cached != nil {
			set, found = cached, candidate
			break
		}
		grovelled, err := m.groveler.GrovelForResourceSet(candidate, m.cache.snapshot(), tryParents, createIfNotExists)
		if err != nil {
			return nil, err
		}
		if grovelled != nil {
			set, found = grovelled, candidate
			break
		}
	}
	if set == nil {
		return nil, nil
	}

	for candidate := range FallbackSequence(requested, m.neutral, tryParents, m.host) {
		set = m.cache.put(candidate.Name(), set)
		if sameLocale(candidate, found) {
			break
		}
	}
	m.logger.Debug("resource set resolved",
		zap.String("base", m.baseName),
		zap.Stringer("requested", localeStringer{requested}),
		zap.Stringer("found", localeStringer{found}),
	)
	return set, nil
}

// Preload resolves the sets of locales concurrently so the first lookups do
// not pay for container parsing. Without arguments the configured locales
// are loaded.
func (m *Manager) Preload(ctx context.Context, locales ...Locale) error {
	if len(locales) == 0 {
		locales = m.locales
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, locale := range locales {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := m.GetResourceSet(locale, true, true); err != nil {
				return fmt.Errorf("resources: preload %s: %w", localeStringer{m.requested(locale)}, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Locales returns the locales registered with WithLocales.
func (m *Manager) Locales() []Locale {
	return append([]Locale(nil), m.locales...)
}

// CachedLocales returns the number of locale names with a registered set.
func (m *Manager) CachedLocales() int {
	return m.cache.len()
}

// ReleaseAllResources drops every cached set and closes its container. Sets
// handed out earlier fail with ErrClosed afterwards; the manager itself stays
// usable and reloads on demand.
func (m *Manager) ReleaseAllResources() error {
	m.logger.Debug("releasing resource sets", zap.String("base", m.baseName))
	return m.cache.releaseAll()
}

type localeStringer struct {
	Locale
}

func (l localeStringer) String() string {
	if l.Locale == nil || l.Locale.IsInvariant() {
		return "<invariant>"
	}
	return l.Locale.Name()
}
