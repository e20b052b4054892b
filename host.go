package resources

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
)

// Host supplies the locale preferences of the surrounding process.
type Host interface {
	// CurrentUICulture is used when a lookup does not name a locale
	CurrentUICulture() Locale
	// PreferredFallbackLocales returns the user's ordered fallback list, or nil
	PreferredFallbackLocales() []Locale
}

// StaticHost is a Host with fixed answers.
type StaticHost struct {
	Current   Locale
	Preferred []Locale
}

var _ Host = StaticHost{}

func (h StaticHost) CurrentUICulture() Locale {
	if h.Current == nil {
		return InvariantCulture()
	}
	return h.Current
}

func (h StaticHost) PreferredFallbackLocales() []Locale {
	if len(h.Preferred) == 0 {
		return nil
	}
	return append([]Locale(nil), h.Preferred...)
}

type localeEnv struct {
	Language []string `env:"LANGUAGE" envSeparator:":"`
	All      string   `env:"LC_ALL"`
	Messages string   `env:"LC_MESSAGES"`
	Lang     string   `env:"LANG"`
}

// EnvHost derives locale preferences from the POSIX environment: LC_ALL,
// LC_MESSAGES and LANG select the current culture, LANGUAGE lists the
// preferred fallbacks.
type EnvHost struct {
	current   Culture
	preferred []Locale
}

var _ Host = (*EnvHost)(nil)

// NewEnvHost reads the process environment, or environ when it is non-nil.
func NewEnvHost(environ map[string]string) (*EnvHost, error) {
	var cfg localeEnv
	opts := env.Options{Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("resources: parse locale environment: %w", err)
	}

	h := &EnvHost{}
	for _, candidate := range []string{cfg.All, cfg.Messages, cfg.Lang} {
		if name, ok := posixLocale(candidate); ok {
			h.current = Culture{name: name}
			break
		}
	}

	seen := make(map[string]struct{}, len(cfg.Language))
	for _, entry := range cfg.Language {
		name, ok := posixLocale(entry)
		if !ok || name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		h.preferred = append(h.preferred, Culture{name: name})
	}

	if h.current.IsInvariant() && cfg.All == "" && cfg.Messages == "" && cfg.Lang == "" && len(h.preferred) > 0 {
		h.current = h.preferred[0].(Culture)
	}
	return h, nil
}

func (h *EnvHost) CurrentUICulture() Locale {
	return h.current
}

func (h *EnvHost) PreferredFallbackLocales() []Locale {
	if len(h.preferred) == 0 {
		return nil
	}
	return append([]Locale(nil), h.preferred...)
}

// onceHost asks the wrapped host for its preferred list once and keeps the
// answer for the lifetime of the owning manager.
type onceHost struct {
	Host
	once      sync.Once
	preferred []Locale
}

func newOnceHost(h Host) *onceHost {
	return &onceHost{Host: h}
}

func (h *onceHost) CurrentUICulture() Locale {
	if h.Host == nil {
		return InvariantCulture()
	}
	return h.Host.CurrentUICulture()
}

func (h *onceHost) PreferredFallbackLocales() []Locale {
	h.once.Do(func() {
		if h.Host != nil {
			h.preferred = h.Host.PreferredFallbackLocales()
		}
	})
	return h.preferred
}
