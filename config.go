package resources

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every variable LoadConfig reads.
const EnvPrefix = "RESOURCES_"

// Config captures manager setup. The exported scalar fields can be filled
// from the environment by LoadConfig.
type Config struct {
	BaseName         string   `env:"BASE_NAME" envDefault:"Strings"`
	Dir              string   `env:"DIR"`
	NeutralLocale    string   `env:"NEUTRAL_LOCALE"`
	Locales          []string `env:"LOCALES" envSeparator:","`
	IgnoreCase       bool     `env:"IGNORE_CASE"`
	MemoryMap        bool     `env:"MMAP"`
	FallbackLocation string   `env:"FALLBACK_LOCATION" envDefault:"main"`

	FS       fs.FS
	Loader   Loader
	Groveler Groveler
	Host     Host
	Hooks    []LookupHook
	Logger   *zap.Logger

	registry *TypeRegistry
}

// Option mutates Config during construction
type Option func(*Config) error

// NewConfig builds Config via supplied options
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		BaseName:         "Strings",
		FallbackLocation: MainPackage.String(),
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	cfg.normalizeLocales()
	return cfg, nil
}

// LoadConfig reads RESOURCES_* variables into a Config after loading the
// given .env files. Without files a .env in the working directory is loaded
// when present. Options apply on top of the environment.
func LoadConfig(envFiles []string, opts ...Option) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("resources: load env files: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("resources: load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("resources: parse environment: %w", err)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	cfg.normalizeLocales()
	return cfg, nil
}

// WithBaseName sets the container base name, "Strings" by default.
func WithBaseName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return errors.New("resources: empty base name")
		}
		c.BaseName = name
		return nil
	}
}

// WithDir reads containers from a directory on disk.
func WithDir(dir string) Option {
	return func(c *Config) error {
		c.Dir = dir
		return nil
	}
}

// WithFS reads containers from a packaged module, see FSGroveler.
func WithFS(fsys fs.FS) Option {
	return func(c *Config) error {
		c.FS = fsys
		return nil
	}
}

// WithLoader serves resources from loaded source files instead of containers.
func WithLoader(loader Loader) Option {
	return func(c *Config) error {
		c.Loader = loader
		return nil
	}
}

// WithGroveler replaces the built-in container lookup.
func WithGroveler(groveler Groveler) Option {
	return func(c *Config) error {
		c.Groveler = groveler
		return nil
	}
}

// WithNeutralLocale names the locale whose resources live in the invariant container.
func WithNeutralLocale(locale string) Option {
	return func(c *Config) error {
		if _, ok := canonicalLocale(locale); !ok {
			return fmt.Errorf("resources: invalid neutral locale %q", locale)
		}
		c.NeutralLocale = locale
		return nil
	}
}

// WithLocales registers locales Preload resolves when called without arguments.
func WithLocales(locales ...string) Option {
	return func(c *Config) error {
		c.Locales = append(c.Locales, locales...)
		return nil
	}
}

func WithIgnoreCase(ignore bool) Option {
	return func(c *Config) error {
		c.IgnoreCase = ignore
		return nil
	}
}

// WithMemoryMap maps container files into memory instead of reading them.
func WithMemoryMap(enabled bool) Option {
	return func(c *Config) error {
		c.MemoryMap = enabled
		return nil
	}
}

// WithUltimateFallback sets where a packaged module keeps invariant resources.
func WithUltimateFallback(location FallbackLocation) Option {
	return func(c *Config) error {
		c.FallbackLocation = location.String()
		return nil
	}
}

func WithHost(host Host) Option {
	return func(c *Config) error {
		c.Host = host
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

func WithLookupHooks(hooks ...LookupHook) Option {
	return func(c *Config) error {
		for _, hook := range hooks {
			if hook == nil {
				continue
			}
			c.Hooks = append(c.Hooks, hook)
		}
		return nil
	}
}

// WithTypeDecoder decodes user typed resources named typeName with dec. It
// applies to the built-in grovelers.
func WithTypeDecoder(typeName string, dec TypeDecoder) Option {
	return func(c *Config) error {
		if typeName == "" || dec == nil {
			return errors.New("resources: type decoder needs a name and a function")
		}
		if c.registry == nil {
			c.registry = NewTypeRegistry()
		}
		c.registry.Register(typeName, dec)
		return nil
	}
}

// BuildManager wires a Manager. The groveler is, in order of preference, the
// configured Groveler, a StaticGroveler over Loader, an FSGroveler over FS,
// or a FileGroveler over Dir.
func (cfg *Config) BuildManager() (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("resources: nil config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var neutral Locale
	if cfg.NeutralLocale != "" {
		culture, err := NewCulture(cfg.NeutralLocale)
		if err != nil {
			return nil, err
		}
		if !culture.IsInvariant() {
			neutral = culture
		}
	}

	location, err := ParseFallbackLocation(cfg.FallbackLocation)
	if err != nil {
		return nil, err
	}

	groveler, err := cfg.groveler(logger, neutral, location)
	if err != nil {
		return nil, err
	}

	host := cfg.Host
	if host == nil {
		envHost, err := NewEnvHost(nil)
		if err != nil {
			return nil, err
		}
		host = envHost
	}

	locales := make([]Locale, 0, len(cfg.Locales))
	for _, name := range cfg.Locales {
		locales = append(locales, Culture{name: name})
	}

	return &Manager{
		baseName:   cfg.BaseName,
		groveler:   groveler,
		neutral:    neutral,
		ignoreCase: cfg.IgnoreCase,
		locales:    locales,
		host:       newOnceHost(host),
		cache:      newSetCache(logger),
		logger:     logger,
	}, nil
}

// BuildLookup wraps BuildManager with the configured hooks.
func (cfg *Config) BuildLookup() (Lookup, *Manager, error) {
	m, err := cfg.BuildManager()
	if err != nil {
		return nil, nil, err
	}
	return WrapLookupWithHooks(m, cfg.Hooks...), m, nil
}

func (cfg *Config) groveler(logger *zap.Logger, neutral Locale, location FallbackLocation) (Groveler, error) {
	if cfg.Groveler != nil {
		return cfg.Groveler, nil
	}

	opts := []GrovelerOption{
		WithGrovelerLogger(logger),
		WithGrovelerTypeRegistry(cfg.registry),
	}

	switch {
	case cfg.Loader != nil:
		return NewStaticGrovelerFromLoader(cfg.Loader, opts...)
	case cfg.FS != nil:
		opts = append(opts, WithFallbackLocation(location, neutral))
		return NewFSGroveler(cfg.FS, cfg.BaseName, opts...), nil
	default:
		opts = append(opts, WithFileSystem(OSFileSystem{Mapped: cfg.MemoryMap}))
		return NewFileGroveler(cfg.BaseName, cfg.Dir, opts...), nil
	}
}

func (cfg *Config) normalizeLocales() {
	cfg.Locales = normalizeLocales(cfg.Locales)
}
