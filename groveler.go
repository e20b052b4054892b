package resources

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
)

// Groveler turns a locale into a resource set. It returns (nil, nil) when no
// container exists for the locale, and ErrMissingUltimateFallback when
// tryParents is set and the invariant locale has no container either.
// Implementations must be safe for concurrent use and must return the set in
// existing when the locale is already registered there.
type Groveler interface {
	GrovelForResourceSet(locale Locale, existing map[string]*ResourceSet, tryParents, createIfNotExists bool) (*ResourceSet, error)
}

// GrovelerFunc adapts a function to the Groveler interface.
type GrovelerFunc func(locale Locale, existing map[string]*ResourceSet, tryParents, createIfNotExists bool) (*ResourceSet, error)

func (fn GrovelerFunc) GrovelForResourceSet(locale Locale, existing map[string]*ResourceSet, tryParents, createIfNotExists bool) (*ResourceSet, error) {
	return fn(locale, existing, tryParents, createIfNotExists)
}

// FallbackLocation says where the invariant resources of a packaged module live.
type FallbackLocation int

const (
	// MainPackage keeps invariant resources next to the module root.
	MainPackage FallbackLocation = iota
	// Satellite keeps them in the neutral locale's satellite directory.
	Satellite
)

func (l FallbackLocation) String() string {
	switch l {
	case MainPackage:
		return "main"
	case Satellite:
		return "satellite"
	default:
		return fmt.Sprintf("FallbackLocation(%d)", int(l))
	}
}

// ParseFallbackLocation accepts "main" and "satellite".
func ParseFallbackLocation(value string) (FallbackLocation, error) {
	switch value {
	case "", "main":
		return MainPackage, nil
	case "satellite":
		return Satellite, nil
	default:
		return MainPackage, fmt.Errorf("resources: unknown fallback location %q", value)
	}
}

// ResourceFileName returns "<base>.resources" for the invariant locale and
// "<base>.<locale>.resources" otherwise.
func ResourceFileName(baseName string, locale Locale) string {
	if locale == nil || locale.IsInvariant() {
		return baseName + ".resources"
	}
	return baseName + "." + locale.Name() + ".resources"
}

// FileSystem is the slice of the OS the file groveler needs.
type FileSystem interface {
	Exists(path string) bool
	Open(path string) (Source, io.Closer, error)
}

// OSFileSystem reads containers from disk, memory mapped when Mapped is set.
type OSFileSystem struct {
	Mapped bool
}

func (OSFileSystem) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (o OSFileSystem) Open(path string) (Source, io.Closer, error) {
	if o.Mapped {
		return OpenMapped(path)
	}
	return OpenFile(path)
}

type grovelerConfig struct {
	logger   *zap.Logger
	registry *TypeRegistry
	files    FileSystem
	location FallbackLocation
	neutral  Locale
}

// GrovelerOption configures the built-in grovelers.
type GrovelerOption func(*grovelerConfig)

// WithGrovelerLogger logs probes at debug level.
func WithGrovelerLogger(logger *zap.Logger) GrovelerOption {
	return func(c *grovelerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithGrovelerTypeRegistry decodes user types through registry.
func WithGrovelerTypeRegistry(registry *TypeRegistry) GrovelerOption {
	return func(c *grovelerConfig) {
		c.registry = registry
	}
}

// WithFileSystem replaces the OS file system used by FileGroveler.
func WithFileSystem(files FileSystem) GrovelerOption {
	return func(c *grovelerConfig) {
		if files != nil {
			c.files = files
		}
	}
}

// WithFallbackLocation places invariant resources of an FSGroveler in the
// satellite directory of neutral.
func WithFallbackLocation(location FallbackLocation, neutral Locale) GrovelerOption {
	return func(c *grovelerConfig) {
		c.location = location
		c.neutral = neutral
	}
}

func newGrovelerConfig(opts []GrovelerOption) grovelerConfig {
	cfg := grovelerConfig{
		logger: zap.NewNop(),
		files:  OSFileSystem{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func missingFallback(locale Locale, where string) error {
	return &Error{
		Kind:   ErrMissingUltimateFallback,
		Op:     "grovel",
		Name:   locale.Name(),
		Offset: -1,
		Detail: "no container at " + where,
	}
}

// FileGroveler probes "<dir>/<base>[.<locale>].resources" files.
type FileGroveler struct {
	baseName string
	dir      string
	cfg      grovelerConfig
}

var _ Groveler = (*FileGroveler)(nil)

// NewFileGroveler probes dir, the working directory when dir is empty.
func NewFileGroveler(baseName, dir string, opts ...GrovelerOption) *FileGroveler {
	return &FileGroveler{baseName: baseName, dir: dir, cfg: newGrovelerConfig(opts)}
}

// Path returns the file probed for locale.
func (g *FileGroveler) Path(locale Locale) string {
	return filepath.Join(g.dir, ResourceFileName(g.baseName, locale))
}

func (g *FileGroveler) GrovelForResourceSet(locale Locale, existing map[string]*ResourceSet, tryParents, createIfNotExists bool) (*ResourceSet, error) {
	if set, ok := existing[locale.Name()]; ok {
		return set, nil
	}

	file := g.Path(locale)
	if !g.cfg.files.Exists(file) {
		g.cfg.logger.Debug("no resource file", zap.String("path", file))
		if tryParents && locale.IsInvariant() {
			return nil, missingFallback(locale, file)
		}
		return nil, nil
	}
	if !createIfNotExists {
		return nil, nil
	}

	src, closer, err := g.cfg.files.Open(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("resources: open %s: %w", file, err)
	}
	set, err := NewResourceSet(locale.Name(), src, WithReaderTypeRegistry(g.cfg.registry), withReaderCloser(closer))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("resources: %s: %w", file, err)
	}
	g.cfg.logger.Debug("resource file loaded", zap.String("path", file), zap.Int("count", set.Len()))
	return set, nil
}

// FSGroveler reads containers from a packaged module laid out as
//
//	<base>.resources                  invariant resources (MainPackage)
//	<locale>/<base>.<locale>.resources satellite resources
//
// Any fs.FS works, embed.FS included.
type FSGroveler struct {
	fsys     fs.FS
	baseName string
	cfg      grovelerConfig
}

var _ Groveler = (*FSGroveler)(nil)

// NewFSGroveler probes fsys for baseName containers.
func NewFSGroveler(fsys fs.FS, baseName string, opts ...GrovelerOption) *FSGroveler {
	return &FSGroveler{fsys: fsys, baseName: baseName, cfg: newGrovelerConfig(opts)}
}

// Path returns the fs.FS path probed for locale.
func (g *FSGroveler) Path(locale Locale) string {
	if locale.IsInvariant() {
		if g.cfg.location == Satellite && g.cfg.neutral != nil && !g.cfg.neutral.IsInvariant() {
			return path.Join(g.cfg.neutral.Name(), ResourceFileName(g.baseName, g.cfg.neutral))
		}
		return ResourceFileName(g.baseName, locale)
	}
	return path.Join(locale.Name(), ResourceFileName(g.baseName, locale))
}

func (g *FSGroveler) GrovelForResourceSet(locale Locale, existing map[string]*ResourceSet, tryParents, createIfNotExists bool) (*ResourceSet, error) {
	if set, ok := existing[locale.Name()]; ok {
		return set, nil
	}

	name := g.Path(locale)
	f, err := g.fsys.Open(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("resources: open %s: %w", name, err)
		}
		g.cfg.logger.Debug("no packaged resources", zap.String("path", name))
		if tryParents && locale.IsInvariant() {
			return nil, missingFallback(locale, name)
		}
		return nil, nil
	}
	if !createIfNotExists {
		f.Close()
		return nil, nil
	}

	src, closer, err := fsFileSource(f)
	if err != nil {
		return nil, fmt.Errorf("resources: read %s: %w", name, err)
	}
	set, err := NewResourceSet(locale.Name(), src, WithReaderTypeRegistry(g.cfg.registry), withReaderCloser(closer))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, fmt.Errorf("resources: %s: %w", name, err)
	}
	g.cfg.logger.Debug("packaged resources loaded", zap.String("path", name), zap.Int("count", set.Len()))
	return set, nil
}

// fsFileSource reads through ReadAt when the file supports it and buffers it otherwise.
func fsFileSource(f fs.File) (Source, io.Closer, error) {
	ra, isReaderAt := f.(io.ReaderAt)
	info, err := f.Stat()
	if isReaderAt && err == nil {
		return io.NewSectionReader(ra, 0, info.Size()), f, nil
	}
	defer f.Close()
	src, err := readerSource(f)
	if err != nil {
		return nil, nil, err
	}
	return src, nil, nil
}
