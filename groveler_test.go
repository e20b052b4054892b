package resources

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestResourceFileName(t *testing.T) {
	assert.Equal(t, "Strings.resources", ResourceFileName("Strings", nil))
	assert.Equal(t, "Strings.resources", ResourceFileName("Strings", InvariantCulture()))
	assert.Equal(t, "Strings.fr-FR.resources", ResourceFileName("Strings", MustCulture("fr_FR")))
}

func TestParseFallbackLocation(t *testing.T) {
	tests := []struct {
		in   string
		want FallbackLocation
		err  bool
	}{
		{in: "", want: MainPackage},
		{in: "main", want: MainPackage},
		{in: "satellite", want: Satellite},
		{in: "elsewhere", err: true},
	}
	for _, tc := range tests {
		got, err := ParseFallbackLocation(tc.in)
		if tc.err {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
		if tc.in != "" {
			assert.Equal(t, tc.in, got.String())
		}
	}
}

func TestFileGroveler(t *testing.T) {
	dir := t.TempDir()
	writeContainerFile(t, dir, "App", InvariantCulture(), map[string]any{"a": "root"})
	writeContainerFile(t, dir, "App", MustCulture("fr"), map[string]any{"a": "racine"})

	for _, mapped := range []bool{false, true} {
		g := NewFileGroveler("App", dir, WithFileSystem(OSFileSystem{Mapped: mapped}))
		assert.Equal(t, filepath.Join(dir, "App.fr.resources"), g.Path(MustCulture("fr")))

		set, err := g.GrovelForResourceSet(MustCulture("fr"), nil, true, true)
		require.NoError(t, err)
		require.NotNil(t, set)
		value, _, err := set.GetString("a", false)
		require.NoError(t, err)
		assert.Equal(t, "racine", value)

		again, err := g.GrovelForResourceSet(MustCulture("fr"), map[string]*ResourceSet{"fr": set}, true, true)
		require.NoError(t, err)
		assert.Same(t, set, again)
		require.NoError(t, set.Close())

		set, err = g.GrovelForResourceSet(MustCulture("de"), nil, true, true)
		require.NoError(t, err)
		assert.Nil(t, set)

		set, err = g.GrovelForResourceSet(InvariantCulture(), nil, true, false)
		require.NoError(t, err)
		assert.Nil(t, set)
	}
}

func TestFileGrovelerMissingInvariant(t *testing.T) {
	g := NewFileGroveler("App", t.TempDir())

	_, err := g.GrovelForResourceSet(InvariantCulture(), nil, true, true)
	require.ErrorIs(t, err, ErrMissingUltimateFallback)
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "grovel", rerr.Op)

	set, err := g.GrovelForResourceSet(InvariantCulture(), nil, false, true)
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestFileGrovelerCorruptContainer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.resources"), []byte("not a container"), 0o644))

	_, err := NewFileGroveler("App", dir).GrovelForResourceSet(InvariantCulture(), nil, true, true)
	assert.ErrorIs(t, err, ErrCorruptContainer)
}

func TestFileGrovelerTypeRegistry(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.AddResourceData("p", "Acme.Point", []byte("1,2")))
	data, err := w.Bytes()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.resources"), data, 0o644))

	registry := NewTypeRegistry()
	registry.Register("Acme.Point", func(data []byte) (any, error) {
		return "point(" + string(data) + ")", nil
	})

	set, err := NewFileGroveler("App", dir, WithGrovelerTypeRegistry(registry)).
		GrovelForResourceSet(InvariantCulture(), nil, true, true)
	require.NoError(t, err)
	value, ok, err := set.GetObject("p", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "point(1,2)", value)
}

func TestFSGroveler(t *testing.T) {
	fsys := fstest.MapFS{
		"App.resources":          {Data: buildContainer(t, map[string]any{"a": "main"})},
		"en/App.en.resources":    {Data: buildContainer(t, map[string]any{"a": "satellite"})},
		"fr/App.fr.resources":    {Data: buildContainer(t, map[string]any{"a": "racine"})},
		"de/App.de-AT.resources": {Data: []byte("misplaced")},
	}

	tests := []struct {
		name     string
		opts     []GrovelerOption
		locale   Locale
		path     string
		want     string
		noSet    bool
		fallback bool
	}{
		{name: "main invariant", locale: InvariantCulture(), path: "App.resources", want: "main"},
		{name: "satellite", locale: MustCulture("fr"), path: "fr/App.fr.resources", want: "racine"},
		{name: "absent satellite", locale: MustCulture("de-AT"), path: "de-AT/App.de-AT.resources", noSet: true},
		{
			name:   "invariant in the neutral satellite",
			opts:   []GrovelerOption{WithFallbackLocation(Satellite, MustCulture("en"))},
			locale: InvariantCulture(),
			path:   "en/App.en.resources",
			want:   "satellite",
		},
		{
			name:     "satellite invariant missing",
			opts:     []GrovelerOption{WithFallbackLocation(Satellite, MustCulture("it"))},
			locale:   InvariantCulture(),
			path:     "it/App.it.resources",
			fallback: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := NewFSGroveler(fsys, "App", tc.opts...)
			assert.Equal(t, tc.path, g.Path(tc.locale))

			set, err := g.GrovelForResourceSet(tc.locale, nil, true, true)
			if tc.fallback {
				assert.ErrorIs(t, err, ErrMissingUltimateFallback)
				return
			}
			require.NoError(t, err)
			if tc.noSet {
				assert.Nil(t, set)
				return
			}
			require.NotNil(t, set)
			defer set.Close()
			value, _, err := set.GetString("a", false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, value)
		})
	}
}

func TestFSGrovelerThroughManager(t *testing.T) {
	fsys := fstest.MapFS{
		"en/App.en.resources": {Data: buildContainer(t, map[string]any{"a": "neutral"})},
		"fr/App.fr.resources": {Data: buildContainer(t, map[string]any{"a": "racine"})},
	}

	m, err := NewManager(
		WithFS(fsys),
		WithBaseName("App"),
		WithNeutralLocale("en"),
		WithUltimateFallback(Satellite),
		WithHost(StaticHost{}),
	)
	require.NoError(t, err)

	for locale, want := range map[string]string{"fr-FR": "racine", "en-US": "neutral", "de": "neutral"} {
		value, ok, err := m.GetString("a", MustCulture(locale))
		require.NoError(t, err, locale)
		assert.True(t, ok, locale)
		assert.Equal(t, want, value, locale)
	}
}

func TestStaticGroveler(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := NewStaticGroveler(Translations{
		"fr_FR":     {"a": "1"},
		"invariant": {"a": "0"},
		"bad name!": {"a": "x"},
		"de":        nil,
	}, WithGrovelerLogger(zap.New(core)))

	assert.Equal(t, []string{"", "fr-FR"}, g.Locales())
	assert.Equal(t, 1, logs.FilterMessage("skipping invalid locale").Len())

	set, err := g.GrovelForResourceSet(MustCulture("fr-FR"), nil, true, true)
	require.NoError(t, err)
	value, _, err := set.GetString("a", false)
	require.NoError(t, err)
	assert.Equal(t, "1", value)

	set, err = g.GrovelForResourceSet(MustCulture("fr-FR"), nil, true, false)
	require.NoError(t, err)
	assert.Nil(t, set)

	set, err = g.GrovelForResourceSet(MustCulture("de"), nil, true, true)
	require.NoError(t, err)
	assert.Nil(t, set)

	empty := NewStaticGroveler(nil)
	assert.Nil(t, empty.Locales())
	_, err = empty.GrovelForResourceSet(InvariantCulture(), nil, true, true)
	assert.ErrorIs(t, err, ErrMissingUltimateFallback)
}

func TestStaticGrovelerFromLoader(t *testing.T) {
	g, err := NewStaticGrovelerFromLoader(LoaderFunc(func() (Translations, error) {
		return Translations{"": {"a": "b"}}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, g.Locales())

	_, err = NewStaticGrovelerFromLoader(LoaderFunc(func() (Translations, error) {
		return nil, os.ErrNotExist
	}))
	assert.ErrorIs(t, err, os.ErrNotExist)

	g, err = NewStaticGrovelerFromLoader(nil)
	require.NoError(t, err)
	assert.Nil(t, g.Locales())
}
