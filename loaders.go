package resources

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf16"

	"gopkg.in/yaml.v3"
)

// Translations maps a locale name to its resources. The invariant locale uses
// the "" key.
type Translations map[string]map[string]any

// Clone copies the two map levels. Values are shared except byte slices.
func (t Translations) Clone() Translations {
	if t == nil {
		return make(Translations)
	}
	out := make(Translations, len(t))
	for locale, values := range t {
		copied := make(map[string]any, len(values))
		for name, value := range values {
			if blob, ok := value.([]byte); ok {
				value = append([]byte(nil), blob...)
			}
			copied[name] = value
		}
		out[locale] = copied
	}
	return out
}

// Locales returns the sorted locale names, the invariant one first.
func (t Translations) Locales() []string {
	out := make([]string, 0, len(t))
	for locale := range t {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Loader retrieves the translations used to seed a StaticGroveler or resgen.
type Loader interface {
	Load() (Translations, error)
}

// LoaderFunc adapters allow bare functions to implement Loader interface
type LoaderFunc func() (Translations, error)

// Load implements Loader for LoaderFunc
func (fn LoaderFunc) Load() (Translations, error) {
	return fn()
}

// FileLoader reads JSON or YAML resource sources shaped as
//
//	<locale>:
//	  <name>: <value>
//
// Scalars map to string, bool, int32 (int64 when out of range) and float64.
// Other types use the tagged form {type: <type>, value: <value>}. Later files
// override earlier ones per name.
type FileLoader struct {
	paths []string
}

var _ Loader = (*FileLoader)(nil)

func NewFileLoader(paths ...string) *FileLoader {
	return &FileLoader{paths: append([]string(nil), paths...)}
}

func (l *FileLoader) Load() (Translations, error) {
	if l == nil || len(l.paths) == 0 {
		return nil, errors.New("resources: no loader paths configured")
	}

	out := make(Translations)
	for _, path := range l.paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("resources: read %s: %w", path, err)
		}

		src, err := DecodeSource(path, data)
		if err != nil {
			return nil, fmt.Errorf("resources: decode %s: %w", path, err)
		}
		mergeTranslations(out, src)
	}
	return out, nil
}

// DecodeSource parses a resource source file, picking the format from the
// extension of path.
func DecodeSource(path string, data []byte) (Translations, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var raw map[string]map[string]any
	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("yaml parse error: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported extension %s", ext)
	}
	if len(raw) == 0 {
		return nil, errors.New("empty resource source")
	}

	out := make(Translations, len(raw))
	for rawLocale, entries := range raw {
		locale, ok := canonicalLocale(rawLocale)
		if !ok {
			return nil, fmt.Errorf("invalid locale %q", rawLocale)
		}
		values := make(map[string]any, len(entries))
		for name, rawValue := range entries {
			if name == "" {
				return nil, fmt.Errorf("empty name in %s", rawLocale)
			}
			value, err := sourceValue(rawValue)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", rawLocale, name, err)
			}
			values[name] = value
		}
		if existing, dup := out[locale]; dup {
			for name, value := range values {
				existing[name] = value
			}
			continue
		}
		out[locale] = values
	}
	return out, nil
}

func sourceValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string, bool:
		return v, nil
	case int:
		return narrowInt(int64(v)), nil
	case int64:
		return narrowInt(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return v, nil
		}
		return narrowInt(int64(v)), nil
	case float64:
		return v, nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return narrowInt(n), nil
		}
		return v.Float64()
	case map[string]any:
		return taggedValue(v)
	default:
		return nil, fmt.Errorf("unsupported value type %T", raw)
	}
}

func narrowInt(n int64) any {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return int32(n)
	}
	return n
}

func taggedValue(m map[string]any) (any, error) {
	kind, _ := m["type"].(string)
	raw, hasValue := m["value"]
	if kind == "" || !hasValue {
		return nil, errors.New("tagged value needs type and value")
	}

	text := fmt.Sprint(raw)
	switch strings.ToLower(kind) {
	case "string":
		return text, nil
	case "null":
		return nil, nil
	case "char":
		units := utf16.Encode([]rune(text))
		if len(units) != 1 {
			return nil, fmt.Errorf("char %q is not a single UTF-16 unit", text)
		}
		return Char(units[0]), nil
	case "int64":
		n, err := toInt64(raw)
		return n, err
	case "int32":
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("%d overflows int32", n)
		}
		return int32(n), nil
	case "double", "float64":
		return toFloat64(raw)
	case "single", "float32":
		f, err := toFloat64(raw)
		return float32(f), err
	case "bytes", "bytearray":
		return base64.StdEncoding.DecodeString(text)
	case "stream":
		data, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	case "datetime":
		if t, ok := raw.(time.Time); ok {
			return t.UTC(), nil
		}
		t, err := time.Parse(time.RFC3339Nano, text)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case "timespan", "duration":
		return time.ParseDuration(text)
	case "decimal":
		return ParseDecimal(text)
	default:
		return nil, fmt.Errorf("unknown value type %q", kind)
	}
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	default:
		var n int64
		if _, err := fmt.Sscan(fmt.Sprint(raw), &n); err != nil {
			return 0, fmt.Errorf("not an integer: %v", raw)
		}
		return n, nil
	}
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		var f float64
		if _, err := fmt.Sscan(fmt.Sprint(raw), &f); err != nil {
			return 0, fmt.Errorf("not a number: %v", raw)
		}
		return f, nil
	}
}

func mergeTranslations(dst, src Translations) {
	for locale, values := range src {
		target := dst[locale]
		if target == nil {
			target = make(map[string]any, len(values))
			dst[locale] = target
		}
		for name, value := range values {
			target[name] = value
		}
	}
}
