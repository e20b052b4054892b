package resources

import (
	"fmt"
	"reflect"
)

// HelperConfig configures template helper exports
type HelperConfig struct {
	// LocaleKey names the map key or struct field holding the locale, "Locale" by default
	LocaleKey string
	// Catalog resolves locale names when set, so catalog parents apply
	Catalog *CultureCatalog
	// OnMissing renders absent or failing lookups, "[name]" by default
	OnMissing func(locale, name string, err error) string
	// Formatter renders typed values for resource_format
	Formatter *ValueFormatter
}

// TemplateHelpers exposes lookup helpers for text/template and html/template:
//
//	{{resource . "invoice.title"}}
//	{{resourcef . "invoice.greeting" .Customer}}
//	{{resource_object "fr-FR" "logo.width"}}
//	{{resource_format . "invoice.total"}}
//
// The first argument is a locale name or data carrying one under LocaleKey.
func TemplateHelpers(lookup Lookup, cfg HelperConfig) map[string]any {
	missing := cfg.OnMissing
	if missing == nil {
		missing = func(_, name string, _ error) string {
			return "[" + name + "]"
		}
	}

	formatter := cfg.Formatter
	if formatter == nil {
		formatter = NewValueFormatter()
	}

	resolve := func(data any) (string, Locale, error) {
		name := extractLocale(data, cfg.LocaleKey)
		if name == "" {
			return "", nil, nil
		}
		if cfg.Catalog != nil {
			locale, err := cfg.Catalog.Culture(name)
			return name, locale, err
		}
		locale, err := NewCulture(name)
		return name, locale, err
	}

	str := func(data any, name string) (string, bool) {
		localeName, locale, err := resolve(data)
		if err != nil {
			return missing(localeName, name, err), false
		}
		value, ok, err := lookup.GetString(name, locale)
		if err != nil || !ok {
			return missing(localeName, name, err), false
		}
		return value, true
	}

	return map[string]any{
		"resource": func(data any, name string) string {
			value, _ := str(data, name)
			return value
		},
		"resourcef": func(data any, name string, args ...any) string {
			value, ok := str(data, name)
			if !ok || len(args) == 0 {
				return value
			}
			return fmt.Sprintf(value, args...)
		},
		"resource_object": func(data any, name string) (any, error) {
			_, locale, err := resolve(data)
			if err != nil {
				return nil, err
			}
			value, _, err := lookup.GetObject(name, locale)
			return value, err
		},
		"resource_format": func(data any, name string) string {
			localeName, locale, err := resolve(data)
			if err != nil {
				return missing(localeName, name, err)
			}
			value, ok, err := lookup.GetObject(name, locale)
			if err != nil || !ok {
				return missing(localeName, name, err)
			}
			return formatter.Format(value, locale)
		},
	}
}

// extractLocale extracts the locale from template data using the configured key
// This function handles strings, maps and struct types (like PageData)
func extractLocale(data any, localeKey string) string {
	if data == nil {
		return ""
	}

	if localeKey == "" {
		localeKey = "Locale"
	}

	// Handle string directly
	if str, ok := data.(string); ok {
		return str
	}

	switch d := data.(type) {
	case Locale:
		return d.Name()
	case map[string]any:
		if v, ok := d[localeKey]; ok {
			if str, ok := v.(string); ok {
				return str
			}
		}
	case map[string]string:
		if v, ok := d[localeKey]; ok {
			return v
		}
	}

	value := reflect.ValueOf(data)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return ""
		}
		value = value.Elem()
	}

	if value.Kind() == reflect.Struct {
		field := value.FieldByName(localeKey)
		if field.IsValid() && field.Kind() == reflect.String {
			return field.String()
		}
	}

	return ""
}
