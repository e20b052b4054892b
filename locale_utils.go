package resources

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
)

func localeParentTag(locale string) string {
	if locale == "" {
		return ""
	}

	tag, err := language.Parse(locale)
	if err == nil {
		parent := tag.Parent()
		if parent == language.Und {
			return ""
		}
		value := parent.String()
		if value == "" || value == "und" {
			return ""
		}
		return value
	}

	if idx := strings.LastIndex(locale, "-"); idx > 0 {
		return locale[:idx]
	}

	return ""
}

// normalizeLocale normalizes a single locale identifier by replacing
// underscores with hyphens and trimming whitespace.
func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
}

// canonicalLocale returns the BCP 47 form of locale, "" for the invariant
// locale. Names x/text cannot parse are kept as normalized so private cultures
// still resolve through their hyphen separated parents.
func canonicalLocale(locale string) (string, bool) {
	normalized := normalizeLocale(locale)
	switch strings.ToLower(normalized) {
	case "", "und", "iv", "invariant":
		return "", true
	}
	if tag, err := language.Parse(normalized); err == nil {
		return tag.String(), true
	}
	for _, r := range normalized {
		if !(r == '-' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "", false
		}
	}
	return normalized, true
}

// posixLocale converts a POSIX locale such as "fr_FR.UTF-8@euro" to "fr-FR".
// "C" and "POSIX" map to the invariant locale.
func posixLocale(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if idx := strings.IndexAny(value, ".@"); idx >= 0 {
		value = value[:idx]
	}
	switch value {
	case "":
		return "", false
	case "C", "POSIX":
		return "", true
	}
	return canonicalLocale(value)
}

func normalizeLocales(locales []string) []string {
	if len(locales) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(locales))
	result := make([]string, 0, len(locales))
	for _, locale := range locales {
		normalized, ok := canonicalLocale(locale)
		if !ok {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}

	sort.Strings(result)
	return result
}
