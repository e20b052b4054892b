package resources

// Lookup resolves a named resource for a locale. A nil locale means the
// host's current UI culture. Absent names return ok=false and no error.
type Lookup interface {
	GetString(name string, locale Locale) (string, bool, error)
	GetObject(name string, locale Locale) (any, bool, error)
}
