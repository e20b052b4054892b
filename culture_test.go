package resources

import (
	"testing"

	"golang.org/x/text/language"
)

func TestNewCultureCanonicalizes(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"und":       "",
		"iv":        "",
		"invariant": "",
		"fr_FR":     "fr-FR",
		" en-us ":   "en-US",
		"zh-hant":   "zh-Hant",
		"de-AT":     "de-AT",
	}

	for input, want := range cases {
		culture, err := NewCulture(input)
		if err != nil {
			t.Fatalf("NewCulture(%q): %v", input, err)
		}
		if culture.Name() != want {
			t.Fatalf("NewCulture(%q) = %q, want %q", input, culture.Name(), want)
		}
		if culture.IsInvariant() != (want == "") {
			t.Fatalf("NewCulture(%q).IsInvariant() = %v", input, culture.IsInvariant())
		}
	}

	if _, err := NewCulture("bad name!"); err == nil {
		t.Fatal("expected error for invalid culture")
	}
}

func TestMustCulturePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustCulture("bad name!")
}

func TestCultureParents(t *testing.T) {
	cases := []struct {
		name  string
		chain []string
	}{
		{name: "fr-FR", chain: []string{"fr", ""}},
		{name: "en-GB", chain: []string{"en-001", "en", ""}},
		{name: "es-MX", chain: []string{"es-419", "es", ""}},
		{name: "pt-AO", chain: []string{"pt-PT", "pt", ""}},
		{name: "", chain: []string{""}},
	}

	for _, tc := range cases {
		var current Locale = MustCulture(tc.name)
		for i, want := range tc.chain {
			current = current.Parent()
			if current.Name() != want {
				t.Fatalf("%s parent #%d = %q, want %q", tc.name, i+1, current.Name(), want)
			}
		}
	}
}

func TestCultureTagAndString(t *testing.T) {
	if InvariantCulture().Tag() != language.Und {
		t.Fatal("invariant tag should be und")
	}
	if got := MustCulture("de-CH").Tag(); got != language.MustParse("de-CH") {
		t.Fatalf("Tag() = %v", got)
	}
	if got := InvariantCulture().String(); got != "<invariant>" {
		t.Fatalf("String() = %q", got)
	}
	if got := MustCulture("it").String(); got != "it" {
		t.Fatalf("String() = %q", got)
	}
}

func TestSameLocale(t *testing.T) {
	catalog, err := NewCultureCatalog(map[string]CultureDefinition{"fr-CA": {}})
	if err != nil {
		t.Fatalf("NewCultureCatalog: %v", err)
	}
	frCA, _ := catalog.Culture("fr-CA")

	if !sameLocale(MustCulture("fr-CA"), frCA) {
		t.Fatal("locales with the same name should match")
	}
	if sameLocale(MustCulture("fr"), frCA) {
		t.Fatal("different names should not match")
	}
	if !sameLocale(nil, nil) || sameLocale(nil, InvariantCulture()) {
		t.Fatal("nil handling")
	}
}

func TestPosixLocale(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"fr_FR.UTF-8":     {want: "fr-FR", ok: true},
		"de_DE@euro":      {want: "de-DE", ok: true},
		"C":               {want: "", ok: true},
		"POSIX":           {want: "", ok: true},
		"":                {want: "", ok: false},
		"bad name!.UTF-8": {want: "", ok: false},
	}

	for input, want := range cases {
		got, ok := posixLocale(input)
		if got != want.want || ok != want.ok {
			t.Fatalf("posixLocale(%q) = %q,%v want %q,%v", input, got, ok, want.want, want.ok)
		}
	}
}
