package resources

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ValueFormatter renders typed resource values for display in a culture,
// using CLDR number conventions from golang.org/x/text. Printers are built
// once per locale name. A ValueFormatter is safe for concurrent use.
type ValueFormatter struct {
	mu       sync.Mutex
	printers map[string]*message.Printer
}

func NewValueFormatter() *ValueFormatter {
	return &ValueFormatter{printers: make(map[string]*message.Printer)}
}

func (f *ValueFormatter) printer(locale Locale) *message.Printer {
	name := ""
	if locale != nil {
		name = locale.Name()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.printers[name]; ok {
		return p
	}
	p := message.NewPrinter(localeTag(locale))
	f.printers[name] = p
	return p
}

func localeTag(locale Locale) language.Tag {
	if locale == nil || locale.IsInvariant() {
		return language.Und
	}
	if c, ok := locale.(Culture); ok {
		return c.Tag()
	}
	tag, err := language.Parse(locale.Name())
	if err != nil {
		return language.Und
	}
	return tag
}

// Format renders value in locale. Numbers get grouping and decimal
// separators, decimals keep their scale, times render as date and time.
func (f *ValueFormatter) Format(value any, locale Locale) string {
	p := f.printer(locale)
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case Char:
		return string(rune(v))
	case int8, int16, int32, int64, int, uint8, uint16, uint32, uint64, uint, float32, float64:
		return p.Sprintf("%v", number.Decimal(v))
	case Decimal:
		scale := int(v.Scale())
		amount, _ := v.Rat().Float64()
		return p.Sprintf("%v", number.Decimal(amount, number.MinFractionDigits(scale), number.MaxFractionDigits(scale)))
	case time.Time:
		return v.Format(time.DateTime)
	case time.Duration:
		return v.String()
	case []byte:
		return p.Sprintf("%d bytes", len(v))
	default:
		return p.Sprint(value)
	}
}

// FormatCurrency renders amount with two fraction digits, prefixed by the
// symbol of the ISO 4217 code as used in locale. Unknown codes are printed
// upper cased.
func (f *ValueFormatter) FormatCurrency(amount float64, code string, locale Locale) string {
	p := f.printer(locale)
	formatted := p.Sprintf("%v", number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))

	code = strings.TrimSpace(code)
	if code == "" {
		return formatted
	}
	unit, err := currency.ParseISO(code)
	if err != nil || unit.String() == "XXX" {
		return strings.ToUpper(code) + " " + formatted
	}

	symbol := strings.TrimSpace(p.Sprint(currency.Symbol(unit)))
	if symbol == "" {
		symbol = unit.String()
	}
	return fmt.Sprintf("%s %s", symbol, formatted)
}
