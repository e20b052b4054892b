package resources

import (
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// locator remembers where a value lives and, for primitive types, the decoded value.
type locator struct {
	dataPos int32
	code    TypeCode
	value   any
	cached  bool
}

// ResourceSet is the decoded view of one locale's container. Reader-backed sets
// decode on demand and serialize access to the reader with a single mutex;
// static sets hold a materialized name to value map.
type ResourceSet struct {
	mu     sync.Mutex
	locale string
	reader *Reader
	table  map[string]any

	cache map[string]*locator
	// case folded names, built by enumerating the whole set once
	folded     map[string]string
	enumerated bool
	folder     cases.Caser
	closed     bool
}

// NewResourceSet parses the container in src for locale.
func NewResourceSet(locale string, src Source, opts ...ReaderOption) (*ResourceSet, error) {
	r, err := NewReader(src, opts...)
	if err != nil {
		return nil, err
	}
	return newReaderResourceSet(locale, r), nil
}

// OpenResourceSet opens a container file, memory mapped when mapped is true.
func OpenResourceSet(locale, path string, mapped bool, opts ...ReaderOption) (*ResourceSet, error) {
	open := OpenFile
	if mapped {
		open = OpenMapped
	}
	src, closer, err := open(path)
	if err != nil {
		return nil, err
	}
	set, err := NewResourceSet(locale, src, append(opts, withReaderCloser(closer))...)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return set, nil
}

func newReaderResourceSet(locale string, r *Reader) *ResourceSet {
	return &ResourceSet{
		locale: locale,
		reader: r,
		cache:  make(map[string]*locator),
		folder: cases.Fold(),
	}
}

// NewStaticResourceSet builds an immutable set from values. The map is copied.
func NewStaticResourceSet(locale string, values map[string]any) *ResourceSet {
	table := make(map[string]any, len(values))
	for name, value := range values {
		if blob, ok := value.([]byte); ok {
			value = append([]byte(nil), blob...)
		}
		table[name] = value
	}
	return &ResourceSet{
		locale: locale,
		table:  table,
		folder: cases.Fold(),
	}
}

// Locale returns the name of the locale the set was loaded for.
func (s *ResourceSet) Locale() string {
	return s.locale
}

// Len returns the number of resources in the set.
func (s *ResourceSet) Len() int {
	if s.reader != nil {
		return s.reader.Count()
	}
	return len(s.table)
}

// GetString returns the string stored under name. ok is false when the name is
// absent or holds a null value; a non-string value fails with ErrTypeMismatch.
func (s *ResourceSet) GetString(name string, ignoreCase bool) (string, bool, error) {
	value, ok, err := s.lookup(name, ignoreCase, true)
	if err != nil || !ok {
		return "", false, err
	}
	return value.(string), true, nil
}

// GetObject returns the value stored under name. Stream values come back as
// *io.SectionReader views bounded to the stored length.
func (s *ResourceSet) GetObject(name string, ignoreCase bool) (any, bool, error) {
	return s.lookup(name, ignoreCase, false)
}

func (s *ResourceSet) lookup(name string, ignoreCase, wantString bool) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrClosed
	}
	if s.reader == nil {
		return s.lookupStatic(name, ignoreCase, wantString)
	}

	loc, ok := s.cache[name]
	if !ok {
		dataPos, err := s.reader.FindDataPosition(name)
		if err != nil {
			return nil, false, err
		}
		if dataPos == NotFound {
			if !ignoreCase {
				return nil, false, nil
			}
			stored, err := s.foldedName(name)
			if err != nil || stored == "" {
				return nil, false, err
			}
			if loc, ok = s.cache[stored]; !ok {
				if dataPos, err = s.reader.FindDataPosition(stored); err != nil {
					return nil, false, err
				}
				loc = &locator{dataPos: dataPos}
				s.cache[stored] = loc
			}
			name = stored
		} else {
			loc = &locator{dataPos: dataPos}
			s.cache[name] = loc
		}
	}
	return s.resolve(loc, name, wantString)
}

func (s *ResourceSet) resolve(loc *locator, name string, wantString bool) (any, bool, error) {
	if loc.cached {
		if wantString && loc.code != TypeString && loc.code != TypeNull {
			return nil, false, typeMismatch(name, TypeString.String(), loc.code)
		}
		return loc.value, loc.value != nil, nil
	}

	var (
		value any
		code  TypeCode
		err   error
	)
	if wantString {
		var str string
		var ok bool
		str, ok, err = s.reader.LoadStringAt(loc.dataPos)
		code = TypeNull
		if ok {
			value, code = str, TypeString
		}
	} else {
		value, code, err = s.reader.LoadValueAt(loc.dataPos)
	}
	if err != nil {
		var rerr *Error
		if errors.As(err, &rerr) && rerr.Name == "" {
			rerr.Name = name
		}
		return nil, false, err
	}

	if code.IsPrimitive() {
		loc.code, loc.value, loc.cached = code, value, true
	}
	return value, value != nil, nil
}

func (s *ResourceSet) lookupStatic(name string, ignoreCase, wantString bool) (any, bool, error) {
	value, ok := s.table[name]
	if !ok && ignoreCase {
		stored, err := s.foldedName(name)
		if err != nil {
			return nil, false, err
		}
		value, ok = s.table[stored]
		name = stored
	}
	if !ok || value == nil {
		return nil, false, nil
	}
	if !wantString {
		switch v := value.(type) {
		case []byte:
			return append([]byte(nil), v...), true, nil
		case Source:
			return io.NewSectionReader(v, 0, v.Size()), true, nil
		}
	}
	if wantString {
		str, isString := value.(string)
		if !isString {
			return nil, false, typeMismatch(name, TypeString.String(), staticTypeCode(value))
		}
		return str, true, nil
	}
	return value, true, nil
}

// foldedName maps a name to its stored spelling under Unicode case folding.
// The first call enumerates the whole set.
func (s *ResourceSet) foldedName(name string) (string, error) {
	if !s.enumerated {
		folded := make(map[string]string, s.Len())
		add := func(stored string) {
			key := s.folder.String(stored)
			if _, exists := folded[key]; !exists {
				folded[key] = stored
			}
		}
		if s.reader != nil {
			e := s.reader.Enumerate()
			for e.Next() {
				add(e.Name())
			}
			if err := e.Err(); err != nil {
				return "", err
			}
		} else {
			for stored := range s.table {
				add(stored)
			}
		}
		s.folded = folded
		s.enumerated = true
	}
	return s.folded[s.folder.String(name)], nil
}

// Range calls fn for every resource until fn returns false. The set stays
// locked for the duration, so fn must not call back into it.
func (s *ResourceSet) Range(fn func(name string, value any) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.reader == nil {
		names := make([]string, 0, len(s.table))
		for name := range s.table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !fn(name, s.table[name]) {
				return nil
			}
		}
		return nil
	}

	e := s.reader.Enumerate()
	for e.Next() {
		value, _, err := e.Value()
		if err != nil {
			return err
		}
		if !fn(e.Name(), value) {
			return nil
		}
	}
	return e.Err()
}

// ResourceData exposes the raw payload of name, see Reader.ResourceData.
func (s *ResourceSet) ResourceData(name string) (typeName string, data []byte, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", nil, false, ErrClosed
	}
	if s.reader == nil {
		return "", nil, false, nil
	}
	return s.reader.ResourceData(name)
}

func (s *ResourceSet) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the underlying container. Closing twice is a no-op.
func (s *ResourceSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.cache = nil
	s.folded = nil
	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}

func staticTypeCode(value any) TypeCode {
	switch value.(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case Char:
		return TypeChar
	case uint8:
		return TypeByte
	case int8:
		return TypeSByte
	case int16:
		return TypeInt16
	case uint16:
		return TypeUInt16
	case int32:
		return TypeInt32
	case uint32:
		return TypeUInt32
	case int64, int:
		return TypeInt64
	case uint64, uint:
		return TypeUInt64
	case float32:
		return TypeSingle
	case float64:
		return TypeDouble
	case Decimal:
		return TypeDecimal
	case time.Time:
		return TypeDateTime
	case time.Duration:
		return TypeTimeSpan
	case []byte:
		return TypeByteArray
	case io.Reader:
		return TypeStream
	default:
		return TypeStartOfUserTypes
	}
}
