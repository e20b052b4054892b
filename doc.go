// Package resources resolves localized resources, strings and typed values,
// stored in binary resource containers, one container per locale.
//
// A Manager walks the fallback sequence of the requested locale (the locale,
// its parents, the host's preferred locales and finally the invariant
// locale) and returns the first value found:
//
//	m, err := resources.NewManager(
//		resources.WithBaseName("Strings"),
//		resources.WithDir("./resources"),
//		resources.WithNeutralLocale("en"),
//	)
//	greeting, ok, err := m.GetString("greeting", resources.MustCulture("fr-CA"))
//
// Containers are found by a Groveler. FileGroveler reads
// "<dir>/<base>.<locale>.resources" files, FSGroveler reads any fs.FS laid
// out as satellite directories, StaticGroveler serves values loaded from
// JSON or YAML sources. Absent names are reported with ok=false and never
// as an error.
//
// # Container format
//
// All integers are little-endian. Text is UTF-8 prefixed by its byte length
// encoded 7 bits at a time, low group first, high bit set on every byte but
// the last (at most 5 bytes).
//
//	int32   magic 0xBEEFCACE
//	int32   header version
//	        version 1: reader type name, resource set type name
//	        version >1: int32 length, then that many bytes that are skipped
//	int32   format version, 1 or 2
//	int32   resource count
//	int32   type count, then that many type names
//	        "PAD" pattern up to the next 8-byte boundary
//	int32   name hashes, sorted ascending, one per resource
//	int32   name positions relative to the name section, same order
//	int32   absolute offset of the data section
//	        name section: per resource a name and an int32 data offset
//	        relative to the data section
//	        data section: per value a uvarint type code, then the payload
//
// Format version 1 stores an index into the type table instead of a type
// code. Name hashes use h = ((h << 5) + h) ^ c over the UTF-16 code units of
// the name, starting from 5381.
//
// Payloads are fixed width for primitives; DateTime and TimeSpan are int64
// ticks of 100ns (DateTime counted from 0001-01-01 UTC); ByteArray and Stream
// are an int32 length and the bytes. User types (codes from 0x40 up, naming
// the type table) are a uvarint length and the bytes, decoded by a
// TypeDecoder registered for the type name.
package resources
