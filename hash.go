package resources

import "unicode/utf16"

const hashSeed uint32 = 5381

// HashName returns the name index hash of a resource name. The recurrence
// h = ((h << 5) + h) ^ c runs over the UTF-16 code units of name so the
// values agree with containers produced by other toolchains.
func HashName(name string) int32 {
	hash := hashSeed
	for _, r := range name {
		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			hash = ((hash << 5) + hash) ^ uint32(r1)
			hash = ((hash << 5) + hash) ^ uint32(r2)
			continue
		}
		hash = ((hash << 5) + hash) ^ uint32(r)
	}
	return int32(hash)
}
