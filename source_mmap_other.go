//go:build !unix

package resources

import "io"

// OpenMapped falls back to positional file reads where mmap is unavailable.
func OpenMapped(path string) (Source, io.Closer, error) {
	return OpenFile(path)
}
