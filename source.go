package resources

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Source is a random access byte source holding one resource container.
// ReadAt must not read past Size.
type Source interface {
	io.ReaderAt
	Size() int64
}

// BytesSource wraps an in-memory container.
func BytesSource(data []byte) Source {
	return bytes.NewReader(data)
}

type fileSource struct {
	f    *os.File
	size int64
}

// OpenFile opens a container file as a Source. The caller owns the returned closer.
func OpenFile(path string) (Source, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("resources: stat %s: %w", path, err)
	}
	src := &fileSource{f: f, size: info.Size()}
	return src, src, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *fileSource) Size() int64 {
	return s.size
}

func (s *fileSource) Close() error {
	return s.f.Close()
}

// readerSource buffers a non seekable stream handed over by a groveler.
func readerSource(r io.Reader) (Source, error) {
	if src, ok := r.(Source); ok {
		return src, nil
	}
	if rs, ok := r.(io.ReadSeeker); ok {
		if ra, ok := r.(io.ReaderAt); ok {
			size, err := rs.Seek(0, io.SeekEnd)
			if err != nil {
				return nil, err
			}
			if _, err := rs.Seek(0, io.SeekStart); err != nil {
				return nil, err
			}
			return io.NewSectionReader(ra, 0, size), nil
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return BytesSource(data), nil
}

var errNegativeOffset = errors.New("negative offset")
