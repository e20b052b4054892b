package resources

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildContainer(t *testing.T, values map[string]any) []byte {
	t.Helper()
	w := NewWriter()
	for name, value := range values {
		require.NoError(t, w.AddResource(name, value))
	}
	data, err := w.Bytes()
	require.NoError(t, err)
	return data
}

func openContainer(t *testing.T, values map[string]any, opts ...ReaderOption) *Reader {
	t.Helper()
	r, err := NewReader(BytesSource(buildContainer(t, values)), opts...)
	require.NoError(t, err)
	return r
}

func writeContainerFile(t *testing.T, dir, baseName string, locale Locale, values map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, ResourceFileName(baseName, locale))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buildContainer(t, values), 0o644))
	return path
}

// rawEntry is a hand placed index entry; payload starts with the type tag.
type rawEntry struct {
	name    string
	payload []byte
}

// rawContainer lays out a container byte by byte, for layouts Writer never
// produces: other header and format versions, legacy type tables.
func rawContainer(headerVersion, formatVersion int32, skip []byte, typeNames []string, entries []rawEntry) []byte {
	entries = append([]rawEntry(nil), entries...)
	sort.Slice(entries, func(i, j int) bool {
		return HashName(entries[i].name) < HashName(entries[j].name)
	})

	data := newEncoder()
	offsets := make([]int32, len(entries))
	for i, entry := range entries {
		offsets[i] = int32(data.Len())
		data.buf.Write(entry.payload)
	}

	names := newEncoder()
	positions := make([]int32, len(entries))
	for i, entry := range entries {
		positions[i] = int32(names.Len())
		names.WriteString(entry.name)
		names.WriteInt32(offsets[i])
	}

	header := newEncoder()
	header.WriteUint32(MagicNumber)
	header.WriteInt32(headerVersion)
	if headerVersion == 1 {
		header.WriteString(ReaderTypeName)
		header.WriteString(SetTypeName)
	} else {
		header.WriteInt32(int32(len(skip)))
		header.buf.Write(skip)
	}
	header.WriteInt32(formatVersion)
	header.WriteInt32(int32(len(entries)))
	header.WriteInt32(int32(len(typeNames)))
	for _, name := range typeNames {
		header.WriteString(name)
	}
	header.pad8()
	for _, entry := range entries {
		header.WriteInt32(HashName(entry.name))
	}
	for _, p := range positions {
		header.WriteInt32(p)
	}
	header.WriteInt32(int32(header.Len() + 4 + names.Len()))

	out := append([]byte(nil), header.Bytes()...)
	out = append(out, names.Bytes()...)
	return append(out, data.Bytes()...)
}

func stringPayload(s string) []byte {
	e := newEncoder()
	e.WriteLength(uint32(TypeString))
	e.WriteString(s)
	return e.Bytes()
}
