package resources

import (
	"strings"
	"sync"
)

// TypeDecoder turns the raw payload of a user type value into a Go value.
type TypeDecoder func(data []byte) (any, error)

// TypeRegistry maps user type names found in container type tables to decoders.
// Values of user types without a registered decoder fail with ErrUnsupportedType.
type TypeRegistry struct {
	mu       sync.RWMutex
	decoders map[string]TypeDecoder
}

// NewTypeRegistry returns an empty registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{decoders: make(map[string]TypeDecoder)}
}

// Register installs dec for typeName. Assembly qualification after a comma is ignored.
func (r *TypeRegistry) Register(typeName string, dec TypeDecoder) {
	if r == nil || dec == nil {
		return
	}
	key := registryKey(typeName)
	if key == "" {
		return
	}
	r.mu.Lock()
	r.decoders[key] = dec
	r.mu.Unlock()
}

// Lookup returns the decoder registered for typeName.
func (r *TypeRegistry) Lookup(typeName string) (TypeDecoder, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	dec, ok := r.decoders[registryKey(typeName)]
	return dec, ok
}

func registryKey(typeName string) string {
	if idx := strings.Index(typeName, ","); idx >= 0 {
		typeName = typeName[:idx]
	}
	return strings.TrimSpace(typeName)
}
