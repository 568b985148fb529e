package storage

import (
	"fmt"
	"io"

	"gemchat/pkg/chattypes"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Store is a KVStore that owns resources.
type Store interface {
	chattypes.KVStore
	io.Closer
}

// Open returns the named backend. dbPath is only used by sqlite; empty means DefaultDBPath.
func Open(backend, dbPath string) (Store, error) {
	switch backend {
	case "", BackendSQLite:
		if dbPath == "" {
			p, err := DefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("resolve db path: %w", err)
			}
			dbPath = p
		}
		return NewSQLiteStore(dbPath)
	case BackendMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s (supported: sqlite, memory)", backend)
	}
}
