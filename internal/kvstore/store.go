// Package kvstore provides the durable string-keyed store behind the local
// user state. Three backends share one contract: a JSON file (afero), BadgerDB
// and SQLite.
package kvstore

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrClosed         = errors.New("kvstore: store is closed")
	ErrKeyRequired    = errors.New("kvstore: key is required")
	ErrUnknownBackend = errors.New("kvstore: unknown backend")
)

// Store is a synchronous string-keyed store. Implementations are safe for
// concurrent use within one process.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	// Apply writes every entry atomically. An entry with a nil value deletes the key.
	Apply(batch map[string]*string) error
	Close() error
}

// Compactor is implemented by backends that can reclaim disk space. Compact
// reports how many reclaim passes did work.
type Compactor interface {
	Compact() (int, error)
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Open creates the store selected by backend inside dir.
func Open(backend, dir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendFile, "":
		return NewFileStore(nil, dir)
	case BackendBadger:
		return OpenBadger(dir)
	case BackendSQLite:
		return OpenSQLite(dir)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}
	return nil
}
