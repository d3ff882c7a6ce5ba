package kvstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "state:"

// BadgerStore keeps state in an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB in dir.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return NewBadgerStore(db), nil
}

// NewBadgerStore wraps an already opened database. Close closes db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			found = true
			return nil
		})
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return "", false, ErrClosed
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, found, nil
}

func (s *BadgerStore) Set(key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.Apply(map[string]*string{key: &value})
}

func (s *BadgerStore) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.Apply(map[string]*string{key: nil})
}

func (s *BadgerStore) Apply(batch map[string]*string) error {
	for key := range batch {
		if err := validateKey(key); err != nil {
			return err
		}
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for key, value := range batch {
			k := []byte(badgerKeyPrefix + key)
			if value == nil {
				if err := txn.Delete(k); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("delete %q: %w", key, err)
				}
				continue
			}
			if err := txn.Set(k, []byte(*value)); err != nil {
				return fmt.Errorf("set %q: %w", key, err)
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	return err
}

// Compact runs value-log GC until a pass finds nothing to rewrite.
func (s *BadgerStore) Compact() (int, error) {
	passes := 0
	for {
		err := s.db.RunValueLogGC(0.5)
		switch {
		case err == nil:
			passes++
		case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrRejected), errors.Is(err, badger.ErrGCInMemoryMode):
			return passes, nil
		case errors.Is(err, badger.ErrDBClosed):
			return passes, ErrClosed
		default:
			return passes, fmt.Errorf("value log gc: %w", err)
		}
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
