package repository

import (
	"dag-console/db"
)

// ErrNotFound is returned by Store.Get when the key is absent.
var ErrNotFound = db.ErrNotFound

// Store is the key-value contract used to persist console state across restarts.
// It abstracts the storage layer from the engines.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// KVStore implements Store using LevelDB as the storage backend
type KVStore struct {
	db *db.LevelDB
}

// NewKVStore creates and returns a new KVStore instance
func NewKVStore(db *db.LevelDB) *KVStore {
	return &KVStore{db: db}
}

// Get retrieves the value stored under key
func (s *KVStore) Get(key string) ([]byte, error) {
	return s.db.Get([]byte(key))
}

// Set stores value under key, replacing any previous value
func (s *KVStore) Set(key string, value []byte) error {
	return s.db.Put([]byte(key), value)
}

// Delete removes key
func (s *KVStore) Delete(key string) error {
	return s.db.Delete([]byte(key))
}

// Keys lists every key starting with prefix
func (s *KVStore) Keys(prefix string) ([]string, error) {
	iter := s.db.NewPrefixIterator([]byte(prefix))
	defer iter.Release()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	return keys, iter.Error()
}
