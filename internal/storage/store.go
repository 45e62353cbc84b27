package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by Get when no record exists for a key pair.
var ErrNotFound = errors.New("storage: key not found")

// keySeparator joins partition key and sort key into a single Badger key.
// A NUL byte cannot appear in either component, so prefix scans over a
// partition never bleed into a neighboring one.
const keySeparator = "\x00"

// index entries live under their own namespace so partition scans skip them
const indexNamespace = "IDX" + keySeparator

// Store is a partition-key/sort-key view over a Badger database: point
// writes, partition+sort-range queries and one secondary index. Values are
// JSON-encoded records.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

// Options controls how the store is opened.
type Options struct {
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// Open opens (or creates) the store.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	badgerOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open badger at %q: %w", opts.Path, err)
	}

	return &Store{
		db:  db,
		log: logger.With(slog.String("component", "storage")),
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func fullKey(pk, sk string) []byte {
	return []byte(pk + keySeparator + sk)
}

// Put writes a record under (pk, sk), replacing any previous value.
func (s *Store) Put(pk, sk string, value interface{}) error {
	return s.put(pk, sk, value, 0)
}

// PutWithTTL writes a record that Badger expires after ttl. Used for
// realtime minute slots.
func (s *Store) PutWithTTL(pk, sk string, value interface{}, ttl time.Duration) error {
	return s.put(pk, sk, value, ttl)
}

func (s *Store) put(pk, sk string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: failed to encode record %s/%s: %w", pk, sk, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(fullKey(pk, sk), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("storage: failed to write %s/%s: %w", pk, sk, err)
	}
	return nil
}

// PutIndexed writes a record and its secondary-index entry in one
// transaction. The index entry's value is the record's primary key pair, so
// index queries resolve back to the record.
func (s *Store) PutIndexed(pk, sk, indexPK, indexSK string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: failed to encode record %s/%s: %w", pk, sk, err)
	}
	ref, err := json.Marshal(keyRef{PK: pk, SK: sk})
	if err != nil {
		return fmt.Errorf("storage: failed to encode index ref for %s/%s: %w", pk, sk, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(fullKey(pk, sk), data); err != nil {
			return err
		}
		return txn.Set([]byte(indexNamespace+indexPK+keySeparator+indexSK), ref)
	})
	if err != nil {
		return fmt.Errorf("storage: failed to write indexed record %s/%s: %w", pk, sk, err)
	}
	return nil
}

type keyRef struct {
	PK string `json:"pk"`
	SK string `json:"sk"`
}

// Get reads the record at (pk, sk) into out. Returns ErrNotFound when the
// key pair does not exist.
func (s *Store) Get(pk, sk string, out interface{}) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fullKey(pk, sk))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("storage: failed to read %s/%s: %w", pk, sk, err)
	}
	return nil
}

// Delete removes the record at (pk, sk). Deleting a missing key is not an
// error.
func (s *Store) Delete(pk, sk string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fullKey(pk, sk))
	})
	if err != nil {
		return fmt.Errorf("storage: failed to delete %s/%s: %w", pk, sk, err)
	}
	return nil
}

// QueryRange scans a partition's records whose sort keys fall in
// [skLow, skHigh], in sort-key order, calling fn for each. fn returning an
// error stops the scan and propagates the error.
func (s *Store) QueryRange(pk, skLow, skHigh string, fn func(sk string, value []byte) error) error {
	prefix := []byte(pk + keySeparator)
	seekTo := fullKey(pk, skLow)
	high := []byte(skHigh)

	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek(seekTo); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			sk := item.Key()[len(prefix):]
			if bytes.Compare(sk, high) > 0 {
				break
			}
			err := item.Value(func(val []byte) error {
				return fn(string(sk), val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: range query on %s failed: %w", pk, err)
	}
	return nil
}

// QueryPrefix scans a partition's records whose sort keys start with
// skPrefix, in sort-key order.
func (s *Store) QueryPrefix(pk, skPrefix string, fn func(sk string, value []byte) error) error {
	prefix := fullKey(pk, skPrefix)
	partition := []byte(pk + keySeparator)

	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			sk := item.Key()[len(partition):]
			err := item.Value(func(val []byte) error {
				return fn(string(sk), val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: prefix query on %s/%s failed: %w", pk, skPrefix, err)
	}
	return nil
}

// QueryIndex scans the secondary index partition indexPK and resolves each
// entry to its primary record, calling fn with the primary key pair and the
// record bytes.
func (s *Store) QueryIndex(indexPK string, fn func(pk, sk string, value []byte) error) error {
	prefix := []byte(indexNamespace + indexPK + keySeparator)

	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var ref keyRef
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ref)
			})
			if err != nil {
				return err
			}

			item, err := txn.Get(fullKey(ref.PK, ref.SK))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// index entry outlived its record; skip
					continue
				}
				return err
			}
			err = item.Value(func(val []byte) error {
				return fn(ref.PK, ref.SK, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: index query on %s failed: %w", indexPK, err)
	}
	return nil
}

// ScanPartitions visits every record whose partition key starts with
// pkPrefix and whose sort key equals sk. Index entries are never visited.
// Used by background jobs to enumerate entities across partitions.
func (s *Store) ScanPartitions(pkPrefix, sk string, fn func(pk string, value []byte) error) error {
	prefix := []byte(pkPrefix)
	suffix := []byte(keySeparator + sk)

	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if !bytes.HasSuffix(key, suffix) {
				continue
			}
			pk := string(key[:len(key)-len(suffix)])
			err := item.Value(func(val []byte) error {
				return fn(pk, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage: partition scan on %s failed: %w", pkPrefix, err)
	}
	return nil
}

// deleteBatchSize bounds one deletion transaction so retention sweeps never
// exceed Badger's transaction limits.
const deleteBatchSize = 1000

// DeleteRange removes a partition's records whose sort keys fall in
// [skLow, skHigh], in batches, and returns how many were deleted.
func (s *Store) DeleteRange(pk, skLow, skHigh string) (int, error) {
	prefix := []byte(pk + keySeparator)
	seekTo := fullKey(pk, skLow)
	high := []byte(skHigh)

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = prefix
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Seek(seekTo); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if bytes.Compare(item.Key()[len(prefix):], high) > 0 {
				break
			}
			keys = append(keys, item.KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: range delete scan on %s failed: %w", pk, err)
	}

	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, key := range keys[start:end] {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return start, fmt.Errorf("storage: range delete on %s failed: %w", pk, err)
		}
	}
	return len(keys), nil
}

// RunGC performs one round of Badger value-log garbage collection. A run
// that finds nothing to rewrite is not an error.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("storage: value log GC failed: %w", err)
	}
	return nil
}
