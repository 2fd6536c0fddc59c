// Package history provides Badger DB-backed storage for scan records and
// their report artifacts.
package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kestrelsec/walletscout/pkg/walletscout/types"
)

// Key prefixes for different data types
const (
	prefixRecord = "r:" // Scan records keyed by scan id
)

const schemaKey = "m:__schema__"

// CurrentSchemaVersion is bumped whenever the record encoding changes.
const CurrentSchemaVersion = 1

// ErrNotFound indicates no record exists for the requested scan id.
var ErrNotFound = errors.New("scan record not found")

// Schema holds database schema information.
type Schema struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists scan records in Badger and report artifacts on disk, one
// directory per scan id next to the index.
type Store struct {
	db  *badger.DB
	dir string
}

// Open opens or creates a store rooted at dir. The Badger index lives in
// dir/index; report artifacts go in per-scan subdirectories.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(filepath.Join(dir, "index"))
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, dir: dir}
	if s.getSchema() == nil {
		if err := s.setSchema(&Schema{Version: CurrentSchemaVersion, UpdatedAt: time.Now()}); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// SubDir returns the artifact directory for a scan id, creating it if
// needed.
func (s *Store) SubDir(id string) (string, error) {
	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Save stores a record, overwriting any previous version under the same
// scan id.
func (s *Store) Save(rec types.ScanRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixRecord+rec.ID), data)
	})
}

// Get retrieves a record by scan id.
func (s *Store) Get(id string) (types.ScanRecord, error) {
	var rec types.ScanRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixRecord + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.ScanRecord{}, ErrNotFound
	}
	if err != nil {
		return types.ScanRecord{}, err
	}
	return rec, nil
}

// List returns all records, newest first.
func (s *Store) List() ([]types.ScanRecord, error) {
	var records []types.ScanRecord

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec types.ScanRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return nil // Skip invalid entries
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// Trim deletes the oldest records beyond retention, along with their
// artifact directories. It returns the number of records removed.
func (s *Store) Trim(retention int) (int, error) {
	if retention < 0 {
		retention = 0
	}

	records, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(records) <= retention {
		return 0, nil
	}

	excess := records[retention:]
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range excess {
			if err := txn.Delete([]byte(prefixRecord + rec.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, rec := range excess {
		// Artifact removal failure is not fatal; the record is gone.
		_ = os.RemoveAll(filepath.Join(s.dir, rec.ID))
	}
	return len(excess), nil
}

// Delete removes a record and its artifact directory.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixRecord + id))
	})
	if err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.dir, id))
}

// getSchema returns the stored schema, or nil if not set.
func (s *Store) getSchema() *Schema {
	var schema *Schema

	_ = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			schema = &Schema{}
			return json.Unmarshal(val, schema)
		})
	})

	return schema
}

// setSchema stores the schema version.
func (s *Store) setSchema(schema *Schema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), data)
	})
}
