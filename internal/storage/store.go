package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"volley/internal/runner"
)

const BucketRuns = "runs"

// RunRecord is one finished run as kept in history.
type RunRecord struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Method    string         `json:"method"`
	URL       string         `json:"url"`
	Loops     int            `json:"loops"`
	Summary   runner.Summary `json:"summary"`
}

// Store persists run history in a bbolt file.
type Store struct {
	db *bbolt.DB
}

// NewStore opens the default history database under the user's home.
func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, ".volley")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return Open(filepath.Join(dir, "history.db"))
}

// Open opens (or creates) a history database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes one record, assigning an ID when missing. Keys are ordered by
// timestamp so a reverse cursor walks newest-first.
func (s *Store) Save(rec RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		key := []byte(rec.Timestamp.UTC().Format(time.RFC3339Nano) + "_" + rec.ID)
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// List returns all records, newest first.
func (s *Store) List() []RunRecord {
	var items []RunRecord

	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err == nil {
				items = append(items, rec)
			}
		}
		return nil
	})

	return items
}

// Get looks a record up by its ID.
func (s *Store) Get(id string) (*RunRecord, error) {
	var found *RunRecord
	s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec RunRecord
			if err := json.Unmarshal(v, &rec); err == nil && rec.ID == id {
				found = &rec
				return nil
			}
		}
		return nil
	})
	if found == nil {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return found, nil
}
