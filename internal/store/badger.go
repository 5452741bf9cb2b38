// Package store persists graph snapshots in an embedded BadgerDB so a
// restarted server can show the last laid-out graph before its first rebuild.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
)

// ErrNotFound means no snapshot is stored for a document.
var ErrNotFound = errors.New("snapshot not found")

const keyPrefix = "graph/"

// Record is one stored snapshot.
type Record struct {
	Document string          `json:"document"`
	SavedAt  time.Time       `json:"saved_at"`
	Snapshot *graph.Snapshot `json:"snapshot"`
}

// GraphStore keeps one snapshot per document key.
type GraphStore struct {
	db  *badger.DB
	log *slog.Logger
}

// badgerLogger routes badger's own logging into slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

// Open opens the store at conf.Path, or in memory when the path is empty.
func Open(conf config.StoreConf, log *slog.Logger) (*GraphStore, error) {
	if log == nil {
		log = slog.Default()
	}
	var opts badger.Options
	if conf.Path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(conf.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", conf.Path, err)
		}
		opts = badger.DefaultOptions(conf.Path)
	}
	opts = opts.
		WithSyncWrites(conf.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{log: log.With("component", "badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return &GraphStore{db: db, log: log}, nil
}

// Save stores snap as the current snapshot of document.
func (s *GraphStore) Save(document string, snap *graph.Snapshot) error {
	data, err := json.Marshal(Record{Document: document, SavedAt: time.Now().UTC(), Snapshot: snap})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(document), data)
	})
	if err != nil {
		return fmt.Errorf("save snapshot of %q: %w", document, err)
	}
	s.log.Debug("snapshot saved", "document", document, "nodes", len(snap.Nodes), "links", len(snap.Links))
	return nil
}

// Load returns the stored snapshot of document, or ErrNotFound.
func (s *GraphStore) Load(document string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(document))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%q: %w", document, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot of %q: %w", document, err)
	}
	if rec.Snapshot == nil {
		return nil, fmt.Errorf("%q: %w", document, ErrNotFound)
	}
	return &rec, nil
}

// Delete drops the snapshot of document. Missing snapshots are not an error.
func (s *GraphStore) Delete(document string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(document))
	})
}

// Close flushes and closes the database.
func (s *GraphStore) Close() error {
	return s.db.Close()
}

func key(document string) []byte {
	return []byte(keyPrefix + document)
}
