package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

const outcomeKeyPrefix = "outcome:"

// maxConflictRetries bounds the retry loop for transaction conflicts.
const maxConflictRetries = 10

// BadgerLog is an OutcomeLog backed by BadgerDB, one key per URL.
// Only the latest entry per URL is kept.
type BadgerLog struct {
	db     *badger.DB
	path   string
	logger *slog.Logger
}

// OpenBadgerLog opens or creates the database directory at path.
func OpenBadgerLog(path string, logger *slog.Logger) (*BadgerLog, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "badger", Key: path, Err: err}
	}

	l := logger.With("backend", "badger")
	opts := badger.DefaultOptions(path).
		WithLogger(badgerLogger{l}).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &types.StorageError{Backend: "badger", Key: path, Err: fmt.Errorf("open database: %w", err)}
	}
	l.Debug("outcome database opened", "path", path)

	return &BadgerLog{db: db, path: path, logger: l}, nil
}

// Append stores entry under its URL, replacing any earlier outcome.
func (b *BadgerLog) Append(entry types.OutcomeEntry) error {
	val, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	key := []byte(outcomeKeyPrefix + entry.URL)

	for i := range maxConflictRetries {
		err = b.db.Update(func(txn *badger.Txn) error {
			return txn.SetEntry(badger.NewEntry(key, val))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		b.logger.Debug("transaction conflict, retrying", "attempt", i+1, "url", entry.URL)
	}
	if err != nil {
		return &types.StorageError{Backend: "badger", Key: entry.URL, Err: err}
	}
	return nil
}

// Load scans every outcome key.
func (b *BadgerLog) Load() (map[string]types.OutcomeEntry, error) {
	latest := make(map[string]types.OutcomeEntry)
	prefix := []byte(outcomeKeyPrefix)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var e types.OutcomeEntry
				if err := json.Unmarshal(val, &e); err != nil || !e.Outcome.Valid() {
					b.logger.Warn("skipping unreadable outcome entry", "key", string(item.Key()))
					return nil
				}
				latest[e.URL] = e
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &types.StorageError{Backend: "badger", Key: b.path, Err: err}
	}
	return latest, nil
}

// Close flushes and closes the database.
func (b *BadgerLog) Close() error {
	if b.db == nil || b.db.IsClosed() {
		return nil
	}
	return b.db.Close()
}

// badgerLogger routes badger's printf-style logging into slog.
// Badger is chatty at info level, so info is demoted to debug.
type badgerLogger struct {
	l *slog.Logger
}

func (a badgerLogger) Errorf(f string, v ...any)   { a.l.Error(format(f, v)) }
func (a badgerLogger) Warningf(f string, v ...any) { a.l.Warn(format(f, v)) }
func (a badgerLogger) Infof(f string, v ...any)    { a.l.Debug(format(f, v)) }
func (a badgerLogger) Debugf(f string, v ...any)   { a.l.Debug(format(f, v)) }

func format(f string, v []any) string {
	return strings.TrimSpace(fmt.Sprintf(f, v...))
}
