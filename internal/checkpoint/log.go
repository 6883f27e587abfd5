package checkpoint

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// OutcomeLog is an append-only record of extraction outcomes.
type OutcomeLog interface {
	// Append durably records one entry.
	Append(entry types.OutcomeEntry) error
	// Load returns the latest entry per URL.
	Load() (map[string]types.OutcomeEntry, error)
	Close() error
}

// maxLineSize bounds one JSONL entry; URLs and error strings are short.
const maxLineSize = 1 << 20

// FileLog is an OutcomeLog backed by a JSON-lines file.
type FileLog struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// OpenFileLog opens path for appending, creating it if missing.
func OpenFileLog(path string, logger *slog.Logger) (*FileLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Key: path, Err: err}
	}
	return &FileLog{
		path:   path,
		file:   f,
		logger: logger.With("backend", "jsonl"),
	}, nil
}

// Append writes entry as one line.
func (l *FileLog) Append(entry types.OutcomeEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return &types.StorageError{Backend: "jsonl", Key: entry.URL, Err: os.ErrClosed}
	}
	if _, err := l.file.Write(line); err != nil {
		return &types.StorageError{Backend: "jsonl", Key: entry.URL, Err: err}
	}
	return nil
}

// Load replays the file. A line that does not decode, typically the last
// one after a crash mid-write, is skipped with a warning.
func (l *FileLog) Load() (map[string]types.OutcomeEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]types.OutcomeEntry{}, nil
		}
		return nil, &types.StorageError{Backend: "jsonl", Key: l.path, Err: err}
	}
	defer f.Close()

	latest := make(map[string]types.OutcomeEntry)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo, bad := 0, 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var e types.OutcomeEntry
		if err := json.Unmarshal(raw, &e); err != nil || e.URL == "" || !e.Outcome.Valid() {
			bad++
			l.logger.Warn("skipping unreadable outcome entry", "path", l.path, "line", lineNo)
			continue
		}
		latest[e.URL] = e
	}
	if err := scanner.Err(); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Key: l.path, Err: err}
	}

	l.logger.Debug("outcome log loaded", "path", l.path, "entries", lineNo-bad, "urls", len(latest))
	return latest, nil
}

// Close syncs and closes the file.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	syncErr := l.file.Sync()
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(syncErr, closeErr)
}
