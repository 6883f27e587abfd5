// Package checkpoint persists crawl progress so an interrupted run can resume:
// the discovered URL list and an append-only log of per-URL outcomes.
package checkpoint

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/fsutil"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

const (
	fileLogName   = "outcomes.jsonl"
	badgerLogName = "outcomes.db"
)

// Store owns the checkpoint directory.
type Store struct {
	dir         string
	urlListFile string
	backend     string
	logger      *slog.Logger
}

// NewStore creates a Store rooted at cfg.Dir, creating the directory if needed.
func NewStore(cfg config.CheckpointConfig, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "checkpoint", Key: cfg.Dir, Err: err}
	}
	return &Store{
		dir:         cfg.Dir,
		urlListFile: cfg.URLListFile,
		backend:     cfg.Backend,
		logger:      logger.With("component", "checkpoint"),
	}, nil
}

// FrontierPath is the location of the URL list.
func (s *Store) FrontierPath() string {
	return filepath.Join(s.dir, s.urlListFile)
}

// SaveFrontier writes urls one per line, sorted. The file is replaced
// atomically so a crash never leaves a truncated list behind.
func (s *Store) SaveFrontier(urls []string) error {
	sorted := slices.Clone(urls)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var b strings.Builder
	for _, u := range sorted {
		b.WriteString(u)
		b.WriteByte('\n')
	}

	path := s.FrontierPath()
	if err := fsutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return &types.StorageError{Backend: "checkpoint", Key: path, Err: err}
	}
	s.logger.Info("frontier saved", "path", path, "urls", len(sorted))
	return nil
}

// LoadFrontier reads the URL list. It returns types.ErrNoFrontier when no
// list has been written yet.
func (s *Store) LoadFrontier() ([]string, error) {
	path := s.FrontierPath()
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.ErrNoFrontier
		}
		return nil, &types.StorageError{Backend: "checkpoint", Key: path, Err: err}
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &types.StorageError{Backend: "checkpoint", Key: path, Err: err}
	}

	s.logger.Info("frontier loaded", "path", path, "urls", len(urls))
	return urls, nil
}

// HasFrontier reports whether a URL list exists.
func (s *Store) HasFrontier() bool {
	_, err := os.Stat(s.FrontierPath())
	return err == nil
}

// OpenLog opens the outcome log for the configured backend.
func (s *Store) OpenLog() (OutcomeLog, error) {
	switch s.backend {
	case "", "file":
		return OpenFileLog(filepath.Join(s.dir, fileLogName), s.logger)
	case "badger":
		return OpenBadgerLog(filepath.Join(s.dir, badgerLogName), s.logger)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", s.backend)
	}
}

// Reset removes the URL list and both outcome log variants.
func (s *Store) Reset() error {
	for _, path := range []string{
		s.FrontierPath(),
		filepath.Join(s.dir, fileLogName),
		filepath.Join(s.dir, badgerLogName),
	} {
		if err := os.RemoveAll(path); err != nil {
			return &types.StorageError{Backend: "checkpoint", Key: path, Err: err}
		}
	}
	s.logger.Warn("checkpoint state reset", "dir", s.dir)
	return nil
}
