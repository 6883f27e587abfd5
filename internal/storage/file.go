package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/IshaanNene/wikiscrape/internal/fsutil"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)

// maxNameBytes keeps names under common filesystem limits once the hash
// suffix and extension are added.
const maxNameBytes = 200

// FileStore writes one JSON document per article into a directory.
type FileStore struct {
	dir          string
	disambiguate bool
	count        atomic.Int64
	logger       *slog.Logger
}

// NewFileStore creates dir if needed. With disambiguate, names carry a
// short hash of the URL so distinct articles with equal sanitized titles
// do not overwrite each other.
func NewFileStore(dir string, disambiguate bool, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Key: dir, Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &FileStore{
		dir:          dir,
		disambiguate: disambiguate,
		logger:       logger.With("component", "file_storage"),
	}, nil
}

func (s *FileStore) Name() string { return "file" }

// Path returns the file a record is written to.
func (s *FileStore) Path(rec *types.ArticleRecord) string {
	name := SanitizeTitle(rec.Title)
	if s.disambiguate {
		sum := sha256.Sum256([]byte(rec.URL))
		name += "-" + hex.EncodeToString(sum[:4])
	}
	return filepath.Join(s.dir, name+".json")
}

// Write encodes rec and replaces the target file atomically.
func (s *FileStore) Write(ctx context.Context, rec *types.ArticleRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeRecord(rec)
	if err != nil {
		return &types.StorageError{Backend: "file", Key: rec.URL, Err: err}
	}

	path := s.Path(rec)
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return &types.StorageError{Backend: "file", Key: path, Err: err}
	}

	s.count.Add(1)
	s.logger.Debug("record written", "path", path, "url", rec.URL)
	return nil
}

func (s *FileStore) Close() error {
	s.logger.Info("file storage closing", "dir", s.dir, "records", s.count.Load())
	return nil
}

// encodeRecord renders rec as two-space indented JSON without HTML escaping.
func encodeRecord(rec *types.ArticleRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf.Bytes(), nil
}

// SanitizeTitle maps an article title to a file name stem: reserved and
// control characters become '_', surrounding whitespace is trimmed, and
// spaces become '_'. An empty result becomes "untitled".
func SanitizeTitle(title string) string {
	name := invalidFilenameChars.ReplaceAllString(title, "_")
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")

	if len(name) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut]
	}
	if name == "" {
		return "untitled"
	}
	return name
}
