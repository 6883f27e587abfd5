// Package storage persists extracted article records.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/wikiscrape/internal/config"
	"github.com/IshaanNene/wikiscrape/internal/types"
)

// RecordStore is the interface for all record backends.
type RecordStore interface {
	// Write persists one record. Writing the same record twice leaves the
	// same final state.
	Write(ctx context.Context, rec *types.ArticleRecord) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// New builds the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (RecordStore, error) {
	switch cfg.Type {
	case "file":
		return NewFileStore(cfg.OutputDir, cfg.Disambiguate, logger)
	case "mongo":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "both":
		fs, err := NewFileStore(cfg.OutputDir, cfg.Disambiguate, logger)
		if err != nil {
			return nil, err
		}
		ms, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			fs.Close()
			return nil, err
		}
		return NewMultiStore([]RecordStore{fs, ms}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
