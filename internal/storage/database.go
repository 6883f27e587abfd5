package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/wikiscrape/internal/types"
)

// MongoStore upserts one document per article, keyed by URL.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	count      atomic.Int64
	logger     *slog.Logger
}

// NewMongoStore connects, pings and ensures a unique index on url.
func NewMongoStore(ctx context.Context, uri, database, collection string, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	coll := client.Database(database).Collection(collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("create url index: %w", err)}
	}

	return &MongoStore{
		client:     client,
		collection: coll,
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoStore) Name() string { return "mongodb" }

// Write replaces the document for rec.URL, inserting it if absent.
func (s *MongoStore) Write(ctx context.Context, rec *types.ArticleRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.collection.ReplaceOne(ctx,
		bson.D{{Key: "url", Value: rec.URL}},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return &types.StorageError{Backend: "mongodb", Key: rec.URL, Err: err}
	}

	n := s.count.Add(1)
	s.logger.Debug("record stored in mongodb", "url", rec.URL, "total", n)
	return nil
}

func (s *MongoStore) Close() error {
	s.logger.Info("mongodb storage closing", "records", s.count.Load())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Store Fan-Out ---

// MultiStore writes each record to several backends.
type MultiStore struct {
	backends []RecordStore
	logger   *slog.Logger
}

// NewMultiStore creates a store that fans out to backends in order.
func NewMultiStore(backends []RecordStore, logger *slog.Logger) *MultiStore {
	return &MultiStore{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiStore) Name() string { return "multi" }

// Write tries every backend and joins their errors.
func (s *MultiStore) Write(ctx context.Context, rec *types.ArticleRecord) error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Write(ctx, rec); err != nil {
			s.logger.Error("backend write failed", "backend", backend.Name(), "url", rec.URL, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *MultiStore) Close() error {
	var errs []error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
