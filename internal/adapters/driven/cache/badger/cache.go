// Package badger stores embedding vectors in a BadgerDB key-value store.
package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// keyPrefix namespaces cache entries inside the database.
const keyPrefix = "emb/"

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache is a driven.EmbeddingCache backed by BadgerDB.
type Cache struct {
	db *badger.DB
}

// badgerLogger routes badger's logging through the process logger.
type badgerLogger struct{}

var _ badger.Logger = badgerLogger{}

func (badgerLogger) Errorf(msg string, items ...any)   { logger.Error("badger: "+msg, items...) }
func (badgerLogger) Warningf(msg string, items ...any) { logger.Warn("badger: "+msg, items...) }
func (badgerLogger) Infof(msg string, items ...any)    { logger.Debug("badger: "+msg, items...) }
func (badgerLogger) Debugf(msg string, items ...any)   { logger.Debug("badger: "+msg, items...) }

// Open opens (creating if needed) a cache in dir. An empty dir opens an
// in-memory cache.
func Open(dir string) (*Cache, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts.Logger = badgerLogger{}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached vector for key.
func (c *Cache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			vec = decode(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading badger cache: %w", err)
	}
	return vec, true, nil
}

// Set stores the vector for key.
func (c *Cache) Set(ctx context.Context, key string, vec []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), encode(vec))
	})
	if err != nil {
		return fmt.Errorf("writing badger cache: %w", err)
	}
	return nil
}

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func encode(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decode(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
