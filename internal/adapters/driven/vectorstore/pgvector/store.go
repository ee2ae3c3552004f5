// Package pgvector stores a collection as a PostgreSQL table with a
// pgvector column.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is bound to one table.
type Store struct {
	db        *sql.DB
	name      string
	table     string
	dim       int
	distance  domain.Distance
	batchSize int
	timeout   time.Duration
}

// New opens a connection pool for dsn. Nothing is sent to the server until
// the first operation.
func New(cfg domain.VectorStoreConfig, dim int) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, &domain.VectorStoreError{
			Op: "open", Collection: cfg.Collection,
			Err: fmt.Errorf("%w: pgvector requires a dsn", domain.ErrInvalidConfig),
		}
	}
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, &domain.VectorStoreError{Op: "open", Collection: cfg.Collection, Err: err}
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(10 * time.Minute)

	return newStore(db, cfg, dim), nil
}

func newStore(db *sql.DB, cfg domain.VectorStoreConfig, dim int) *Store {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = domain.DefaultUpsertBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultVectorStoreTimeout
	}
	return &Store{
		db:        db,
		name:      cfg.Collection,
		table:     pgx.Identifier{cfg.Collection}.Sanitize(),
		dim:       dim,
		distance:  cfg.Distance,
		batchSize: batch,
		timeout:   timeout,
	}
}

func (s *Store) fail(op string, err error) error {
	return &domain.VectorStoreError{Op: op, Collection: s.name, Err: err}
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) create(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return err
	}
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id uuid PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		payload jsonb NOT NULL DEFAULT '{}'::jsonb
	)`, s.table, s.dim)
	_, err := s.db.ExecContext(ctx, q)
	return err
}

// EnsureCollection creates the table when absent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.create(ctx); err != nil {
		return s.fail("ensure", err)
	}
	return nil
}

// Truncate drops and recreates the table.
func (s *Store) Truncate(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+s.table); err != nil {
		return s.fail("truncate", err)
	}
	if err := s.create(ctx); err != nil {
		return s.fail("truncate", err)
	}
	return nil
}

// CollectionExists reports whether the table exists in the search path.
func (s *Store) CollectionExists(ctx context.Context) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT to_regclass($1::text) IS NOT NULL`, s.table).Scan(&ok)
	if err != nil {
		return false, s.fail("exists", err)
	}
	return ok, nil
}

// Upsert validates every point, then writes each batch in one transaction.
func (s *Store) Upsert(ctx context.Context, points []domain.VectorPoint) ([]string, error) {
	for i, p := range points {
		if err := domain.ValidateVector(p.Vector, s.dim); err != nil {
			return nil, s.fail("upsert", fmt.Errorf("point %d: %w", i, err))
		}
	}

	q := fmt.Sprintf(`INSERT INTO %s (id, embedding, payload) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, s.table)

	ids := make([]string, 0, len(points))
	for start := 0; start < len(points); start += s.batchSize {
		batch := points[start:min(start+s.batchSize, len(points))]
		if err := s.writeBatch(ctx, q, batch); err != nil {
			return nil, s.fail("upsert", err)
		}
		for _, p := range batch {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (s *Store) writeBatch(ctx context.Context, q string, batch []domain.VectorPoint) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range batch {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("marshal payload %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, pgvector.NewVector(p.Vector), payload); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// searchQuery builds the similarity query. Filter values are compared as
// text against payload->>key, so numbers and booleans match their JSON
// rendering.
func searchQuery(table string, distance domain.Distance, topK int, filter map[string]any) (string, []any) {
	op := "<=>"
	switch distance {
	case domain.DistanceEuclid:
		op = "<->"
	case domain.DistanceDot:
		op = "<#>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id::text, payload, embedding %s $1 AS d FROM %s", op, table)

	args := []any{nil}
	keys := slices.Sorted(maps.Keys(filter))
	for i, k := range keys {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, k, filterText(filter[k]))
		fmt.Fprintf(&b, "payload->>$%d::text = $%d", len(args)-1, len(args))
	}
	args = append(args, topK)
	fmt.Fprintf(&b, " ORDER BY d LIMIT $%d", len(args))
	return b.String(), args
}

func filterText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}

// similarity converts an operator distance into a higher-is-closer score.
func similarity(distance domain.Distance, d float64) float64 {
	if distance == domain.DistanceCosine || distance == "" {
		return 1 - d
	}
	// <-> is a distance and <#> is the negated inner product.
	return -d
}

// Search returns up to topK hits ordered by distance.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]domain.ScoredPoint, error) {
	if err := domain.ValidateVector(vector, s.dim); err != nil {
		return nil, s.fail("search", err)
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q, args := searchQuery(s.table, s.distance, topK, filter)
	args[0] = pgvector.NewVector(vector)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, s.fail("search", err)
	}
	defer rows.Close()

	var hits []domain.ScoredPoint
	for rows.Next() {
		var (
			id      string
			payload []byte
			d       float64
		)
		if err := rows.Scan(&id, &payload, &d); err != nil {
			return nil, s.fail("search", err)
		}
		var fields map[string]any
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, s.fail("search", fmt.Errorf("decode payload %s: %w", id, err))
		}
		hits = append(hits, domain.ScoredPoint{ID: id, Score: similarity(s.distance, d), Payload: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("search", err)
	}
	return hits, nil
}

// Count returns the number of rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+s.table).Scan(&n); err != nil {
		return 0, s.fail("count", err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
