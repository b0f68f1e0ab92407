package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"secureshield-assistant/internal/models"
	"secureshield-assistant/internal/vectorindex"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the subset of pgxpool.Pool the snapshot store needs; pgxmock
// satisfies it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB represents the database connection
type DB struct {
	Pool  Pool
	close func()
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool, close: pool.Close}, nil
}

// NewDBWithPool wraps an existing pool.
func NewDBWithPool(pool Pool) *DB {
	return &DB{Pool: pool}
}

// Initialize creates the snapshot table
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS index_snapshots (
            name TEXT PRIMARY KEY,
            dimension INTEGER NOT NULL,
            count INTEGER NOT NULL,
            chunk_texts JSONB NOT NULL,
            vectors BYTEA NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `)
	if err != nil {
		return fmt.Errorf("failed to create index_snapshots table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.close != nil {
		db.close()
	}
}

// SnapshotStore keeps a whole vector index in one row, so the blob and its
// chunk texts are always replaced together.
type SnapshotStore struct {
	db   *DB
	name string
}

// NewSnapshotStore creates a store for the snapshot called name.
func NewSnapshotStore(db *DB, name string) *SnapshotStore {
	return &SnapshotStore{db: db, name: name}
}

// Save upserts the snapshot row.
func (s *SnapshotStore) Save(ctx context.Context, idx *vectorindex.Index) error {
	meta := idx.Metadata()
	texts, err := json.Marshal(meta.ChunkTexts)
	if err != nil {
		return fmt.Errorf("failed to encode chunk texts: %w", err)
	}
	blob, err := idx.Flat().MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx, `
        INSERT INTO index_snapshots (name, dimension, count, chunk_texts, vectors, updated_at)
        VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (name) DO UPDATE SET
            dimension = EXCLUDED.dimension,
            count = EXCLUDED.count,
            chunk_texts = EXCLUDED.chunk_texts,
            vectors = EXCLUDED.vectors,
            updated_at = now()
    `, s.name, meta.Dimension, meta.Count, string(texts), blob)
	if err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", s.name, err)
	}
	return nil
}

// Load reads the snapshot row back into an index.
func (s *SnapshotStore) Load(ctx context.Context) (*vectorindex.Index, error) {
	var (
		meta  vectorindex.Metadata
		texts []byte
		blob  []byte
	)
	err := s.db.Pool.QueryRow(ctx, `
        SELECT dimension, count, chunk_texts, vectors
        FROM index_snapshots
        WHERE name = $1
    `, s.name).Scan(&meta.Dimension, &meta.Count, &texts, &blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %s", models.ErrSnapshotMissing, s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %s: %w", s.name, err)
	}

	if err := json.Unmarshal(texts, &meta.ChunkTexts); err != nil {
		return nil, fmt.Errorf("%w: snapshot %s chunk texts: %w", models.ErrSnapshotCorrupt, s.name, err)
	}
	return vectorindex.Assemble(blob, meta)
}
