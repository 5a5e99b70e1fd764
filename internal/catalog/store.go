// Package catalog stores the queries of parsed documents in SQLite, one
// snapshot per run, so other tools can look them up without re-parsing.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/leapstack-labs/querybinder/pkg/manifest"
)

// Snapshot is one catalog run.
type Snapshot struct {
	ID         string
	CreatedAt  time.Time
	FileCount  int
	QueryCount int
}

// StoredQuery is a query as persisted in a snapshot.
type StoredQuery struct {
	File string
	manifest.Query
}

// Store is a SQLite-backed query catalog.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore creates a new catalog store. A nil logger discards output.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{logger: logger}
}

// NewStoreWithDB wraps an already opened database.
func NewStoreWithDB(db *sql.DB, logger *slog.Logger) *Store {
	s := NewStore(logger)
	s.db = db
	return s
}

// Open opens the catalog database at path.
// Use ":memory:" for an in-memory database.
func (s *Store) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s.db = db
	s.path = path
	s.logger.Debug("catalog opened", "path", path)
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new snapshot ID.
func generateID() string {
	return uuid.New().String()
}

// SaveManifests records all queries of the given manifests as a new snapshot.
func (s *Store) SaveManifests(ctx context.Context, manifests []*manifest.Manifest) (*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	snap := &Snapshot{
		ID:        generateID(),
		CreatedAt: time.Now().UTC(),
		FileCount: len(manifests),
	}
	for _, m := range manifests {
		snap.QueryCount += len(m.Queries)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, file_count, query_count) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.CreatedAt, snap.FileCount, snap.QueryCount,
	); err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	for _, m := range manifests {
		for _, q := range m.Queries {
			if err := insertQuery(ctx, tx, snap.ID, m.File, q); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.Info("catalog snapshot saved", "id", snap.ID, "files", snap.FileCount, "queries", snap.QueryCount)
	return snap, nil
}

func insertQuery(ctx context.Context, tx *sql.Tx, snapshotID, file string, q manifest.Query) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO queries (snapshot_id, file, name, line, result_type, sql, docs) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snapshotID, file, q.Name, q.Line, q.ResultType, q.SQL, strings.Join(q.Docs, "\n"),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query %s: %w", q.Name, err)
	}

	queryID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get id of query %s: %w", q.Name, err)
	}

	for i, p := range q.Parameters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO parameters (query_id, position, name, type) VALUES (?, ?, ?, ?)`,
			queryID, i, p.Name, p.Type,
		); err != nil {
			return fmt.Errorf("failed to insert parameter %s of query %s: %w", p.Name, q.Name, err)
		}
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot, or nil if there is none.
func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	snap := &Snapshot{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, file_count, query_count FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT 1`,
	).Scan(&snap.ID, &snap.CreatedAt, &snap.FileCount, &snap.QueryCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snap, nil
}

// ListQueries returns the queries of a snapshot in file and source order,
// with their parameters in declaration order.
func (s *Store) ListQueries(ctx context.Context, snapshotID string) ([]StoredQuery, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.file, q.name, q.line, q.result_type, q.sql, q.docs
		 FROM queries q WHERE q.snapshot_id = ? ORDER BY q.id`,
		snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	var queries []StoredQuery
	for rows.Next() {
		var id int64
		var q StoredQuery
		var docs string
		if err := rows.Scan(&id, &q.File, &q.Name, &q.Line, &q.ResultType, &q.SQL, &docs); err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		if docs != "" {
			q.Docs = strings.Split(docs, "\n")
		}
		q.Parameters = []manifest.Param{}
		ids = append(ids, id)
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queries: %w", err)
	}

	for i, id := range ids {
		params, err := s.listParameters(ctx, id)
		if err != nil {
			return nil, err
		}
		queries[i].Parameters = params
	}
	return queries, nil
}

func (s *Store) listParameters(ctx context.Context, queryID int64) ([]manifest.Param, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, type FROM parameters WHERE query_id = ? ORDER BY position`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list parameters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	params := []manifest.Param{}
	for rows.Next() {
		var p manifest.Param
		if err := rows.Scan(&p.Name, &p.Type); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}
