package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/querybinder/internal/testutil"
	"github.com/leapstack-labs/querybinder/pkg/manifest"
)

func setupTestStore(t *testing.T, path string) *Store {
	t.Helper()
	store := NewStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(path))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate())
	return store
}

func testManifests() []*manifest.Manifest {
	return []*manifest.Manifest{
		{
			File: "queries/users.sql",
			Queries: []manifest.Query{
				{
					Name:       "get_user",
					Line:       3,
					Docs:       []string{"Look up one user.", "By id."},
					Parameters: []manifest.Param{{Name: "id", Type: "Int"}},
					ResultType: "User",
					SQL:        "SELECT * FROM users WHERE id = $1;",
				},
				{
					Name:       "list_users",
					Line:       9,
					Parameters: []manifest.Param{},
					ResultType: "[]User",
					SQL:        "SELECT * FROM users;",
				},
			},
		},
		{
			File: "queries/orders.sql",
			Queries: []manifest.Query{
				{
					Name: "orders_for_user",
					Line: 1,
					Parameters: []manifest.Param{
						{Name: "user_id", Type: "Int"},
						{Name: "limit", Type: "Int"},
						{Name: "cursor", Type: "Option<Text>"},
					},
					ResultType: "Order",
					SQL:        "SELECT * FROM orders WHERE user_id = $1 LIMIT $2;",
				},
			},
		},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, filepath.Join(t.TempDir(), "catalog.db"))

	snap, err := store.SaveManifests(ctx, testManifests())
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2, snap.FileCount)
	assert.Equal(t, 3, snap.QueryCount)

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, snap.ID, latest.ID)
	assert.Equal(t, 3, latest.QueryCount)

	queries, err := store.ListQueries(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, queries, 3)

	assert.Equal(t, "queries/users.sql", queries[0].File)
	assert.Equal(t, "get_user", queries[0].Name)
	assert.Equal(t, 3, queries[0].Line)
	assert.Equal(t, []string{"Look up one user.", "By id."}, queries[0].Docs)
	assert.Equal(t, "SELECT * FROM users WHERE id = $1;", queries[0].SQL)

	assert.Equal(t, "list_users() -> []User", queries[1].Signature())
	assert.Nil(t, queries[1].Docs)
	assert.NotNil(t, queries[1].Parameters)

	assert.Equal(t, "queries/orders.sql", queries[2].File)
	assert.Equal(t, "orders_for_user(user_id: Int, limit: Int, cursor: Option<Text>) -> Order", queries[2].Signature())
}

func TestStore_LatestSnapshotWins(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, ":memory:")

	_, err := store.SaveManifests(ctx, testManifests())
	require.NoError(t, err)
	second, err := store.SaveManifests(ctx, testManifests()[:1])
	require.NoError(t, err)

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 1, latest.FileCount)

	queries, err := store.ListQueries(ctx, latest.ID)
	require.NoError(t, err)
	assert.Len(t, queries, 2)
}

func TestStore_Empty(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t, ":memory:")

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	queries, err := store.ListQueries(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, queries)
}

func TestStore_MigrationVersion(t *testing.T) {
	store := setupTestStore(t, ":memory:")

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Running migrations again is a no-op.
	require.NoError(t, store.Migrate())
}

func TestStore_NotOpened(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	_, err := store.SaveManifests(ctx, nil)
	assert.EqualError(t, err, "database not opened")
	_, err = store.LatestSnapshot(ctx)
	assert.EqualError(t, err, "database not opened")
	_, err = store.ListQueries(ctx, "id")
	assert.EqualError(t, err, "database not opened")
	assert.EqualError(t, store.Migrate(), "database not opened")
	_, err = store.MigrationVersion()
	assert.EqualError(t, err, "database not opened")
	assert.NoError(t, store.Close())
}

func TestStore_SaveManifestsRollsBack(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(assert.AnError)
			},
			errMsg: "failed to begin transaction",
		},
		{
			name: "snapshot insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO snapshots").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to create snapshot",
		},
		{
			name: "query insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO snapshots").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO queries").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to insert query get_user",
		},
		{
			name: "parameter insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO snapshots").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO queries").WillReturnResult(sqlmock.NewResult(7, 1))
				mock.ExpectExec("INSERT INTO parameters").
					WithArgs(int64(7), int64(0), "id", "Int").
					WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to insert parameter id of query get_user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			store := NewStoreWithDB(db, testutil.NewTestLogger(t))
			snap, err := store.SaveManifests(context.Background(), testManifests())
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_LatestSnapshotNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, created_at, file_count, query_count FROM snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "file_count", "query_count"}))

	store := NewStoreWithDB(db, nil)
	snap, err := store.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}
