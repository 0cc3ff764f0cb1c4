package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxclip/internal/clipstore"
	"voxclip/internal/services"
)

func mockClips() []clipstore.Clip {
	return []clipstore.Clip{
		{Index: 1, Name: "v-001.wav", Duration: 5, CloudRef: "gs://b/v/v-001.wav"},
		{Index: 2, Name: "v-002.wav", Duration: 6, CloudRef: "gs://b/v/v-002.wav"},
	}
}

func TestPersistPostgresRebindsAndCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewWithDB(db, DialectPostgres)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO videos")).
		WithArgs("v", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-1"))
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (video_id, clip_index) DO UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-2"))
	mock.ExpectCommit()

	rows, err := store.Persist(context.Background(), clipstore.Video{VideoID: "v"}, mockClips())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "id-1", rows[0].ID)
	assert.Equal(t, "id-2", rows[1].ID)
	assert.Equal(t, 2, rows[1].ClipIndex)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRollsBackOnClipFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewWithDB(db, DialectSQLite)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO videos")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO clips")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-1"))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO clips")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err = store.Persist(context.Background(), clipstore.Video{VideoID: "v"}, mockClips())
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrPersistence)
	assert.Contains(t, err.Error(), "upsert clip 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersistRetriesBusy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewWithDB(db, DialectSQLite)

	mock.ExpectBegin().WillReturnError(errors.New("database is locked (5) (SQLITE_BUSY)"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO videos")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO clips")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-1"))
	mock.ExpectCommit()

	rows, err := store.Persist(context.Background(), clipstore.Video{VideoID: "v"}, mockClips()[:1])
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListClipsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewWithDB(db, DialectPostgres)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clips WHERE video_id = $1 ORDER BY clip_index")).
		WithArgs("v").
		WillReturnError(errors.New("boom"))
	_, err = store.ListClips(context.Background(), "v")
	assert.ErrorIs(t, err, services.ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &Store{dialect: DialectSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://***@db:5432/voxclip", redactDSN("postgres://user:secret@db:5432/voxclip"))
	assert.Equal(t, "host=db", redactDSN("host=db"))
}

func TestPingFailureIsPersistenceError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	store := NewWithDB(db, DialectPostgres)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = store.Ping(context.Background())
	assert.ErrorIs(t, err, services.ErrPersistence)

	mock.ExpectPing()
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
