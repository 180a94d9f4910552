package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hearth/internal/types"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// changeMockRows implements pgx.Rows over a fixed slice of state changes.
type changeMockRows struct {
	data    []types.StateChange
	idx     int
	closed  bool
	scanErr error
	errVal  error
}

func newChangeMockRows(data ...types.StateChange) *changeMockRows {
	return &changeMockRows{data: data, idx: -1}
}

func (r *changeMockRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *changeMockRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("no current row")
	}
	c := r.data[r.idx]
	*dest[0].(*string) = c.ID
	*dest[1].(*string) = c.EntityID
	*dest[2].(*string) = c.OldState
	*dest[3].(*string) = c.NewState
	*dest[4].(*time.Time) = c.ChangedAt
	return nil
}

func (r *changeMockRows) Close()                                       { r.closed = true }
func (r *changeMockRows) Err() error                                   { return r.errVal }
func (r *changeMockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *changeMockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *changeMockRows) RawValues() [][]byte                          { return nil }
func (r *changeMockRows) Values() ([]any, error)                       { return nil, nil }
func (r *changeMockRows) Conn() *pgx.Conn                              { return nil }

// --- Helpers ---

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testChange(entityID, oldState, newState string, at time.Time) types.StateChange {
	return types.StateChange{
		ID:        "c1b0e5a0-0000-0000-0000-000000000001",
		EntityID:  entityID,
		OldState:  oldState,
		NewState:  newState,
		ChangedAt: at,
	}
}

// --- Tests ---

func TestRecorder_Record(t *testing.T) {
	db := new(mockDBTX)
	rec := New(db, "", nil, testLogger())
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := rec.Record(ctx, testChange("sensor.forecast_temperature", "21.4", "21.5", time.Now()))
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestRecorder_Record_DBError(t *testing.T) {
	db := new(mockDBTX)
	rec := New(db, "", nil, testLogger())
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := rec.Record(ctx, testChange("sensor.forecast_temperature", "21.4", "21.5", time.Now()))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalRecorder, appErr.Code)
}

func TestRecorder_History(t *testing.T) {
	db := new(mockDBTX)
	rec := New(db, "", nil, testLogger())
	ctx := context.Background()

	now := time.Now().UTC()
	rows := newChangeMockRows(
		testChange("garage_door.garage_door", "closed", "open", now),
		testChange("garage_door.garage_door", "open", "closed", now.Add(-time.Hour)),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"garage_door.garage_door", 50}).
		Return(rows, nil)

	changes, err := rec.History(ctx, "garage_door.garage_door", 50)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "open", changes[0].NewState)
	db.AssertExpectations(t)
}

func TestRecorder_History_DefaultLimit(t *testing.T) {
	db := new(mockDBTX)
	rec := New(db, "", nil, testLogger())
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), []any{"sensor.forecast_humidity", defaultHistoryLimit}).
		Return(newChangeMockRows(), nil)

	changes, err := rec.History(ctx, "sensor.forecast_humidity", 0)
	require.NoError(t, err)
	assert.Empty(t, changes)
	db.AssertExpectations(t)
}

func TestRecorder_History_ScanError(t *testing.T) {
	db := new(mockDBTX)
	rec := New(db, "", nil, testLogger())
	ctx := context.Background()

	rows := newChangeMockRows(testChange("sensor.forecast_ozone", "267", "268", time.Now()))
	rows.scanErr = errors.New("type mismatch")
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	_, err := rec.History(ctx, "sensor.forecast_ozone", 10)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalRecorder, appErr.Code)
}

func TestRecorder_Purge_WithoutArchive(t *testing.T) {
	db := new(mockDBTX)
	clock := &fakeClock{now: time.Date(2016, 3, 11, 0, 0, 0, 0, time.UTC)}
	rec := New(db, "", clock, testLogger())
	ctx := context.Background()

	cutoff := clock.now.AddDate(0, 0, -10)
	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{cutoff}).
		Return(pgconn.NewCommandTag("DELETE 42"), nil)

	removed, err := rec.Purge(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(42), removed)
	db.AssertExpectations(t)
}

func TestRecorder_Purge_ArchivesBeforeDelete(t *testing.T) {
	db := new(mockDBTX)
	clock := &fakeClock{now: time.Date(2016, 3, 11, 0, 0, 0, 0, time.UTC)}
	dir := t.TempDir()
	rec := New(db, dir, clock, testLogger())
	ctx := context.Background()

	old := testChange("sensor.forecast_temperature", "20.1", "21.4", clock.now.AddDate(0, 0, -30))
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(newChangeMockRows(old), nil)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 1"), nil)

	removed, err := rec.Purge(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".jsonl.zst"))

	// The archive decompresses back to the purged rows.
	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	defer f.Close()
	zr, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer zr.Close()

	var got types.StateChange
	require.NoError(t, json.NewDecoder(zr).Decode(&got))
	assert.Equal(t, old.EntityID, got.EntityID)
	assert.Equal(t, old.NewState, got.NewState)
}

func TestRecorder_Purge_NoArchiveFileWhenNothingQualifies(t *testing.T) {
	db := new(mockDBTX)
	dir := t.TempDir()
	rec := New(db, dir, &fakeClock{now: time.Now().UTC()}, testLogger())
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(newChangeMockRows(), nil)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("DELETE 0"), nil)

	removed, err := rec.Purge(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecorder_EnsureSchema_DBError(t *testing.T) {
	db := new(mockDBTX)
	rec := New(db, "", nil, testLogger())
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("permission denied"))

	err := rec.EnsureSchema(ctx)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalRecorder, appErr.Code)
}
