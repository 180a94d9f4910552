// Package recorder persists entity state transitions to PostgreSQL. It keeps
// a rolling window of history and archives purged rows to zstd-compressed
// JSONL files so old data stays recoverable off the hot table.
package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/klauspost/compress/zstd"

	"hearth/internal/types"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx, so the
// recorder works inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// defaultHistoryLimit caps History queries when the caller passes no limit.
const defaultHistoryLimit = 100

const schema = `
CREATE TABLE IF NOT EXISTS state_changes (
	id         UUID PRIMARY KEY,
	entity_id  TEXT NOT NULL,
	old_state  TEXT NOT NULL,
	new_state  TEXT NOT NULL,
	changed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS state_changes_entity_time_idx
	ON state_changes (entity_id, changed_at DESC);
CREATE INDEX IF NOT EXISTS state_changes_time_idx
	ON state_changes (changed_at);
`

// Recorder writes and reads the state_changes table.
type Recorder struct {
	db         DBTX
	archiveDir string
	clock      types.Clock
	logger     *slog.Logger
}

// New creates a Recorder. An empty archiveDir disables purge archiving; a
// nil clock defaults to the wall clock.
func New(db DBTX, archiveDir string, clock types.Clock, logger *slog.Logger) *Recorder {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Recorder{db: db, archiveDir: archiveDir, clock: clock, logger: logger}
}

// EnsureSchema creates the state_changes table and its indexes.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return types.NewAppError(types.ErrCodeInternalRecorder, "failed to create recorder schema", err)
	}
	return nil
}

// Record inserts one state transition.
func (r *Recorder) Record(ctx context.Context, change types.StateChange) error {
	const query = `
		INSERT INTO state_changes (id, entity_id, old_state, new_state, changed_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		change.ID, change.EntityID, change.OldState, change.NewState, change.ChangedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalRecorder, "failed to record state change", err)
	}
	return nil
}

// History returns the most recent transitions for an entity, newest first.
// limit <= 0 applies the default cap.
func (r *Recorder) History(ctx context.Context, entityID string, limit int) ([]types.StateChange, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	const query = `
		SELECT id, entity_id, old_state, new_state, changed_at
		FROM state_changes
		WHERE entity_id = $1
		ORDER BY changed_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, entityID, limit)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalRecorder, "failed to query state history", err)
	}
	defer rows.Close()

	changes, err := scanChanges(rows)
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// Purge deletes transitions older than keepDays, first archiving them when
// an archive directory is configured. It returns the number of rows removed.
func (r *Recorder) Purge(ctx context.Context, keepDays int) (int64, error) {
	cutoff := r.clock.Now().AddDate(0, 0, -keepDays)

	if r.archiveDir != "" {
		if err := r.archive(ctx, cutoff); err != nil {
			return 0, err
		}
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM state_changes WHERE changed_at < $1`, cutoff)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalRecorder, "failed to purge state changes", err)
	}

	removed := tag.RowsAffected()
	if removed > 0 {
		r.logger.Info("purged state changes", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

// archive streams every row older than cutoff into a zstd-compressed JSONL
// file named after the cutoff date. Nothing is written when no rows qualify.
func (r *Recorder) archive(ctx context.Context, cutoff time.Time) error {
	const query = `
		SELECT id, entity_id, old_state, new_state, changed_at
		FROM state_changes
		WHERE changed_at < $1
		ORDER BY changed_at`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalRecorder, "failed to query rows for archive", err)
	}
	defer rows.Close()

	changes, err := scanChanges(rows)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return nil
	}

	if err := r.writeArchive(cutoff, changes); err != nil {
		return types.NewAppError(types.ErrCodeInternalRecorder, "failed to write purge archive", err)
	}
	r.logger.Info("archived state changes", "count", len(changes), "dir", r.archiveDir)
	return nil
}

func (r *Recorder) writeArchive(cutoff time.Time, changes []types.StateChange) error {
	if err := os.MkdirAll(r.archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("state_changes_%s.jsonl.zst", cutoff.Format("20060102T150405Z"))
	f, err := os.Create(filepath.Join(r.archiveDir, name))
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	for _, change := range changes {
		if err := enc.Encode(change); err != nil {
			zw.Close()
			return fmt.Errorf("encode archived change: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush archive: %w", err)
	}
	return nil
}

func scanChanges(rows pgx.Rows) ([]types.StateChange, error) {
	var changes []types.StateChange
	for rows.Next() {
		var c types.StateChange
		if err := rows.Scan(&c.ID, &c.EntityID, &c.OldState, &c.NewState, &c.ChangedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalRecorder, "failed to scan state change row", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalRecorder, "error iterating state change rows", err)
	}
	return changes, nil
}
