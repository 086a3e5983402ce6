package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/papersources"
)

var (
	_ papersources.CallLedger = (*PgRequestLogRepository)(nil)
	_ papersources.Serializer = (*PgRequestLogRepository)(nil)
)

// SessionLocker holds a cross-process lock while fn runs.
// *database.DB implements it with a session advisory lock.
type SessionLocker interface {
	WithSessionLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}

// PgRequestLogRepository persists the outbound call ledger so that every
// worker paces itself against the same history.
type PgRequestLogRepository struct {
	db      DBTX
	locker  SessionLocker
	lockKey int64
}

// NewPgRequestLogRepository creates a ledger. A nil locker disables
// cross-process serialization.
func NewPgRequestLogRepository(db DBTX, locker SessionLocker, lockKey int64) *PgRequestLogRepository {
	return &PgRequestLogRepository{db: db, locker: locker, lockKey: lockKey}
}

// LastCall returns the most recent ledger entry, or nil when there is none.
func (r *PgRequestLogRepository) LastCall(ctx context.Context) (*domain.RequestLog, error) {
	var (
		entry      domain.RequestLog
		paramsJSON []byte
		elapsed    float64
		wait       float64
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, url, params, user_agent, start_time, end_time, elapsed, status_code, wait
		FROM request_logs
		ORDER BY start_time DESC
		LIMIT 1`,
	).Scan(&entry.ID, &entry.URL, &paramsJSON, &entry.UserAgent, &entry.StartTime, &entry.EndTime,
		&elapsed, &entry.StatusCode, &wait)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read last call: %w", err)
	}

	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &entry.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params: %w", err)
		}
	}
	entry.Elapsed = secondsToDuration(elapsed)
	entry.Wait = secondsToDuration(wait)
	return &entry, nil
}

// RecordCall appends a ledger entry.
func (r *PgRequestLogRepository) RecordCall(ctx context.Context, entry *domain.RequestLog) error {
	if entry == nil {
		return domain.NewValidationError("entry", "entry cannot be nil")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	params := entry.Params
	if params == nil {
		params = map[string]string{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO request_logs (id, url, params, user_agent, start_time, end_time, elapsed, status_code, wait)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.URL, paramsJSON, entry.UserAgent, entry.StartTime, entry.EndTime,
		entry.Elapsed.Seconds(), entry.StatusCode, entry.Wait.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record call: %w", err)
	}
	return nil
}

// Serialize runs fn under the ledger's advisory lock.
func (r *PgRequestLogRepository) Serialize(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.locker == nil {
		return fn(ctx)
	}
	return r.locker.WithSessionLock(ctx, r.lockKey, fn)
}

// Prune deletes entries that started before cutoff.
func (r *PgRequestLogRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM request_logs WHERE start_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune request logs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
