package offlinequeue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallsteps/growthscreen/internal/domain/screening"
)

// PostgresQueue implements screening.OfflineQueue on top of Postgres so
// queued analyses survive process restarts.
type PostgresQueue struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresQueue constructs the queue.
func NewPostgresQueue(pool *pgxpool.Pool, logger *slog.Logger) *PostgresQueue {
	return &PostgresQueue{pool: pool, logger: logger.With("component", "offlinequeue.postgres")}
}

// EnsureSchema creates the queue table when it does not exist yet.
func (q *PostgresQueue) EnsureSchema(ctx context.Context) error {
	_, err := q.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS offline_queue (
			id          UUID PRIMARY KEY,
			request     JSONB NOT NULL,
			enqueued_at TIMESTAMPTZ NOT NULL,
			attempts    INT NOT NULL DEFAULT 0
		)
	`)
	return err
}

func (q *PostgresQueue) Enqueue(ctx context.Context, item screening.QueueItem) error {
	payload, err := json.Marshal(item.Request)
	if err != nil {
		return err
	}
	_, err = q.pool.Exec(ctx, `
		INSERT INTO offline_queue (id, request, enqueued_at, attempts)
		VALUES ($1, $2, $3, $4)
	`, item.ID, payload, item.EnqueuedAt, item.Attempts)
	return err
}

// Drain replays pending rows oldest first. Rows are read in one snapshot so
// concurrent enqueues wait for the next cycle. A successfully replayed row is
// deleted; a failed one keeps its place with the attempt counter bumped. Rows
// whose payload no longer unmarshals are dropped with a warning.
func (q *PostgresQueue) Drain(ctx context.Context, handler screening.DrainHandler) (screening.DrainReport, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, request, enqueued_at, attempts
		FROM offline_queue
		ORDER BY enqueued_at ASC, id ASC
	`)
	if err != nil {
		return screening.DrainReport{}, err
	}
	var (
		items   []screening.QueueItem
		corrupt []string
	)
	for rows.Next() {
		var (
			item    screening.QueueItem
			payload []byte
		)
		if err := rows.Scan(&item.ID, &payload, &item.EnqueuedAt, &item.Attempts); err != nil {
			rows.Close()
			return screening.DrainReport{}, err
		}
		if err := json.Unmarshal(payload, &item.Request); err != nil {
			q.logger.Warn("dropping corrupt queue row", "id", item.ID, "error", err)
			corrupt = append(corrupt, item.ID)
			continue
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return screening.DrainReport{}, err
	}
	for _, id := range corrupt {
		if _, err := q.pool.Exec(ctx, `DELETE FROM offline_queue WHERE id = $1`, id); err != nil {
			q.logger.Warn("failed to delete corrupt queue row", "id", id, "error", err)
		}
	}

	var report screening.DrainReport
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			break
		}
		if err := handler(ctx, item); err != nil {
			report.Failed++
			if _, uerr := q.pool.Exec(ctx, `UPDATE offline_queue SET attempts = attempts + 1 WHERE id = $1`, item.ID); uerr != nil {
				q.logger.Warn("failed to bump queue attempts", "id", item.ID, "error", uerr)
			}
			continue
		}
		if _, derr := q.pool.Exec(ctx, `DELETE FROM offline_queue WHERE id = $1`, item.ID); derr != nil {
			q.logger.Warn("failed to delete replayed queue row", "id", item.ID, "error", derr)
		}
		report.Succeeded++
	}
	return report, nil
}

func (q *PostgresQueue) Pending(ctx context.Context) (screening.QueueStatus, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT COUNT(*), MIN(enqueued_at)
		FROM offline_queue
	`)
	var (
		count  int
		oldest *time.Time
	)
	if err := row.Scan(&count, &oldest); err != nil {
		if err == pgx.ErrNoRows {
			return screening.QueueStatus{}, nil
		}
		return screening.QueueStatus{}, err
	}
	status := screening.QueueStatus{Pending: count}
	if oldest != nil {
		status.OldestQueued = oldest.UTC()
	}
	return status, nil
}

var _ screening.OfflineQueue = (*PostgresQueue)(nil)
