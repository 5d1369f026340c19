// internal/repository/postgres/queue_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"queueline-service/internal/domain/queue"
	xerrors "queueline-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var _ queue.Registry = (*QueueRepository)(nil)

const entryColumns = `id, business_id, customer_name, customer_phone, service_type, notes,
	position, estimated_service_time, estimated_wait, status,
	joined_at, approved_at, service_started_at, served_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// QueueRepository is the postgres queue.Registry. Outside WithinBusiness every
// call autocommits; inside it all calls share one transaction holding the
// business advisory lock.
type QueueRepository struct {
	db *DB
	q  querier
	tx pgx.Tx
}

func NewQueueRepository(db *DB) *QueueRepository {
	return &QueueRepository{db: db, q: db.pool}
}

// WithinBusiness runs fn in one transaction that first takes a transaction
// scoped advisory lock on the business, so instances sharing the database
// serialize their read-recompute-write cycles.
func (r *QueueRepository) WithinBusiness(ctx context.Context, businessID string, fn func(ctx context.Context, reg queue.Registry) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, businessID); err != nil {
			return fmt.Errorf("failed to lock business %s: %w", businessID, err)
		}
		return fn(ctx, &QueueRepository{db: r.db, q: tx, tx: tx})
	})
}

func (r *QueueRepository) Get(ctx context.Context, id string) (*queue.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM queue_entries WHERE id = $1`

	e, err := scanEntry(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("queue entry %s: %w", id, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return e, nil
}

func (r *QueueRepository) GetActiveByBusiness(ctx context.Context, businessID string) ([]queue.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE business_id = $1 AND status IN ('approved', 'in_service')
		ORDER BY position ASC, id ASC`
	return r.list(ctx, query, businessID)
}

func (r *QueueRepository) GetPendingByBusiness(ctx context.Context, businessID string) ([]queue.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE business_id = $1 AND status = 'pending'
		ORDER BY joined_at ASC, id ASC`
	return r.list(ctx, query, businessID)
}

func (r *QueueRepository) Insert(ctx context.Context, e *queue.Entry) error {
	query := `
		INSERT INTO queue_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.Exec(ctx, query,
		e.ID, e.BusinessID, e.CustomerName, e.CustomerPhone, e.ServiceType, e.Notes,
		e.Position, e.EstimatedServiceTime, e.EstimatedWait, string(e.Status),
		e.JoinedAt, e.ApprovedAt, e.ServiceStartedAt, e.ServedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("queue entry %s: %w", e.ID, xerrors.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return nil
}

func (r *QueueRepository) Update(ctx context.Context, id string, upd queue.EntryUpdate) (*queue.Entry, error) {
	setClauses, args := buildEntryUpdate(upd)
	if len(setClauses) == 0 {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE queue_entries SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), len(args), entryColumns,
	)

	e, err := scanEntry(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("queue entry %s: %w", id, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update queue entry: %w", err)
	}
	return e, nil
}

func (r *QueueRepository) ApplyPlacements(ctx context.Context, businessID string, placements []queue.Placement) error {
	if len(placements) == 0 {
		return nil
	}

	if r.tx != nil {
		return applyPlacements(ctx, r.tx, businessID, placements)
	}
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return applyPlacements(ctx, tx, businessID, placements)
	})
}

func applyPlacements(ctx context.Context, tx pgx.Tx, businessID string, placements []queue.Placement) error {
	batch := &pgx.Batch{}
	for _, p := range placements {
		batch.Queue(
			`UPDATE queue_entries SET position = $1, estimated_wait = $2 WHERE id = $3 AND business_id = $4`,
			p.Position, p.EstimatedWait, p.EntryID, businessID,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, p := range placements {
		tag, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to apply placement for %s: %w", p.EntryID, err)
		}
		if tag.RowsAffected() == 0 {
			_ = results.Close()
			return fmt.Errorf("placement for entry %s: %w", p.EntryID, xerrors.ErrNotFound)
		}
	}
	return results.Close()
}

func (r *QueueRepository) Remove(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM queue_entries WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *QueueRepository) CountServedSince(ctx context.Context, businessID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM queue_entries
		WHERE business_id = $1 AND status = 'served' AND served_at >= $2
	`
	var count int
	if err := r.q.QueryRow(ctx, query, businessID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count served entries: %w", err)
	}
	return count, nil
}

func (r *QueueRepository) ListPendingJoinedBefore(ctx context.Context, cutoff time.Time) ([]queue.Entry, error) {
	query := `SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE status = 'pending' AND joined_at < $1
		ORDER BY joined_at ASC`
	return r.list(ctx, query, cutoff)
}

func (r *QueueRepository) list(ctx context.Context, query string, args ...interface{}) ([]queue.Entry, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue entries: %w", err)
	}
	defer rows.Close()

	entries := []queue.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue entries: %w", err)
	}
	return entries, nil
}

// buildEntryUpdate returns SET clauses numbered from $1.
func buildEntryUpdate(upd queue.EntryUpdate) ([]string, []interface{}) {
	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.Position != nil {
		add("position", *upd.Position)
	}
	if upd.ClearEstimatedWait {
		sets = append(sets, "estimated_wait = NULL")
	} else if upd.EstimatedWait != nil {
		add("estimated_wait", *upd.EstimatedWait)
	}
	if upd.EstimatedServiceTime != nil {
		add("estimated_service_time", *upd.EstimatedServiceTime)
	}
	if upd.ApprovedAt != nil {
		add("approved_at", *upd.ApprovedAt)
	}
	if upd.ServiceStartedAt != nil {
		add("service_started_at", *upd.ServiceStartedAt)
	}
	if upd.ServedAt != nil {
		add("served_at", *upd.ServedAt)
	}
	return sets, args
}

func scanEntry(row pgx.Row) (*queue.Entry, error) {
	var (
		e      queue.Entry
		status string
	)
	err := row.Scan(
		&e.ID, &e.BusinessID, &e.CustomerName, &e.CustomerPhone, &e.ServiceType, &e.Notes,
		&e.Position, &e.EstimatedServiceTime, &e.EstimatedWait, &status,
		&e.JoinedAt, &e.ApprovedAt, &e.ServiceStartedAt, &e.ServedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = queue.Status(status)
	return &e, nil
}
