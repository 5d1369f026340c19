// internal/repository/postgres/business_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"queueline-service/internal/domain/business"
	xerrors "queueline-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

var _ business.Directory = (*BusinessRepository)(nil)

const businessColumns = `id, name, type, phone, address, description, average_service_time, is_active, created_at`

type BusinessRepository struct {
	db *DB
}

func NewBusinessRepository(db *DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

func (r *BusinessRepository) GetBusiness(ctx context.Context, id string) (*business.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`

	b, err := scanBusiness(r.db.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("business %s: %w", id, xerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return b, nil
}

func (r *BusinessRepository) ListActive(ctx context.Context) ([]business.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE is_active = TRUE ORDER BY name ASC`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	out := []business.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Seed inserts businesses that do not exist yet. Used to load the sample
// catalogue into an empty database.
func (r *BusinessRepository) Seed(ctx context.Context, businesses []business.Business) error {
	var count int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM businesses`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count businesses: %w", err)
	}
	if count > 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, b := range businesses {
			_, err := tx.Exec(ctx, `
				INSERT INTO businesses (`+businessColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO NOTHING`,
				b.ID, b.Name, b.Type, b.Phone, b.Address, b.Description,
				b.AverageServiceTime, b.IsActive, b.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to seed business %s: %w", b.Name, err)
			}
		}
		return nil
	})
}

func scanBusiness(row pgx.Row) (*business.Business, error) {
	var b business.Business
	err := row.Scan(
		&b.ID, &b.Name, &b.Type, &b.Phone, &b.Address, &b.Description,
		&b.AverageServiceTime, &b.IsActive, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
