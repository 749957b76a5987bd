package postgres

import (
	"context"
	"errors"
	"fmt"

	"paynow-terminal-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// TerminalRepo implements ports.TerminalRepository.
type TerminalRepo struct {
	pool Pool
}

// NewTerminalRepo creates a new TerminalRepo.
func NewTerminalRepo(pool Pool) *TerminalRepo {
	return &TerminalRepo{pool: pool}
}

// GetByID fetches a terminal by its identifier. Returns nil when unknown.
func (r *TerminalRepo) GetByID(ctx context.Context, id string) (*domain.Terminal, error) {
	query := `SELECT id, merchant_id, label, device_key_hash, created_at
		FROM terminals WHERE id = $1`

	t := &domain.Terminal{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.MerchantID, &t.Label, &t.DeviceKeyHash, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get terminal by id: %w", err)
	}
	return t, nil
}

// ListIDs returns every registered terminal id. Used to warm the intent
// store from the mirror at startup.
func (r *TerminalRepo) ListIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM terminals ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list terminal ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan terminal id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate terminal ids: %w", err)
	}
	return ids, nil
}

// Create inserts a new terminal into the database.
func (r *TerminalRepo) Create(ctx context.Context, t *domain.Terminal) error {
	query := `INSERT INTO terminals (id, merchant_id, label, device_key_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		t.ID, t.MerchantID, t.Label, t.DeviceKeyHash, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert terminal: %w", err)
	}
	return nil
}
