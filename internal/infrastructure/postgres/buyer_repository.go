package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	domain "github.com/mkvend/vendbot/internal/domain/buyer"
)

type BuyerRepository struct {
	db *sqlx.DB
}

func (r *BuyerRepository) Upsert(ctx context.Context, b *domain.Buyer) error {
	if b == nil {
		return nil
	}
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO buyers (id, username, first_name, last_name, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		b.ID, b.Username, b.FirstName, b.LastName, createdAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert buyer: %w", err)
	}
	return nil
}
