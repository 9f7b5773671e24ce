package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	catalogdomain "github.com/mkvend/vendbot/internal/domain/catalog"
	orderdomain "github.com/mkvend/vendbot/internal/domain/order"
)

// Settler performs the claim-then-mark-paid pair in one transaction. The
// order row and the product row are both locked, so a crash or a concurrent
// settlement can never leave a consumed unit without a paid order or vice
// versa.
type Settler struct {
	db *sqlx.DB
}

func (s *Settler) SettleOrder(ctx context.Context, paymentRef string) (string, catalogdomain.Kind, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("postgres: settle: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var o struct {
		ProductID int64  `db:"product_id"`
		Status    string `db:"status"`
	}
	err = tx.GetContext(ctx, &o,
		`SELECT product_id, status FROM orders WHERE payment_ref = $1 FOR UPDATE`,
		paymentRef)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", orderdomain.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("postgres: settle: lock order: %w", err)
	}
	if orderdomain.Status(o.Status) == orderdomain.StatusPaid {
		return "", "", orderdomain.ErrAlreadySettled
	}

	var kind string
	err = tx.GetContext(ctx, &kind,
		`SELECT kind FROM products WHERE id = $1`, o.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", catalogdomain.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("postgres: settle: read product: %w", err)
	}

	unit, err := claimUnitTx(ctx, tx, o.ProductID)
	if err != nil {
		return "", "", err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE payment_ref = $1`,
		paymentRef, string(orderdomain.StatusPaid))
	if err != nil {
		return "", "", fmt.Errorf("postgres: settle: mark paid: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("postgres: settle: commit: %w", err)
	}
	return unit, catalogdomain.Kind(kind), nil
}
