package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	domain "github.com/mkvend/vendbot/internal/domain/order"
)

// uniqueViolation is the Postgres error code raised by the payment_ref
// uniqueness constraint.
const uniqueViolation = "23505"

type OrderRepository struct {
	db *sqlx.DB
}

type orderRow struct {
	ID          int64     `db:"id"`
	BuyerID     int64     `db:"buyer_id"`
	BuyerName   string    `db:"buyer_name"`
	ProductID   int64     `db:"product_id"`
	ProductName string    `db:"product_name"`
	Price       string    `db:"price"`
	PaymentRef  string    `db:"payment_ref"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r orderRow) toDomain() (*domain.Order, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, fmt.Errorf("postgres: order %d price %q: %w", r.ID, r.Price, err)
	}
	return &domain.Order{
		ID:          r.ID,
		BuyerID:     r.BuyerID,
		BuyerName:   r.BuyerName,
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		Price:       price,
		PaymentRef:  r.PaymentRef,
		Status:      domain.Status(r.Status),
		CreatedAt:   r.CreatedAt,
	}, nil
}

func (r *OrderRepository) Open(ctx context.Context, o *domain.Order) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO orders (buyer_id, buyer_name, product_id, product_name, price, payment_ref, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		o.BuyerID, o.BuyerName, o.ProductID, o.ProductName,
		o.Price.StringFixed(2), o.PaymentRef, string(o.Status), o.CreatedAt,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, domain.ErrDuplicateRef
		}
		return 0, fmt.Errorf("postgres: open order: %w", err)
	}
	o.ID = id
	return id, nil
}

func (r *OrderRepository) FindByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, buyer_id, buyer_name, product_id, product_name,
		        price::text AS price, payment_ref, status, created_at
		 FROM orders WHERE payment_ref = $1`, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find order: %w", err)
	}
	return row.toDomain()
}

func (r *OrderRepository) MarkPaid(ctx context.Context, ref string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE payment_ref = $1`,
		ref, string(domain.StatusPaid))
	if err != nil {
		return fmt.Errorf("postgres: mark paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: mark paid: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, buyer_id, buyer_name, product_id, product_name,
		        price::text AS price, payment_ref, status, created_at
		 FROM orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *OrderRepository) Stats(ctx context.Context) (*domain.SalesStats, error) {
	var totals struct {
		Revenue string `db:"revenue"`
		Count   int    `db:"count"`
	}
	err := r.db.GetContext(ctx, &totals,
		`SELECT COALESCE(SUM(price), 0)::text AS revenue, COUNT(*) AS count
		 FROM orders WHERE status = $1`, string(domain.StatusPaid))
	if err != nil {
		return nil, fmt.Errorf("postgres: stats totals: %w", err)
	}
	revenue, err := decimal.NewFromString(totals.Revenue)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats revenue %q: %w", totals.Revenue, err)
	}

	var topRows []struct {
		ProductID   int64  `db:"product_id"`
		ProductName string `db:"product_name"`
		Count       int    `db:"count"`
		Revenue     string `db:"revenue"`
	}
	err = r.db.SelectContext(ctx, &topRows,
		`SELECT product_id, MAX(product_name) AS product_name,
		        COUNT(*) AS count, SUM(price)::text AS revenue
		 FROM orders WHERE status = $1
		 GROUP BY product_id
		 ORDER BY count DESC, product_id ASC
		 LIMIT $2`, string(domain.StatusPaid), domain.TopProductsLimit)
	if err != nil {
		return nil, fmt.Errorf("postgres: stats top products: %w", err)
	}

	top := make([]domain.ProductSales, 0, len(topRows))
	for _, row := range topRows {
		rev, err := decimal.NewFromString(row.Revenue)
		if err != nil {
			return nil, fmt.Errorf("postgres: stats product revenue %q: %w", row.Revenue, err)
		}
		top = append(top, domain.ProductSales{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Count:       row.Count,
			Revenue:     rev,
		})
	}

	return &domain.SalesStats{
		TotalRevenue: revenue,
		PaidCount:    totals.Count,
		TopProducts:  top,
	}, nil
}
