package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	domain "github.com/mkvend/vendbot/internal/domain/catalog"
)

type CatalogRepository struct {
	db *sqlx.DB
}

type productRow struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Price       string    `db:"price"`
	Stock       string    `db:"stock"`
	Kind        string    `db:"kind"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r productRow) toDomain() (*domain.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, fmt.Errorf("postgres: product %d price %q: %w", r.ID, r.Price, err)
	}
	return &domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       price,
		Kind:        domain.Kind(r.Kind),
		Units:       domain.SplitUnits(r.Stock),
		CreatedAt:   r.CreatedAt,
	}, nil
}

func (r *CatalogRepository) Create(ctx context.Context, p *domain.Product) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, price, stock, kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.Name, p.Description, p.Price.StringFixed(2), domain.JoinUnits(p.Units),
		string(p.Kind), p.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create product: %w", err)
	}
	p.ID = id
	return id, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row,
		`SELECT id, name, description, price::text AS price, stock, kind, created_at
		 FROM products WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get product: %w", err)
	}
	return row.toDomain()
}

func (r *CatalogRepository) List(ctx context.Context) ([]*domain.Product, error) {
	var rows []productRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, name, description, price::text AS price, stock, kind, created_at
		 FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	out := make([]*domain.Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *CatalogRepository) Update(ctx context.Context, id int64, patch domain.Patch) error {
	set := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Name != nil {
		args = append(args, *patch.Name)
		set = append(set, fmt.Sprintf("name = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.Price != nil {
		if patch.Price.LessThanOrEqual(decimal.Zero) {
			return domain.ErrInvalidPrice
		}
		args = append(args, patch.Price.StringFixed(2))
		set = append(set, fmt.Sprintf("price = $%d", len(args)))
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", joinSet(set), len(args))
	return r.execExpectingRow(ctx, query, args...)
}

func (r *CatalogRepository) Delete(ctx context.Context, id int64) error {
	return r.execExpectingRow(ctx, `DELETE FROM products WHERE id = $1`, id)
}

func (r *CatalogRepository) AppendUnits(ctx context.Context, id int64, units []string) error {
	units = domain.NormalizeUnits(units)
	if len(units) == 0 {
		return nil
	}
	// Single-statement append keeps concurrent restocks from losing lines.
	return r.execExpectingRow(ctx,
		`UPDATE products
		 SET stock = CASE WHEN stock = '' THEN $2 ELSE stock || E'\n' || $2 END
		 WHERE id = $1`,
		id, domain.JoinUnits(units))
}

func (r *CatalogRepository) ReplaceUnits(ctx context.Context, id int64, units []string) error {
	return r.execExpectingRow(ctx,
		`UPDATE products SET stock = $2 WHERE id = $1`,
		id, domain.JoinUnits(domain.NormalizeUnits(units)))
}

func (r *CatalogRepository) ClaimUnit(ctx context.Context, id int64) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("postgres: claim unit: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	unit, err := claimUnitTx(ctx, tx, id)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("postgres: claim unit: commit: %w", err)
	}
	return unit, nil
}

// claimUnitTx pops the head unit inside the caller's transaction. The row
// lock on the product serializes concurrent claims.
func claimUnitTx(ctx context.Context, tx *sqlx.Tx, id int64) (string, error) {
	var row struct {
		Stock string `db:"stock"`
		Kind  string `db:"kind"`
	}
	err := tx.GetContext(ctx, &row,
		`SELECT stock, kind FROM products WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: claim unit: lock: %w", err)
	}

	units := domain.SplitUnits(row.Stock)
	if len(units) == 0 {
		return "", domain.ErrOutOfStock
	}
	unit := units[0]

	if domain.Kind(row.Kind) != domain.KindFile {
		_, err = tx.ExecContext(ctx,
			`UPDATE products SET stock = $2 WHERE id = $1`,
			id, domain.JoinUnits(units[1:]))
		if err != nil {
			return "", fmt.Errorf("postgres: claim unit: update: %w", err)
		}
	}
	return unit, nil
}

func (r *CatalogRepository) execExpectingRow(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
