package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Patch carries partial product updates; nil fields are left untouched.
type Patch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
}

type Repository interface {
	Create(ctx context.Context, p *Product) (int64, error)
	Get(ctx context.Context, id int64) (*Product, error)
	// List returns all products ordered by id ascending.
	List(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, id int64, patch Patch) error
	Delete(ctx context.Context, id int64) error

	// AppendUnits adds units to the tail of the product's pool (key restock).
	AppendUnits(ctx context.Context, id int64, units []string) error
	// ReplaceUnits overwrites the pool (file restock, single-slot semantics).
	ReplaceUnits(ctx context.Context, id int64, units []string) error

	// ClaimUnit removes and returns the oldest unit of a key product, or
	// returns the stored token of a file product without removing it.
	// Concurrent claims on the same product are serialized; an empty pool
	// yields ErrOutOfStock. ClaimUnit is the sole mutator used on the
	// settlement path.
	ClaimUnit(ctx context.Context, id int64) (string, error)
}
