package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("catalog: product not found")
	ErrOutOfStock   = errors.New("catalog: product out of stock")
	ErrInvalidPrice = errors.New("catalog: price must be a positive number")
	ErrInvalidName  = errors.New("catalog: name is required")
)

// Kind determines how inventory units are represented and delivered.
type Kind string

const (
	// KindKey products hold a FIFO list of opaque secrets (license keys);
	// each sale consumes exactly one.
	KindKey Kind = "key"
	// KindFile products hold a single opaque file reference token. Selling
	// does not consume it; the same token is delivered until the admin
	// replaces it.
	KindFile Kind = "file"
)

func (k Kind) Valid() bool { return k == KindKey || k == KindFile }

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Kind        Kind
	Units       []string
	CreatedAt   time.Time
}

func New(name, description string, price decimal.Decimal, kind Kind, units []string) (*Product, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidPrice
	}
	if !kind.Valid() {
		kind = KindKey
	}
	return &Product{
		Name:        name,
		Description: description,
		Price:       price,
		Kind:        kind,
		Units:       NormalizeUnits(units),
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// StockCount reports how many units are claimable. File products expose the
// single stored token as one unit regardless of how often it has been sold.
func (p *Product) StockCount() int {
	if p.Kind == KindFile {
		if len(p.Units) > 0 {
			return 1
		}
		return 0
	}
	return len(p.Units)
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Units = append([]string(nil), p.Units...)
	return &clone
}

// ParsePrice validates admin-entered price text. Non-numeric and non-positive
// input is rejected so the dialog can re-prompt.
func ParsePrice(text string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return price, nil
}

// NormalizeUnits drops blank lines and trims surrounding whitespace from each
// unit, preserving order.
func NormalizeUnits(units []string) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		out = append(out, u)
	}
	return out
}

// SplitUnits parses the newline-delimited stock representation used by the
// record store.
func SplitUnits(stock string) []string {
	if strings.TrimSpace(stock) == "" {
		return nil
	}
	return NormalizeUnits(strings.Split(stock, "\n"))
}

// JoinUnits is the inverse of SplitUnits.
func JoinUnits(units []string) string {
	return strings.Join(units, "\n")
}
