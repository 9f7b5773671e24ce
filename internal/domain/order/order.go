package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkvend/vendbot/internal/domain/catalog"
)

var (
	ErrNotFound = errors.New("order: not found")
	// ErrDuplicateRef is returned when an order already exists for the
	// payment reference. The store enforces this as a uniqueness constraint,
	// not a pre-check.
	ErrDuplicateRef = errors.New("order: payment reference already used")
	// ErrAlreadySettled signals that settlement found the order paid; the
	// caller must re-report success without re-claiming inventory.
	ErrAlreadySettled = errors.New("order: already settled")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Order is one buyer's attempt to acquire one unit of one product. Name and
// price are snapshotted at creation so later product edits or deletion do not
// corrupt history. Status is monotonic: once paid, never reverts, and no
// failed terminal state exists (an unconfirmed payment leaves the order
// pending indefinitely).
type Order struct {
	ID          int64
	BuyerID     int64
	BuyerName   string
	ProductID   int64
	ProductName string
	Price       decimal.Decimal
	PaymentRef  string
	Status      Status
	CreatedAt   time.Time
}

func New(buyerID int64, buyerName string, p *catalog.Product, paymentRef string) (*Order, error) {
	if paymentRef == "" {
		return nil, errors.New("order: payment reference is required")
	}
	if p == nil {
		return nil, catalog.ErrNotFound
	}
	return &Order{
		BuyerID:     buyerID,
		BuyerName:   buyerName,
		ProductID:   p.ID,
		ProductName: p.Name,
		Price:       p.Price,
		PaymentRef:  paymentRef,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
