package shop

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mkvend/vendbot/internal/domain/catalog"
	"github.com/mkvend/vendbot/internal/domain/payment"
)

// Gateway is the outbound port for the external payment gateway. It belongs
// to the application layer to express use-case dependencies.
type Gateway interface {
	CreatePayment(ctx context.Context, amount decimal.Decimal, description string) (*payment.Creation, error)
	PaymentStatus(ctx context.Context, ref string) (*payment.Status, error)
}

// Settler executes the atomicity-critical step of settlement: claim one unit
// and mark the order paid as a single logical operation. Implementations
// must guarantee the two writes are not observably separable and must return
// order.ErrAlreadySettled when the order is already paid.
type Settler interface {
	SettleOrder(ctx context.Context, paymentRef string) (unit string, kind catalog.Kind, err error)
}
