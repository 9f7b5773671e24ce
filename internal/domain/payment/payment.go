package payment

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrGateway wraps any non-success response or transport failure from the
// payment gateway. The raw diagnostic body is carried in the wrapping error;
// a gateway failure is never interpreted as success.
var ErrGateway = errors.New("payment: gateway error")

// GatewayStatus is the gateway's own status vocabulary. Anything other than
// succeeded/pending is treated as "other" by the settlement workflow.
type GatewayStatus string

const (
	StatusSucceeded GatewayStatus = "succeeded"
	StatusPending   GatewayStatus = "pending"
)

// Creation is the result of creating a payment at the gateway.
type Creation struct {
	PaymentRef  string
	RedirectURL string
	Status      GatewayStatus
}

// Status is the result of querying a payment.
type Status struct {
	PaymentRef string
	Status     GatewayStatus
	Paid       bool
	Amount     decimal.Decimal
}

// Settled reports whether the gateway considers the payment confirmed and
// captured.
func (s *Status) Settled() bool {
	return s.Status == StatusSucceeded && s.Paid
}
