package shop

import "github.com/mkvend/vendbot/internal/domain/catalog"

type StartPurchaseInput struct {
	BuyerID   int64
	BuyerName string
	ProductID int64
}

type StartPurchaseResult struct {
	OrderID     int64
	PaymentRef  string
	RedirectURL string
}

// PollState is the outcome of one buyer-triggered poll.
type PollState string

const (
	// PollPending: the gateway has not confirmed the payment yet; the buyer
	// may retry at will.
	PollPending PollState = "pending"
	// PollNotFound: the gateway reports the payment failed, cancelled, or
	// unknown. The order, if any, stays pending; no terminal failure state
	// is persisted.
	PollNotFound PollState = "not_found"
	// PollDelivered: payment confirmed, a unit was claimed, and the order is
	// paid. Unit and Kind carry the deliverable.
	PollDelivered PollState = "delivered"
	// PollAlreadyDelivered: the order was settled by an earlier poll; the
	// unit is not re-sent and inventory is untouched.
	PollAlreadyDelivered PollState = "already_delivered"
	// PollExhausted: payment was taken but no unit remained. The order stays
	// pending as an unresolved liability requiring manual reconciliation.
	PollExhausted PollState = "exhausted"
)

type PollResult struct {
	State PollState
	Unit  string
	Kind  catalog.Kind
}
