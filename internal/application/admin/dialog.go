package admin

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mkvend/vendbot/internal/domain/catalog"
)

// ErrNoDialog is returned when dialog input arrives without an active
// product-entry session, e.g. after a restart discarded it.
var ErrNoDialog = errors.New("admin: no active dialog")

// Step identifies the field the product-entry dialog is currently
// collecting.
type Step int

const (
	StepName Step = iota
	StepDescription
	StepPrice
	StepKind
	StepStock
)

// Dialog is the transient per-admin state of a multi-step product entry. It
// lives only for the duration of the dialog and is discarded on completion,
// cancellation, or process restart.
type Dialog struct {
	Step        Step
	Name        string
	Description string
	Price       decimal.Decimal
	Kind        catalog.Kind
}

// Sessions holds in-progress dialogs keyed by admin identity.
type Sessions struct {
	mu     sync.Mutex
	active map[int64]*Dialog
}

func NewSessions() *Sessions {
	return &Sessions{active: make(map[int64]*Dialog)}
}

// Begin starts a fresh dialog, replacing any abandoned one.
func (s *Sessions) Begin(adminID int64) *Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &Dialog{Step: StepName, Kind: catalog.KindKey}
	s.active[adminID] = d
	return d
}

func (s *Sessions) Get(adminID int64) (*Dialog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.active[adminID]
	return d, ok
}

func (s *Sessions) End(adminID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, adminID)
}
