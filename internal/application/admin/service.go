package admin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mkvend/vendbot/internal/domain/catalog"
	"github.com/mkvend/vendbot/internal/domain/order"
)

// Service exposes the admin side of the conversational interface: catalog
// management, inventory restock, order listing, and sales stats. A single
// admin identity is authorized.
type Service struct {
	catalog  catalog.Repository
	orders   order.Repository
	adminID  int64
	sessions *Sessions
	log      *zap.Logger
}

func NewService(catalogRepo catalog.Repository, orderRepo order.Repository, adminID int64, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		catalog:  catalogRepo,
		orders:   orderRepo,
		adminID:  adminID,
		sessions: NewSessions(),
		log:      log.With(zap.String("service", "admin")),
	}
}

// Authorize reports whether the user may perform admin operations.
func (s *Service) Authorize(userID int64) bool { return userID == s.adminID }

// BeginProductEntry starts the multi-step product creation dialog.
func (s *Service) BeginProductEntry(adminID int64) Step {
	return s.sessions.Begin(adminID).Step
}

func (s *Service) CancelProductEntry(adminID int64) {
	s.sessions.End(adminID)
}

// ProductEntryInput feeds one admin message into the dialog and returns the
// next step. Invalid price input keeps the dialog on StepPrice so the
// presentation layer can re-prompt.
func (s *Service) ProductEntryInput(adminID int64, text string) (Step, error) {
	d, ok := s.sessions.Get(adminID)
	if !ok {
		return 0, ErrNoDialog
	}

	switch d.Step {
	case StepName:
		d.Name = text
		d.Step = StepDescription
	case StepDescription:
		d.Description = text
		d.Step = StepPrice
	case StepPrice:
		price, err := catalog.ParsePrice(text)
		if err != nil {
			return d.Step, err
		}
		d.Price = price
		d.Step = StepKind
	default:
		return d.Step, fmt.Errorf("admin: step %d does not take text input", d.Step)
	}
	return d.Step, nil
}

// ProductEntryKind records the kind choice and moves the dialog to stock
// collection.
func (s *Service) ProductEntryKind(adminID int64, kind catalog.Kind) (Step, error) {
	d, ok := s.sessions.Get(adminID)
	if !ok {
		return 0, ErrNoDialog
	}
	if d.Step != StepKind {
		return d.Step, fmt.Errorf("admin: kind not expected at step %d", d.Step)
	}
	if !kind.Valid() {
		return d.Step, fmt.Errorf("admin: unknown product kind %q", kind)
	}
	d.Kind = kind
	d.Step = StepStock
	return d.Step, nil
}

// ProductEntryStock finishes the dialog: creates the product with the given
// initial units (nil means "add stock later") and discards the session.
func (s *Service) ProductEntryStock(ctx context.Context, adminID int64, units []string) (int64, error) {
	d, ok := s.sessions.Get(adminID)
	if !ok {
		return 0, ErrNoDialog
	}
	if d.Step != StepStock {
		return 0, fmt.Errorf("admin: stock not expected at step %d", d.Step)
	}
	if d.Kind == catalog.KindFile && len(units) > 1 {
		units = units[:1]
	}

	p, err := catalog.New(d.Name, d.Description, d.Price, d.Kind, units)
	if err != nil {
		return 0, err
	}
	id, err := s.catalog.Create(ctx, p)
	if err != nil {
		return 0, err
	}
	s.sessions.End(adminID)

	s.log.Info("product_created",
		zap.Int64("product_id", id),
		zap.String("kind", string(p.Kind)),
		zap.Int("stock", p.StockCount()),
	)
	return id, nil
}

// CreateProduct creates a product in one call, outside the dialog flow.
func (s *Service) CreateProduct(ctx context.Context, name, description, priceText string, kind catalog.Kind, units []string) (int64, error) {
	price, err := catalog.ParsePrice(priceText)
	if err != nil {
		return 0, err
	}
	if kind == catalog.KindFile && len(units) > 1 {
		units = units[:1]
	}
	p, err := catalog.New(name, description, price, kind, units)
	if err != nil {
		return 0, err
	}
	return s.catalog.Create(ctx, p)
}

// EditPrice parses and applies a new price; non-numeric input surfaces
// catalog.ErrInvalidPrice for re-prompting.
func (s *Service) EditPrice(ctx context.Context, productID int64, priceText string) error {
	price, err := catalog.ParsePrice(priceText)
	if err != nil {
		return err
	}
	return s.catalog.Update(ctx, productID, catalog.Patch{Price: &price})
}

func (s *Service) EditDescription(ctx context.Context, productID int64, text string) error {
	return s.catalog.Update(ctx, productID, catalog.Patch{Description: &text})
}

func (s *Service) EditName(ctx context.Context, productID int64, text string) error {
	return s.catalog.Update(ctx, productID, catalog.Patch{Name: &text})
}

// Restock adds inventory. Key products append to the FIFO pool; file
// products replace their single stored token.
func (s *Service) Restock(ctx context.Context, productID int64, units []string) (int, error) {
	p, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return 0, err
	}

	if p.Kind == catalog.KindFile {
		if len(units) > 1 {
			units = units[:1]
		}
		err = s.catalog.ReplaceUnits(ctx, productID, units)
	} else {
		err = s.catalog.AppendUnits(ctx, productID, units)
	}
	if err != nil {
		return 0, err
	}

	p, err = s.catalog.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.StockCount(), nil
}

func (s *Service) DeleteProduct(ctx context.Context, productID int64) error {
	if err := s.catalog.Delete(ctx, productID); err != nil {
		return err
	}
	// Orders keep denormalized name/price snapshots, so history survives.
	s.log.Info("product_deleted", zap.Int64("product_id", productID))
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	return s.catalog.List(ctx)
}

func (s *Service) GetProduct(ctx context.Context, productID int64) (*catalog.Product, error) {
	return s.catalog.Get(ctx, productID)
}

func (s *Service) ListOrders(ctx context.Context) ([]*order.Order, error) {
	return s.orders.List(ctx)
}

func (s *Service) Stats(ctx context.Context) (*order.SalesStats, error) {
	stats, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin: stats: %w", err)
	}
	return stats, nil
}

// IsValidationError reports whether the admin dialog should re-prompt
// instead of failing.
func IsValidationError(err error) bool {
	return errors.Is(err, catalog.ErrInvalidPrice) || errors.Is(err, catalog.ErrInvalidName)
}
