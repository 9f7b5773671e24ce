package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mkvend/vendbot/internal/domain/buyer"
	"github.com/mkvend/vendbot/internal/domain/catalog"
	"github.com/mkvend/vendbot/internal/domain/order"
	"github.com/mkvend/vendbot/internal/domain/payment"
	"github.com/mkvend/vendbot/internal/pkg/logging"
)

const (
	useCaseStartPurchase = "shop.start_purchase"
	useCasePollPurchase  = "shop.poll_purchase"

	spanPrefix = "UC."
)

// Metrics holds the RED instruments for shop use cases. Vectors are
// registered in main and injected; use cases never instantiate metrics.
type Metrics struct {
	Requests *prometheus.CounterVec   // {use_case, outcome}
	Duration *prometheus.HistogramVec // {use_case}
}

// Service orchestrates the buy → pay → poll → allocate → deliver workflow
// over the catalog, the order ledger, the payment gateway, and the settler.
type Service struct {
	catalog catalog.Repository
	orders  order.Repository
	buyers  buyer.Repository
	gateway Gateway
	settler Settler

	log     *zap.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

func NewService(
	catalogRepo catalog.Repository,
	orderRepo order.Repository,
	buyerRepo buyer.Repository,
	gateway Gateway,
	settler Settler,
	log *zap.Logger,
	metrics *Metrics,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		catalog: catalogRepo,
		orders:  orderRepo,
		buyers:  buyerRepo,
		gateway: gateway,
		settler: settler,
		log:     log.With(zap.String("service", "shop")),
		tracer:  otel.Tracer("vendbot.shop"),
		metrics: metrics,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]*catalog.Product, error) {
	return s.catalog.List(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	return s.catalog.Get(ctx, id)
}

// RecordBuyer upserts the seen-buyers log; called on first contact.
func (s *Service) RecordBuyer(ctx context.Context, b *buyer.Buyer) error {
	return s.buyers.Upsert(ctx, b)
}

// StartPurchase creates a payment at the gateway and opens a pending order
// keyed by the gateway's payment reference. The stock pre-check is advisory:
// genuine scarcity is re-verified at settlement time.
func (s *Service) StartPurchase(ctx context.Context, in StartPurchaseInput) (_ *StartPurchaseResult, err error) {
	ctx, done := s.begin(ctx, useCaseStartPurchase,
		attribute.Int64("buyer.id", in.BuyerID),
		attribute.Int64("product.id", in.ProductID),
	)
	defer func() { done(err) }()

	p, err := s.catalog.Get(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if p.StockCount() == 0 {
		return nil, catalog.ErrOutOfStock
	}

	creation, err := s.gateway.CreatePayment(ctx, p.Price, "Purchase: "+p.Name)
	if err != nil {
		return nil, fmt.Errorf("start purchase: %w", err)
	}

	o, err := order.New(in.BuyerID, in.BuyerName, p, creation.PaymentRef)
	if err != nil {
		return nil, err
	}
	orderID, err := s.orders.Open(ctx, o)
	if err != nil {
		if errors.Is(err, order.ErrDuplicateRef) {
			// Gateway refs are unique, so this is an anomaly worth flagging;
			// the purchase aborts rather than retry.
			s.log.Warn("duplicate_payment_ref",
				zap.String("payment_ref", creation.PaymentRef),
				zap.Int64("product_id", in.ProductID),
			)
		}
		return nil, err
	}

	return &StartPurchaseResult{
		OrderID:     orderID,
		PaymentRef:  creation.PaymentRef,
		RedirectURL: creation.RedirectURL,
	}, nil
}

// PollPurchase checks the gateway and, on confirmed payment, settles the
// order: one unit claimed and the order marked paid in one logical
// operation. Safe to invoke any number of times, including after success.
func (s *Service) PollPurchase(ctx context.Context, paymentRef string) (_ *PollResult, err error) {
	ctx, done := s.begin(ctx, useCasePollPurchase,
		attribute.String("payment.ref", paymentRef),
	)
	defer func() { done(err) }()

	status, err := s.gateway.PaymentStatus(ctx, paymentRef)
	if err != nil {
		return nil, fmt.Errorf("poll purchase: %w", err)
	}
	if !status.Settled() {
		if status.Status == payment.StatusPending {
			return &PollResult{State: PollPending}, nil
		}
		return &PollResult{State: PollNotFound}, nil
	}

	unit, kind, err := s.settler.SettleOrder(ctx, paymentRef)
	switch {
	case errors.Is(err, order.ErrAlreadySettled):
		return &PollResult{State: PollAlreadyDelivered}, nil
	case errors.Is(err, order.ErrNotFound):
		return &PollResult{State: PollNotFound}, nil
	case errors.Is(err, catalog.ErrOutOfStock):
		// Money collected, no good delivered. Leave the order pending and
		// make the liability loud for manual reconciliation.
		s.log.Error("exhausted_after_payment",
			zap.String("payment_ref", paymentRef),
		)
		return &PollResult{State: PollExhausted}, nil
	case err != nil:
		return nil, fmt.Errorf("poll purchase: settle: %w", err)
	}

	return &PollResult{State: PollDelivered, Unit: unit, Kind: kind}, nil
}

// begin opens the use-case span and returns a completion hook that records
// metrics and emits the structured completion log.
func (s *Service) begin(ctx context.Context, useCase string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	logger := logging.FromContextOr(ctx, s.log).With(zap.String("use_case", useCase))
	ctx, span := s.tracer.Start(ctx, spanPrefix+useCase,
		trace.WithAttributes(append(attrs, attribute.String("use_case", useCase))...))
	start := time.Now()

	return ctx, func(err error) {
		lat := time.Since(start).Seconds()
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()

		if s.metrics != nil {
			if s.metrics.Requests != nil {
				s.metrics.Requests.WithLabelValues(useCase, outcome).Inc()
			}
			if s.metrics.Duration != nil {
				s.metrics.Duration.WithLabelValues(useCase).Observe(lat)
			}
		}

		fields := []zap.Field{
			zap.String("outcome", outcome),
			zap.Float64("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Info("use_case_done", fields...)
	}
}
