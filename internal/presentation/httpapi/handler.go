package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appadmin "github.com/mkvend/vendbot/internal/application/admin"
	appshop "github.com/mkvend/vendbot/internal/application/shop"
	"github.com/mkvend/vendbot/internal/domain/buyer"
	"github.com/mkvend/vendbot/internal/domain/catalog"
	"github.com/mkvend/vendbot/internal/domain/order"
	"github.com/mkvend/vendbot/internal/domain/payment"
)

var errForbidden = errors.New("admin access required")

// Handler is the thin presentation adapter over the core API surface. A bot
// transport would drive the same services; this adapter exposes them over
// HTTP for operation and testing.
type Handler struct {
	shop    *appshop.Service
	admin   *appadmin.Service
	log     *zap.Logger
	metrics *Metrics
}

func NewHandler(shopSvc *appshop.Service, adminSvc *appadmin.Service, log *zap.Logger, metrics *Metrics) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		shop:    shopSvc,
		admin:   adminSvc,
		log:     log.With(zap.String("component", "http_server")),
		metrics: metrics,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.withRequestLogger, h.withObservability)

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.handleListProducts)
		r.Get("/products/{id}", h.handleGetProduct)
		r.Post("/purchases", h.handleStartPurchase)
		r.Post("/purchases/{ref}/poll", h.handlePollPurchase)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)
			r.Post("/products", h.handleCreateProduct)
			r.Patch("/products/{id}", h.handleEditProduct)
			r.Post("/products/{id}/stock", h.handleRestock)
			r.Delete("/products/{id}", h.handleDeleteProduct)
			r.Get("/orders", h.handleListOrders)
			r.Get("/stats", h.handleStats)
		})
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type productResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Kind        string `json:"kind"`
	Stock       int    `json:"stock"`
}

func toProductResponse(p *catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Kind:        string(p.Kind),
		Stock:       p.StockCount(),
	}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.shop.ListProducts(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.shop.GetProduct(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

type startPurchaseRequest struct {
	BuyerID   int64  `json:"buyer_id"`
	BuyerName string `json:"buyer_name"`
	ProductID int64  `json:"product_id"`
}

type startPurchaseResponse struct {
	OrderID     int64  `json:"order_id"`
	PaymentRef  string `json:"payment_ref"`
	RedirectURL string `json:"redirect_url"`
}

func (h *Handler) handleStartPurchase(w http.ResponseWriter, r *http.Request) {
	var req startPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	// Seen-buyers log; failure here must not block the purchase.
	if err := h.shop.RecordBuyer(r.Context(), &buyer.Buyer{ID: req.BuyerID, Username: req.BuyerName}); err != nil {
		h.log.Warn("record_buyer_failed", zap.Int64("buyer_id", req.BuyerID), zap.Error(err))
	}

	result, err := h.shop.StartPurchase(r.Context(), appshop.StartPurchaseInput{
		BuyerID:   req.BuyerID,
		BuyerName: req.BuyerName,
		ProductID: req.ProductID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, startPurchaseResponse{
		OrderID:     result.OrderID,
		PaymentRef:  result.PaymentRef,
		RedirectURL: result.RedirectURL,
	})
}

type pollResponse struct {
	State string `json:"state"`
	Unit  string `json:"unit,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func (h *Handler) handlePollPurchase(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	result, err := h.shop.PollPurchase(r.Context(), ref)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{
		State: string(result.State),
		Unit:  result.Unit,
		Kind:  string(result.Kind),
	})
}

type createProductRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Kind        string   `json:"kind"`
	Units       []string `json:"units"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := h.admin.CreateProduct(r.Context(), req.Name, req.Description, req.Price, catalog.Kind(req.Kind), req.Units)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type editProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
}

func (h *Handler) handleEditProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req editProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name != nil {
		if err := h.admin.EditName(r.Context(), id, *req.Name); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Description != nil {
		if err := h.admin.EditDescription(r.Context(), id, *req.Description); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	if req.Price != nil {
		if err := h.admin.EditPrice(r.Context(), id, *req.Price); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type restockRequest struct {
	Units []string `json:"units"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	count, err := h.admin.Restock(r.Context(), id, req.Units)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"stock": count})
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.admin.DeleteProduct(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderResponse struct {
	ID          int64  `json:"id"`
	BuyerID     int64  `json:"buyer_id"`
	BuyerName   string `json:"buyer_name"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	PaymentRef  string `json:"payment_ref"`
	Status      string `json:"status"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.ListOrders(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse{
			ID:          o.ID,
			BuyerID:     o.BuyerID,
			BuyerName:   o.BuyerName,
			ProductID:   o.ProductID,
			ProductName: o.ProductName,
			Price:       o.Price.StringFixed(2),
			PaymentRef:  o.PaymentRef,
			Status:      string(o.Status),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type statsResponse struct {
	TotalRevenue string              `json:"total_revenue"`
	PaidCount    int                 `json:"paid_count"`
	TopProducts  []statsProductEntry `json:"top_products"`
}

type statsProductEntry struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Count       int    `json:"count"`
	Revenue     string `json:"revenue"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := statsResponse{
		TotalRevenue: stats.TotalRevenue.StringFixed(2),
		PaidCount:    stats.PaidCount,
		TopProducts:  make([]statsProductEntry, 0, len(stats.TopProducts)),
	}
	for _, ps := range stats.TopProducts {
		out.TopProducts = append(out.TopProducts, statsProductEntry{
			ProductID:   ps.ProductID,
			ProductName: ps.ProductName,
			Count:       ps.Count,
			Revenue:     ps.Revenue.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.New("bad product id")
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, catalog.ErrInvalidPrice), errors.Is(err, catalog.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, catalog.ErrOutOfStock), errors.Is(err, order.ErrDuplicateRef):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, payment.ErrGateway):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
