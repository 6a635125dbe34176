package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/analytics"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/apperrors"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/catalog"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/checkout"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/domain/entity"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/httpx/middlewares"
)

const (
	defaultCheckoutListLimit = 50
	maxCheckoutListLimit     = 500

	// MaxRequestBody caps every JSON request body.
	MaxRequestBody = 1 << 20

	// HeaderIdempotentReplay marks a checkout response served from the
	// idempotency cache.
	HeaderIdempotentReplay = "Idempotent-Replayed"
)

// OrderPlacer is satisfied by *checkout.IdempotentPlacer.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, accountID, key string, in checkout.PlaceOrderInput) (*entity.Order, bool, error)
}

// OrderReader is the read side of the order store used by the admin list.
type OrderReader interface {
	SelectOrders(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error)
	SelectLineItemRows(ctx context.Context, accountID string) ([]entity.LineItemRow, error)
}

// Catalog is satisfied by *catalog.Service.
type Catalog interface {
	Menu(ctx context.Context, accountID string) ([]catalog.Section, error)
	ListMenuItems(ctx context.Context, accountID string) ([]entity.MenuItem, error)
	CreateMenuItem(ctx context.Context, accountID string, in catalog.MenuItemInput) (*entity.MenuItem, error)
	UpdateMenuItem(ctx context.Context, accountID, id string, in catalog.MenuItemInput) (*entity.MenuItem, error)
	DeleteMenuItem(ctx context.Context, accountID, id string) error
	ListCategories(ctx context.Context, accountID string) ([]entity.Category, error)
	CreateCategory(ctx context.Context, accountID string, in catalog.CategoryInput) (*entity.Category, error)
	UpdateCategory(ctx context.Context, accountID, id string, in catalog.CategoryInput) (*entity.Category, error)
	DeleteCategory(ctx context.Context, accountID, id string) error
}

// HealthCheck is one named dependency checked by /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler serves the storefront API. Every handler except Healthz expects
// the account id placed in the context by middlewares.RequireAccount.
type Handler struct {
	placer    OrderPlacer
	reports   analytics.Computer
	orders    OrderReader
	catalog   Catalog
	checkouts sagalog.Reader // nil when the checkout log is disabled
	health    []HealthCheck
}

// NewHandler wires the handler. checkouts may be nil, in which case the
// checkout endpoints answer 404.
func NewHandler(
	placer OrderPlacer,
	reports analytics.Computer,
	orders OrderReader,
	catalog Catalog,
	checkouts sagalog.Reader,
	health ...HealthCheck,
) *Handler {
	return &Handler{
		placer:    placer,
		reports:   reports,
		orders:    orders,
		catalog:   catalog,
		checkouts: checkouts,
		health:    health,
	}
}

// CreateOrder places the cart as a confirmed order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := middlewares.AccountID(ctx)

	var req CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	order, replayed, err := h.placer.PlaceOrder(ctx, accountID, middlewares.IdempotencyKey(ctx), in)
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	if replayed {
		w.Header().Set(HeaderIdempotentReplay, "true")
		writeJSON(w, http.StatusOK, mapOrderToResponse(order))
		return
	}
	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// GetAnalytics returns the account's sales report.
func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Compute(r.Context(), middlewares.AccountID(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapReportToResponse(report))
}

// ListOrders returns the account's orders newest first with their line
// items, optionally filtered by ?status=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := entity.OrderFilter{AccountID: middlewares.AccountID(ctx)}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := entity.OrderStatus(raw)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown order status "+strconv.Quote(raw))
			return
		}
		filter.Status = &status
	}

	orders, err := h.orders.SelectOrders(ctx, filter)
	if err != nil {
		slog.ErrorContext(ctx, "list orders failed", "op", "select_orders", "account_id", filter.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "could not load orders")
		return
	}

	rows, err := h.orders.SelectLineItemRows(ctx, filter.AccountID)
	if err != nil {
		slog.ErrorContext(ctx, "list orders failed", "op", "select_line_item_rows", "account_id", filter.AccountID, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "could not load orders")
		return
	}

	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = mapOrderToResponse(&orders[i])
	}
	attachItems(out, rows)
	writeJSON(w, http.StatusOK, out)
}

// GetCheckout returns the latest checkout log entry for one of the account's
// order ids. Other accounts' checkouts answer 404.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	if h.checkouts == nil {
		writeError(w, http.StatusNotFound, "checkout_log_disabled", "")
		return
	}
	orderID := chi.URLParam(r, "id")

	entry, err := h.checkouts.GetLatest(r.Context(), middlewares.AccountID(r.Context()), orderID)
	switch {
	case errors.Is(err, sagalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "checkout_not_found", "")
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "read checkout log failed", "order_id", orderID, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "could not read checkout log")
		return
	}
	writeJSON(w, http.StatusOK, mapCheckoutLog(entry))
}

// ListCheckouts lists the account's checkouts whose latest state is
// ?status=, e.g. COMPENSATION_FAILED to find orphaned orders.
func (h *Handler) ListCheckouts(w http.ResponseWriter, r *http.Request) {
	if h.checkouts == nil {
		writeError(w, http.StatusNotFound, "checkout_log_disabled", "")
		return
	}

	status := sagalog.Status(r.URL.Query().Get("status"))
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_status", "unknown checkout status "+strconv.Quote(string(status)))
		return
	}
	limit := defaultCheckoutListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxCheckoutListLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and "+strconv.Itoa(maxCheckoutListLimit))
			return
		}
		limit = n
	}

	entries, err := h.checkouts.ListLatestByStatus(r.Context(), middlewares.AccountID(r.Context()), status, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "list checkout log failed", "status", status, "error", err)
		writeError(w, http.StatusInternalServerError, "store_error", "could not read checkout log")
		return
	}

	out := make([]CheckoutLogResponse, len(entries))
	for i := range entries {
		out[i] = mapCheckoutLog(&entries[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// Menu is the public menu: available items grouped by category.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	sections, err := h.catalog.Menu(r.Context(), middlewares.AccountID(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, mapMenu(sections))
}

// ListMenuItems returns every menu item of the account, available or not.
func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListMenuItems(r.Context(), middlewares.AccountID(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	out := make([]MenuItemResponse, len(items))
	for i := range items {
		out[i] = mapMenuItem(&items[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	h.saveMenuItem(w, r, "")
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	h.saveMenuItem(w, r, chi.URLParam(r, "id"))
}

// saveMenuItem creates when id is empty and replaces otherwise.
func (h *Handler) saveMenuItem(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	var req MenuItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}

	var item *entity.MenuItem
	status := http.StatusOK
	if id == "" {
		item, err = h.catalog.CreateMenuItem(ctx, middlewares.AccountID(ctx), in)
		status = http.StatusCreated
	} else {
		item, err = h.catalog.UpdateMenuItem(ctx, middlewares.AccountID(ctx), id, in)
	}
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, status, mapMenuItem(item))
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteMenuItem(r.Context(), middlewares.AccountID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns the account's categories in display order.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context(), middlewares.AccountID(r.Context()))
	if err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	out := make([]CategoryResponse, len(cats))
	for i := range cats {
		out[i] = mapCategory(&cats[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, "")
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) saveCategory(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	var req CategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		c   *entity.Category
		err error
	)
	status := http.StatusOK
	if id == "" {
		c, err = h.catalog.CreateCategory(ctx, middlewares.AccountID(ctx), req.toInput())
		status = http.StatusCreated
	} else {
		c, err = h.catalog.UpdateCategory(ctx, middlewares.AccountID(ctx), id, req.toInput())
	}
	if err != nil {
		writeDomainError(ctx, w, err)
		return
	}
	writeJSON(w, status, mapCategory(c))
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), middlewares.AccountID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz runs every HealthCheck and answers 503 when any of them fails.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	failing := map[string]string{}
	for _, hc := range h.health {
		if err := hc.Check(r.Context()); err != nil {
			failing[hc.Name] = err.Error()
		}
	}
	if len(failing) > 0 {
		slog.WarnContext(r.Context(), "health check failed", "failing", failing)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failing": failing})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError maps the apperrors kinds onto status codes. Callers tell
// "fix your input" (4xx) from "retry later" (5xx) by status and code.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		var ve *apperrors.ValidationError
		errors.As(err, &ve)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: ve.Reason,
			Field:   ve.Field,
		})
	case apperrors.KindPartialWrite:
		var pw *apperrors.PartialWriteError
		errors.As(err, &pw)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "partial_write",
			Message: "order could not be completed; support has been notified",
			OrderID: pw.OrderID,
		})
	case apperrors.KindNotFound:
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case apperrors.KindAggregationRead:
		writeError(w, http.StatusInternalServerError, "analytics_unavailable", "analytics could not be loaded, retry later")
	case apperrors.KindStore:
		writeError(w, http.StatusInternalServerError, "store_error", "request could not be completed, retry later")
	default:
		slog.ErrorContext(ctx, "unclassified error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

// decodeBody reads at most MaxRequestBody bytes of JSON into v. On failure it
// writes the response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large",
			"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
