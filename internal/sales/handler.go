package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/orders"
	"github.com/dukapos/dukapos/internal/platform/httpx"
	"github.com/dukapos/dukapos/internal/shared"
)

// Handler serves the sales JSON API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers sales routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales", h.Complete)
	r.Get("/sales", h.List)
	r.Get("/sales/{id}", h.Show)
	r.Get("/sales/number/{number}", h.ShowByNumber)
	r.Get("/sales/receipt/{token}", h.ShowByReceipt)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sale, err := h.service.CompleteSale(r.Context(), CompleteSaleInput{
		Lines:           req.Lines,
		DiscountAmount:  req.DiscountAmount,
		PaymentMethod:   PaymentMethod(req.PaymentMethod),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Notes:           req.Notes,
		CashierID:       req.CashierID,
		ExternalOrderID: req.ExternalOrderID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{}
	filters.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filters.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if v := r.URL.Query().Get("cashier_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.CashierID = &id
		}
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filters.DateFrom = &t
		}
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			filters.DateTo = &t
		}
	}

	sales, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list sales failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to load sales")
		return
	}
	if sales == nil {
		sales = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, SaleListResponse{
		Sales:      sales,
		Pagination: shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) ShowByNumber(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) ShowByReceipt(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.GetByReceipt(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var stockErr *catalog.InsufficientStockError
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidCartLine),
		errors.Is(err, ErrInvalidDiscount),
		errors.Is(err, ErrInvalidPaymentMethod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &stockErr):
		httpx.JSON(w, http.StatusConflict, map[string]any{
			"title":      "Insufficient Stock",
			"status":     http.StatusConflict,
			"detail":     stockErr.Error(),
			"product_id": stockErr.ProductID,
			"requested":  stockErr.Requested,
			"available":  stockErr.Available,
		})
	case errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, ErrSaleNotFound), errors.Is(err, orders.ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, orders.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, ErrConcurrencyConflict):
		httpx.Problem(w, http.StatusConflict, "Concurrency Conflict", err.Error())
	default:
		h.logger.Error("complete sale failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
