package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dukapos/dukapos/internal/platform/httpx"
)

// Handler serves the external-order operator API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers order routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Show)
	r.Post("/orders/{id}/confirm", h.Confirm)
	r.Post("/orders/{id}/cancel", h.Cancel)
	r.Post("/orders/{id}/notify", h.Notify)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var status *Status
	if v := r.URL.Query().Get("status"); v != "" {
		s := Status(v)
		if !s.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown status "+v)
			return
		}
		status = &s
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.service.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("list orders failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to load orders")
		return
	}
	if list == nil {
		list = []ExternalOrder{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type notifyRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req notifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	order, err := h.service.Notify(r.Context(), id, Status(req.Status), req.Message)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		h.logger.Error("order request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
