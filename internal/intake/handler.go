package intake

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Handler terminates the inbound message webhook. The provider expects
// a 200 with a plain-text reply body on every delivery; anything else
// triggers redelivery storms, so failures still answer 200.
type Handler struct {
	responder *Responder
	deduper   *Deduper
	logger    *slog.Logger
}

// NewHandler builds Handler. deduper may be nil when no redis is wired.
func NewHandler(responder *Responder, deduper *Deduper, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{responder: responder, deduper: deduper, logger: logger}
}

// MountRoutes registers intake endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/webhooks/orders", h.receiveMessage)
}

func (h *Handler) receiveMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.reply(w, "")
		return
	}

	from := strings.TrimSpace(r.PostFormValue("From"))
	body := r.PostFormValue("Body")
	messageID := strings.TrimSpace(r.PostFormValue("MessageSid"))

	if from == "" || strings.TrimSpace(body) == "" {
		h.reply(w, "")
		return
	}

	if h.deduper != nil {
		first, err := h.deduper.Claim(r.Context(), messageID)
		if err != nil {
			// Fail open: answering twice beats not answering at all.
			h.logger.Warn("message dedupe unavailable",
				slog.String("message_id", messageID),
				slog.Any("error", err))
		} else if !first {
			h.logger.Info("duplicate message suppressed", slog.String("message_id", messageID))
			h.reply(w, "")
			return
		}
	}

	h.reply(w, h.responder.Respond(r.Context(), from, body))
}

func (h *Handler) reply(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if text != "" {
		_, _ = w.Write([]byte(text))
	}
}
