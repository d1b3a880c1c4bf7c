// AngelaMos | 2026
// webhook.go

package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

const (
	WebhookPath     = "/telegram/webhook/{secret}"
	maxWebhookBytes = 1 << 20
)

// WebhookHandler acknowledges updates as soon as they are decoded; the
// work happens on the dispatcher's goroutines.
type WebhookHandler struct {
	dispatcher Dispatcher
}

func NewWebhookHandler(dispatcher Dispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

func (h *WebhookHandler) RegisterRoutes(
	r chi.Router,
	middlewares ...func(http.Handler) http.Handler,
) {
	r.With(middlewares...).Post(WebhookPath, h.Receive)
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update

	body := io.LimitReader(r.Body, maxWebhookBytes)
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		slog.WarnContext(r.Context(), "malformed webhook update", "error", err)
		core.BadRequest(w, "malformed update")
		return
	}

	h.dispatcher.Dispatch(r.Context(), update)
	w.WriteHeader(http.StatusOK)
}
