package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"taskmaster/internal/bot"
)

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	h.respond(w, stats, http.StatusOK)
}

// ImportTelegram drains the inbox into the store. Drained entries are
// imported even if the client goes away.
func (h *Handlers) ImportTelegram(w http.ResponseWriter, r *http.Request) {
	n := h.inbox.Import(context.WithoutCancel(r.Context()), h.db)
	h.respond(w, map[string]interface{}{
		"imported": n,
		"message":  fmt.Sprintf("Imported %d tasks", n),
	}, http.StatusOK)
}

func (h *Handlers) TelegramStatus(w http.ResponseWriter, r *http.Request) {
	h.respond(w, bot.StatusOf(h.bot), http.StatusOK)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		requestLogger(r, h.log).Warnw("Health check failed", "error", err)
		h.respond(w, map[string]string{"status": "unavailable"}, http.StatusServiceUnavailable)
		return
	}
	h.respond(w, map[string]string{"status": "ok"}, http.StatusOK)
}
