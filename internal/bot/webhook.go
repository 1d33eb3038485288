package bot

import (
	"encoding/json"
	"io"
	"net/http"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler returns the HTTP handler Telegram posts updates to. The
// request must carry the shared secret registered via SetWebhook; anything
// else gets 403 without a body read.
//
// The handler always answers 200 to authenticated requests, even when the
// update could not be processed: Telegram redelivers on non-2xx, and updates
// here are not worth redelivering.
func (b *Bot) WebhookHandler(secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if r.Header.Get(secretHeader) != secret {
			b.logger.Warn(r.Context(), "webhook call with bad secret", "remote", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		var u Update
		if err := json.Unmarshal(raw, &u); err != nil {
			b.logger.Warn(r.Context(), "undecodable update", "error", err)
			w.WriteHeader(http.StatusOK)
			return
		}

		b.HandleUpdate(r.Context(), &u)
		w.WriteHeader(http.StatusOK)
	})
}
