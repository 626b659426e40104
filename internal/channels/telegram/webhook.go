package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/mymmrac/telego"
)

const (
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes = 1 << 20
)

// WebhookPath is the local path the webhook handler expects to be mounted on.
func (c *Channel) WebhookPath() string { return c.webhookPath }

// WebhookHandler serves Telegram webhook deliveries. Mount it on
// WebhookPath before calling Start.
func (c *Channel) WebhookHandler() http.Handler {
	return http.HandlerFunc(c.serveWebhook)
}

func (c *Channel) serveWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if c.webhookLimiter != nil && !c.webhookLimiter.Allow(clientIP(r)) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}
	got := r.Header.Get(secretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(c.webhookSecret)) != 1 {
		slog.Warn("telegram webhook rejected: bad secret", "remote", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !c.IsRunning() {
		http.Error(w, "not running", http.StatusServiceUnavailable)
		return
	}

	var update telego.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	if !c.handleUpdate(r.Context(), update) {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
