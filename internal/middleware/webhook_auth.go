package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"github.com/minhngoc/codepay-backend/internal/api/httpx"
	"github.com/minhngoc/codepay-backend/internal/metrics"
)

// VerifyTelegramSecret authenticates a bot webhook. The secret token header
// registered with the bot platform is sha256(botToken); comparison is
// constant time. Authentication failures never reach business logic.
func VerifyTelegramSecret(botToken, channel string) func(http.Handler) http.Handler {
	sum := sha256.Sum256([]byte(botToken))
	expected := []byte(hex.EncodeToString(sum[:]))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("X-Telegram-Bot-Api-Secret-Token"))
			if subtle.ConstantTimeCompare(expected, got) != 1 {
				metrics.AuthFailuresTotal.WithLabelValues(channel).Inc()
				slog.Warn("telegram webhook rejected", "channel", channel, "remote", r.RemoteAddr)
				httpx.WriteError(w, http.StatusForbidden, "unauthorized", "unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// VerifyPaymentSignature authenticates a gateway callback: the
// X-Webhook-Signature header must be the hex HMAC-SHA256 of the raw body.
// The body is re-buffered for the handler.
func VerifyPaymentSignature(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "unreadable body", nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			mac := hmac.New(sha256.New, key)
			mac.Write(body)
			expected := hex.EncodeToString(mac.Sum(nil))
			got := r.Header.Get("X-Webhook-Signature")
			if subtle.ConstantTimeCompare([]byte(expected), []byte(got)) != 1 {
				metrics.AuthFailuresTotal.WithLabelValues("payment").Inc()
				slog.Warn("payment webhook rejected", "remote", r.RemoteAddr)
				httpx.WriteError(w, http.StatusForbidden, "invalid_signature", "invalid signature", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
