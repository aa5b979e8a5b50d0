package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func telegramSecret(botToken string) string {
	sum := sha256.Sum256([]byte(botToken))
	return hex.EncodeToString(sum[:])
}

func TestVerifyTelegramSecret(t *testing.T) {
	const token = "12345:bot-token"
	var reached bool
	h := VerifyTelegramSecret(token, "client")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	t.Run("valid secret passes", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", telegramSecret(token))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if !reached || rec.Code != http.StatusOK {
			t.Fatalf("reached=%v code=%d, want handler hit with 200", reached, rec.Code)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", telegramSecret("other-token"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if reached || rec.Code != http.StatusForbidden {
			t.Fatalf("reached=%v code=%d, want 403 without handler hit", reached, rec.Code)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		reached = false
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))
		if reached || rec.Code != http.StatusForbidden {
			t.Fatalf("reached=%v code=%d, want 403 without handler hit", reached, rec.Code)
		}
	})
}

func TestVerifyPaymentSignature(t *testing.T) {
	const secret = "webhook-secret"
	body := `{"payment_id":"p1","amount":"10.00"}`

	sign := func(payload string) string {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(payload))
		return hex.EncodeToString(mac.Sum(nil))
	}

	var seenBody string
	h := VerifyPaymentSignature(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seenBody = string(b)
	}))

	t.Run("valid signature passes and body survives", func(t *testing.T) {
		seenBody = ""
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		req.Header.Set("X-Webhook-Signature", sign(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, want 200", rec.Code)
		}
		if seenBody != body {
			t.Errorf("handler body = %q, want original payload", seenBody)
		}
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		seenBody = ""
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body+" "))
		req.Header.Set("X-Webhook-Signature", sign(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %d, want 403", rec.Code)
		}
		if seenBody != "" {
			t.Error("handler must not run on a bad signature")
		}
	})

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %d, want 403", rec.Code)
		}
	})
}
