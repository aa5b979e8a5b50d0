package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/minhngoc/codepay-backend/internal/api/httpx"
	"github.com/minhngoc/codepay-backend/internal/metrics"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/services"
	"github.com/shopspring/decimal"
)

// PaymentWebhook ingests gateway callbacks. The signature middleware has
// already authenticated the raw body; this layer validates shape and maps
// the service outcome to the acknowledgment contract.
type PaymentWebhook struct {
	payments *services.PaymentService
}

func NewPaymentWebhook(payments *services.PaymentService) *PaymentWebhook {
	return &PaymentWebhook{payments: payments}
}

// callbackBody tolerates both field spellings the gateway emits.
type callbackBody struct {
	PaymentID       string          `json:"payment_id"`
	OrderID         string          `json:"order_id"`
	TxHash          string          `json:"tx_hash"`
	TransactionHash string          `json:"transaction_hash"`
	Address         string          `json:"address"`
	PaymentAddress  string          `json:"payment_address"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
}

func (h *PaymentWebhook) Handle(w http.ResponseWriter, r *http.Request) {
	var body callbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed payload", nil)
		return
	}
	metrics.EventsTotal.WithLabelValues("payment").Inc()

	cb := services.PaymentCallback{
		PaymentID: firstOf(body.PaymentID, body.OrderID),
		Address:   firstOf(body.Address, body.PaymentAddress),
		Amount:    body.Amount,
		TxHash:    firstOf(body.TxHash, body.TransactionHash),
		Status:    body.Status,
	}
	if cb.TxHash == "" || cb.Amount.Sign() <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid webhook data", nil)
		return
	}

	res, err := h.payments.Confirm(r.Context(), cb)
	switch {
	case errors.Is(err, models.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "payment not found", nil)
		return
	case errors.Is(err, models.ErrAmountMismatch):
		httpx.WriteError(w, http.StatusBadRequest, "amount_mismatch", "amount mismatch", nil)
		return
	case err != nil:
		slog.Error("payment webhook", "tx_hash", cb.TxHash, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}

	resp := map[string]string{"status": "ok"}
	if !res.Ignored {
		resp["payment_id"] = res.Payment.ID
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
