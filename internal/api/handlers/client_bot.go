package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minhngoc/codepay-backend/internal/api/httpx"
	"github.com/minhngoc/codepay-backend/internal/metrics"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/services"
	"github.com/minhngoc/codepay-backend/internal/telegram"
)

// ClientBot ingests the customer-facing bot webhook: commands are repeated
// user actions and answered directly; anything else is treated as a code
// submission and handed to the workflow.
type ClientBot struct {
	customers *services.CustomerService
	workflow  *services.WorkflowService
	notifier  services.Notifier
}

func NewClientBot(customers *services.CustomerService, workflow *services.WorkflowService, n services.Notifier) *ClientBot {
	return &ClientBot{customers: customers, workflow: workflow, notifier: n}
}

func profileFrom(u *telegram.User) models.Profile {
	var p models.Profile
	if u == nil {
		return p
	}
	if u.Username != "" {
		p.Username = &u.Username
	}
	if u.FirstName != "" {
		p.FirstName = &u.FirstName
	}
	if u.LastName != "" {
		p.LastName = &u.LastName
	}
	return p
}

func (h *ClientBot) Webhook(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed update", nil)
		return
	}
	metrics.EventsTotal.WithLabelValues("client").Inc()

	msg := update.Message
	if msg == nil || msg.Text == "" {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	chatID := msg.Chat.IDString()
	profile := profileFrom(msg.From)

	var err error
	if strings.HasPrefix(msg.Text, "/") {
		err = h.handleCommand(r, chatID, msg.Text, profile)
	} else {
		err = h.handleCodeInput(r, chatID, msg.Text, profile)
	}
	if err != nil {
		slog.Error("client webhook", "chat_id", chatID, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ClientBot) handleCommand(r *http.Request, chatID, text string, profile models.Profile) error {
	ctx := r.Context()
	switch strings.ToLower(strings.Fields(text)[0]) {
	case "/start":
		customer, err := h.customers.GetOrCreate(ctx, chatID, profile)
		if err != nil {
			return err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "👋 <b>Welcome %s!</b>\n\n", customer.DisplayName())
		b.WriteString("Send a code to use the service, e.g. <code>ABC123</code>.\n\n")
		fmt.Fprintf(&b, "💰 Balance: <b>%s USDT</b>\n\n", customer.Balance.StringFixed(2))
		b.WriteString("Commands:\n/balance - show balance\n/history - recent transactions")
		return h.notifier.SendMessage(ctx, chatID, b.String())

	case "/balance":
		customer, approved, err := h.customers.Overview(ctx, chatID)
		if errors.Is(err, models.ErrNotFound) {
			return h.notifier.SendMessage(ctx, chatID, "❌ Please use /start first.")
		}
		if err != nil {
			return err
		}
		text := fmt.Sprintf("💰 <b>YOUR BALANCE</b>\n\nBalance: <b>%s USDT</b>\nCompleted transactions: <b>%d</b>",
			customer.Balance.StringFixed(2), approved)
		return h.notifier.SendMessage(ctx, chatID, text)

	case "/history":
		txns, err := h.customers.History(ctx, chatID, 10)
		if errors.Is(err, models.ErrNotFound) {
			return h.notifier.SendMessage(ctx, chatID, "❌ Please use /start first.")
		}
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			return h.notifier.SendMessage(ctx, chatID, "📋 You have no transactions yet.")
		}
		var b strings.Builder
		b.WriteString("📋 <b>TRANSACTION HISTORY</b>\n\n")
		for _, t := range txns {
			fmt.Fprintf(&b, "%s <code>%s</code>\n   %s · %s USDT · %s\n\n",
				statusEmoji(t.Status), t.Code, statusLabel(t.Status),
				t.Amount.StringFixed(2), t.CreatedAt.Format("02/01/2006 15:04"))
		}
		return h.notifier.SendMessage(ctx, chatID, b.String())

	default:
		return h.notifier.SendMessage(ctx, chatID,
			"❓ Unknown command.\n\nAvailable:\n/start - begin\n/balance - show balance\n/history - recent transactions")
	}
}

func (h *ClientBot) handleCodeInput(r *http.Request, chatID, text string, profile models.Profile) error {
	ctx := r.Context()
	res, err := h.workflow.SubmitCode(ctx, chatID, text, profile)
	switch {
	case errors.Is(err, models.ErrInvalidCode):
		return h.notifier.SendMessage(ctx, chatID,
			"❌ Invalid code.\n\nCodes are 6-20 letters and digits.")
	case errors.Is(err, models.ErrCodeInUse):
		return h.notifier.SendMessage(ctx, chatID,
			"❌ This code has already been used.\n\nPlease submit a different code.")
	case err != nil:
		return err
	}

	// Payment requests and decision updates are dispatched by the
	// workflow after commit; the only direct reply left is the
	// waiting-for-review acknowledgment.
	if res.Transaction.Status == models.TxnAdminReview && !res.AutoApproved {
		text := fmt.Sprintf("✅ Code received: <code>%s</code>\n\n⏳ Waiting for review...\n💰 Balance: %s USDT",
			res.Transaction.Code, res.Customer.Balance.StringFixed(2))
		return h.notifier.SendMessage(ctx, chatID, text)
	}
	return nil
}

func statusEmoji(s models.TransactionStatus) string {
	switch s {
	case models.TxnApproved:
		return "✅"
	case models.TxnRejected:
		return "❌"
	case models.TxnAdminReview:
		return "⏳"
	case models.TxnPaymentConfirmed:
		return "💳"
	case models.TxnPaymentRequired:
		return "💰"
	}
	return "⏺"
}

func statusLabel(s models.TransactionStatus) string {
	switch s {
	case models.TxnApproved:
		return "approved"
	case models.TxnRejected:
		return "rejected"
	case models.TxnAdminReview:
		return "in review"
	case models.TxnPaymentConfirmed:
		return "paid"
	case models.TxnPaymentRequired:
		return "awaiting payment"
	}
	return "processing"
}
