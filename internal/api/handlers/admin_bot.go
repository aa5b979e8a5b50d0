package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/minhngoc/codepay-backend/internal/api/httpx"
	"github.com/minhngoc/codepay-backend/internal/metrics"
	"github.com/minhngoc/codepay-backend/internal/models"
	"github.com/minhngoc/codepay-backend/internal/services"
	"github.com/minhngoc/codepay-backend/internal/telegram"
)

// adminChat is the slice of the notifier the admin webhook needs beyond
// the workflow itself.
type adminChat interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
	ResolveApprovalMessage(ctx context.Context, messageID int64, approved bool, code, adminName string) error
	NotifyAdmin(ctx context.Context, text string) error
}

// AdminBot ingests the admin channel webhook: approve/reject button
// callbacks plus the /stats and /pending commands.
type AdminBot struct {
	workflow *services.WorkflowService
	chat     adminChat
}

func NewAdminBot(workflow *services.WorkflowService, chat adminChat) *AdminBot {
	return &AdminBot{workflow: workflow, chat: chat}
}

func (h *AdminBot) Webhook(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "malformed update", nil)
		return
	}
	metrics.EventsTotal.WithLabelValues("admin").Inc()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = h.handleCallback(r.Context(), update.CallbackQuery)
	case update.Message != nil && strings.HasPrefix(update.Message.Text, "/"):
		err = h.handleCommand(r.Context(), update.Message.Text)
	}
	if err != nil {
		slog.Error("admin webhook", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCallback applies an inline-button decision. Duplicate taps land on
// a transaction that already left admin_review and are answered without
// touching the state machine.
func (h *AdminBot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) error {
	action, txnID, ok := strings.Cut(cb.Data, "_")
	if !ok || (action != "approve" && action != "reject") {
		return h.chat.AnswerCallback(ctx, cb.ID, "")
	}

	adminID, adminName := "unknown", "Admin"
	if cb.From != nil {
		adminID = strconv.FormatInt(cb.From.ID, 10)
		if cb.From.FirstName != "" {
			adminName = cb.From.FirstName
		}
	}

	var (
		res services.DecisionResult
		err error
	)
	if action == "approve" {
		res, err = h.workflow.Decide(ctx, txnID, services.Decision{
			AdminID: adminID, Action: models.ActionApproved, Note: "Approved via Telegram bot",
		})
	} else {
		res, err = h.workflow.Decide(ctx, txnID, services.Decision{
			AdminID: adminID, Action: models.ActionRejected, Note: "Rejected via Telegram bot",
		})
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		return h.chat.AnswerCallback(ctx, cb.ID, "❌ Transaction not found")
	case errors.Is(err, models.ErrInvalidTransition):
		return h.chat.AnswerCallback(ctx, cb.ID, "Already processed")
	case errors.Is(err, models.ErrInsufficientFunds):
		// Observed upstream behavior: the transaction stays in review and
		// the admin only gets a toast.
		return h.chat.AnswerCallback(ctx, cb.ID, "❌ Customer has insufficient balance")
	case err != nil:
		return err
	}

	toast := "❌ Rejected"
	approved := res.Transaction.Status == models.TxnApproved
	if approved {
		toast = "✅ Approved"
	}
	if err := h.chat.AnswerCallback(ctx, cb.ID, toast); err != nil {
		slog.Error("answer callback", "transaction_id", txnID, "err", err)
	}
	if cb.Message != nil {
		if err := h.chat.ResolveApprovalMessage(ctx, cb.Message.MessageID, approved, res.Transaction.Code, adminName); err != nil {
			slog.Error("resolve approval message", "transaction_id", txnID, "err", err)
		}
	}
	return nil
}

func (h *AdminBot) handleCommand(ctx context.Context, text string) error {
	switch strings.ToLower(strings.Fields(text)[0]) {
	case "/stats":
		s, err := h.workflow.Summary(ctx)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf(
			"📊 <b>SYSTEM STATS</b>\n\n📅 Today:\n  • Transactions: %d\n  • Revenue: %s USDT\n\n⏳ Pending review: <b>%d</b>\n👥 Active customers (7d): %d",
			s.TodayCount, s.TodayRevenue.StringFixed(2), s.PendingReview, s.ActiveCustomers)
		return h.chat.NotifyAdmin(ctx, msg)

	case "/pending":
		items, err := h.workflow.PendingReview(ctx, 10)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return h.chat.NotifyAdmin(ctx, "✅ Nothing is waiting for review.")
		}
		var b strings.Builder
		b.WriteString("⏳ <b>PENDING REVIEW</b>\n\n")
		for _, it := range items {
			username := "N/A"
			if it.Customer.Username != nil {
				username = *it.Customer.Username
			}
			fmt.Fprintf(&b, "<code>%s</code>\n  👤 @%s\n  💰 %s USDT\n  ⏰ %s\n\n",
				it.Transaction.Code, username,
				it.Transaction.Amount.StringFixed(2),
				it.Transaction.CreatedAt.Format("02/01 15:04"))
		}
		return h.chat.NotifyAdmin(ctx, b.String())
	}
	return nil
}
