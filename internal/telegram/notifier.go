package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/minhngoc/codepay-backend/internal/services"
	"github.com/shopspring/decimal"
)

// Notifier implements services.Notifier over the two bots: the client bot
// talks to customers, the admin bot posts to the shared admin channel.
type Notifier struct {
	client      *BotClient
	admin       *BotClient
	adminChatID string
}

func NewNotifier(client, admin *BotClient, adminChatID string) *Notifier {
	return &Notifier{client: client, admin: admin, adminChatID: adminChatID}
}

func (n *Notifier) SendMessage(ctx context.Context, chatID, text string) error {
	_, err := n.client.SendMessage(ctx, chatID, text)
	return err
}

func (n *Notifier) SendPaymentRequest(ctx context.Context, chatID string, amount decimal.Decimal, address string) error {
	var b strings.Builder
	b.WriteString("💰 <b>PAYMENT REQUIRED</b>\n\n")
	fmt.Fprintf(&b, "Send exactly <b>%s USDT</b> to:\n", amount.StringFixed(2))
	fmt.Fprintf(&b, "<code>%s</code>\n\n", address)
	b.WriteString("Your code will move to review as soon as the payment is confirmed.")
	_, err := n.client.SendMessage(ctx, chatID, b.String())
	return err
}

func (n *Notifier) SendStatusUpdate(ctx context.Context, chatID string, kind services.StatusKind, u services.StatusUpdate) error {
	var b strings.Builder
	switch kind {
	case services.StatusPaymentConfirmed:
		b.WriteString("💳 <b>PAYMENT CONFIRMED</b>\n\n")
		fmt.Fprintf(&b, "Amount: %s USDT\n", u.Amount.StringFixed(2))
		if u.TxHash != "" {
			fmt.Fprintf(&b, "Tx: <code>%s</code>\n", u.TxHash)
		}
		fmt.Fprintf(&b, "Balance: <b>%s USDT</b>\n\n", u.Balance.StringFixed(2))
		b.WriteString("Your code is now waiting for review.")
	case services.StatusApproved, services.StatusAutoApproved:
		b.WriteString("✅ <b>APPROVED</b>\n\n")
		fmt.Fprintf(&b, "Code: <code>%s</code>\n", u.Code)
		fmt.Fprintf(&b, "Amount: %s USDT\n", u.Amount.StringFixed(2))
		fmt.Fprintf(&b, "Balance: <b>%s USDT</b>\n", u.Balance.StringFixed(2))
		if u.PayoutData != "" {
			fmt.Fprintf(&b, "\n%s", u.PayoutData)
		}
	case services.StatusRejected:
		b.WriteString("❌ <b>REJECTED</b>\n\n")
		fmt.Fprintf(&b, "Code: <code>%s</code>\n", u.Code)
		b.WriteString("Contact support if you believe this is a mistake.")
	default:
		return fmt.Errorf("unknown status kind %q", kind)
	}
	_, err := n.client.SendMessage(ctx, chatID, b.String())
	return err
}

func (n *Notifier) SendApprovalRequest(ctx context.Context, req services.ApprovalRequest) (string, error) {
	var b strings.Builder
	b.WriteString("🔔 <b>NEW REQUEST</b>\n\n")
	fmt.Fprintf(&b, "👤 Customer: @%s (%s)\n", orNA(req.Username), orNA(req.FirstName))
	fmt.Fprintf(&b, "📝 Code: <code>%s</code>\n", req.Code)
	fmt.Fprintf(&b, "💰 Amount: <b>%s USDT</b>\n", req.Amount.StringFixed(2))
	fmt.Fprintf(&b, "💳 Balance: %s USDT\n", req.Balance.StringFixed(2))
	fmt.Fprintf(&b, "⏰ Submitted: %s\n\n", req.CreatedAt.Format("02/01/2006 15:04"))
	b.WriteString("📊 History:\n")
	fmt.Fprintf(&b, "- Total: %d\n", req.Stats.TotalCount)
	fmt.Fprintf(&b, "- Approved: %d\n", req.Stats.ApprovedCount)
	fmt.Fprintf(&b, "- Rejected: %d", req.Stats.RejectedCount)

	msgID, err := n.admin.SendMessageWithButtons(ctx, n.adminChatID, b.String(), []InlineButton{
		{Text: "✅ Approve", CallbackData: "approve_" + req.TransactionID},
		{Text: "❌ Reject", CallbackData: "reject_" + req.TransactionID},
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(msgID, 10), nil
}

func (n *Notifier) NotifyAdmin(ctx context.Context, text string) error {
	_, err := n.admin.SendMessage(ctx, n.adminChatID, text)
	return err
}

// ResolveApprovalMessage rewrites the review message after a decision so
// double taps have nothing left to press.
func (n *Notifier) ResolveApprovalMessage(ctx context.Context, messageID int64, approved bool, code, adminName string) error {
	head := "❌ <b>REJECTED</b>"
	if approved {
		head = "✅ <b>APPROVED</b>"
	}
	text := fmt.Sprintf("%s\n\nCode: <code>%s</code>\nBy: %s", head, code, adminName)
	return n.admin.EditMessageText(ctx, n.adminChatID, messageID, text)
}

// AnswerCallback acknowledges an admin button press.
func (n *Notifier) AnswerCallback(ctx context.Context, callbackID, text string) error {
	return n.admin.AnswerCallbackQuery(ctx, callbackID, text)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
