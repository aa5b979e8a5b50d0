package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BotClient is a minimal bot API client covering the five calls this
// service makes. Requests are plain JSON posts to the bot method endpoint.
type BotClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewBotClient(baseURL, token string) *BotClient {
	return &BotClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func (c *BotClient) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("telegram %s: decode: %w", method, err)
	}
	if !api.OK {
		return fmt.Errorf("telegram %s: %s", method, api.Description)
	}
	if out != nil && api.Result != nil {
		return json.Unmarshal(api.Result, out)
	}
	return nil
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type sendMessageReq struct {
	ChatID      string          `json:"chat_id"`
	Text        string          `json:"text"`
	ParseMode   string          `json:"parse_mode,omitempty"`
	ReplyMarkup *inlineKeyboard `json:"reply_markup,omitempty"`
}

// SendMessage posts an HTML-formatted message and returns its message id.
func (c *BotClient) SendMessage(ctx context.Context, chatID, text string) (int64, error) {
	return c.send(ctx, sendMessageReq{ChatID: chatID, Text: text, ParseMode: "HTML"})
}

// SendMessageWithButtons posts a message with one row of inline buttons.
func (c *BotClient) SendMessageWithButtons(ctx context.Context, chatID, text string, buttons []InlineButton) (int64, error) {
	return c.send(ctx, sendMessageReq{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   "HTML",
		ReplyMarkup: &inlineKeyboard{InlineKeyboard: [][]InlineButton{buttons}},
	})
}

func (c *BotClient) send(ctx context.Context, req sendMessageReq) (int64, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// EditMessageText replaces a previously sent message, dropping any inline
// keyboard it carried.
func (c *BotClient) EditMessageText(ctx context.Context, chatID string, messageID int64, text string) error {
	return c.call(ctx, "editMessageText", struct {
		ChatID    string `json:"chat_id"`
		MessageID int64  `json:"message_id"`
		Text      string `json:"text"`
		ParseMode string `json:"parse_mode"`
	}{chatID, messageID, text, "HTML"}, nil)
}

// AnswerCallbackQuery acknowledges a button press with a toast.
func (c *BotClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", struct {
		CallbackQueryID string `json:"callback_query_id"`
		Text            string `json:"text,omitempty"`
	}{callbackID, text}, nil)
}
