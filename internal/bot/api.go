// Package bot is the Telegram side of the application: a thin Bot API
// client for outbound calls and a webhook dispatcher for inbound updates.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kuzkabot/sellerbot/internal/logging"
)

const defaultAPIBase = "https://api.telegram.org"

// Update is the subset of a Telegram update the bot reacts to.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      *Chat  `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type KeyboardButton struct {
	Text string `json:"text"`
}

type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

type InlineKeyboardButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// SendMessageRequest mirrors the Bot API sendMessage payload. ReplyMarkup
// takes either keyboard markup type.
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ReplyMarkup           any    `json:"reply_markup,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

// API calls the Telegram Bot API over HTTPS. Safe for concurrent use.
type API struct {
	token  string
	httpc  *http.Client
	logger logging.Logger

	// overridable in tests
	base string
}

func NewAPI(token string, logger logging.Logger) *API {
	return &API{
		token:  token,
		httpc:  &http.Client{Timeout: 15 * time.Second},
		logger: logger.With("module", "tg_api"),
		base:   defaultAPIBase,
	}
}

// SendMessage delivers one message. Delivery is best effort: Telegram may
// drop it and the caller is not expected to retry.
func (a *API) SendMessage(ctx context.Context, req SendMessageRequest) error {
	return a.call(ctx, "sendMessage", req)
}

// SetWebhook points Telegram at url and registers the shared secret it must
// echo back in X-Telegram-Bot-Api-Secret-Token.
func (a *API) SetWebhook(ctx context.Context, url, secret string) error {
	return a.call(ctx, "setWebhook", map[string]any{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": []string{"message"},
	})
}

// DeleteWebhook detaches the webhook so a bot instance can be retired.
func (a *API) DeleteWebhook(ctx context.Context) error {
	return a.call(ctx, "deleteWebhook", map[string]any{})
}

func (a *API) call(ctx context.Context, method string, payload any) error {

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", a.base, a.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var out struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("bad response to %s: %w", method, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram %s: %s", method, out.Description)
	}
	return nil
}
