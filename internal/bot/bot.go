package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/logging"
	"github.com/kuzkabot/sellerbot/internal/wb"
)

// Sender is the outbound half of the Bot API the dispatcher needs.
type Sender interface {
	SendMessage(ctx context.Context, req SendMessageRequest) error
}

// LoginLinker issues one-time web login links for a Telegram identity.
type LoginLinker interface {
	IssueLoginToken(ctx context.Context, telegramID int64) (string, error)
}

// CredentialReader loads the seller's stored WB API key.
type CredentialReader interface {
	Load(ctx context.Context, telegramID int64) (string, error)
}

// SellerGateway is the WB data surface the bot renders.
type SellerGateway interface {
	SellerInfo(ctx context.Context, token string) (*wb.SellerInfo, error)
	AccountBalance(ctx context.Context, token string) (*wb.Balance, error)
	Ping(ctx context.Context, token string) map[string]wb.PingResult
}

// Bot routes incoming Telegram messages to handlers. All replies are best
// effort; a failed sendMessage is logged and dropped.
type Bot struct {
	api    Sender
	logins LoginLinker
	creds  CredentialReader
	wb     SellerGateway
	logger logging.Logger
}

func New(api Sender, logins LoginLinker, creds CredentialReader, gateway SellerGateway, logger logging.Logger) *Bot {
	return &Bot{
		api:    api,
		logins: logins,
		creds:  creds,
		wb:     gateway,
		logger: logger.With("module", "bot"),
	}
}

const (
	btnProfile    = "Профиль"
	btnBalance    = "Баланс"
	btnCheckToken = "Проверка токена"
	btnSettings   = "Настройки"
)

func mainMenu() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: btnProfile}, {Text: btnBalance}},
			{{Text: btnCheckToken}, {Text: btnSettings}},
		},
		ResizeKeyboard: true,
	}
}

// HandleUpdate dispatches one update. It never returns an error: a handler
// failure must not make the webhook endpoint signal Telegram to redeliver.
func (b *Bot) HandleUpdate(ctx context.Context, u *Update) {

	if u == nil || u.Message == nil || u.Message.Chat == nil || u.Message.From == nil {
		return
	}
	if u.Message.From.IsBot || u.Message.Chat.Type != "private" {
		b.logger.Debug(ctx, "skipping update", "update_id", u.UpdateID, "chat_type", u.Message.Chat.Type)
		return
	}

	m := u.Message
	text := strings.TrimSpace(m.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		b.handleStart(ctx, m)
	case text == btnProfile:
		b.handleProfile(ctx, m)
	case text == btnBalance:
		b.handleBalance(ctx, m)
	case text == btnCheckToken:
		b.handleCheckToken(ctx, m)
	case text == btnSettings:
		b.handleSettings(ctx, m)
	default:
		b.reply(ctx, m.Chat.ID, SendMessageRequest{
			Text:        "Не понимаю. Выберите пункт меню.",
			ReplyMarkup: mainMenu(),
		})
	}
}

func (b *Bot) handleStart(ctx context.Context, m *Message) {
	b.reply(ctx, m.Chat.ID, SendMessageRequest{
		Text:        "Привет! Я Kuzka Seller Bot.\nВыбирай раздел:",
		ReplyMarkup: mainMenu(),
	})
}

func (b *Bot) handleSettings(ctx context.Context, m *Message) {
	url, err := b.logins.IssueLoginToken(ctx, m.From.ID)
	if err != nil {
		b.logger.Error(ctx, "issuing login link", "error", err)
		b.reply(ctx, m.Chat.ID, SendMessageRequest{Text: "Не удалось создать ссылку входа. Попробуйте позже."})
		return
	}
	b.reply(ctx, m.Chat.ID, SendMessageRequest{
		Text:                  "Откройте настройки в кабинете: " + url,
		DisableWebPagePreview: true,
	})
}

func (b *Bot) handleProfile(ctx context.Context, m *Message) {
	token, ok := b.requireAPIKey(ctx, m)
	if !ok {
		return
	}

	info, err := b.wb.SellerInfo(ctx, token)
	if err != nil {
		b.replyWBError(ctx, m.Chat.ID, "seller-info", err)
		return
	}

	name := info.Name
	if name == "" {
		name = "—"
	}
	sid := info.SID
	if sid == "" {
		sid = "—"
	}
	b.reply(ctx, m.Chat.ID, SendMessageRequest{
		Text:        fmt.Sprintf("👤 Продавец: %s\nID аккаунта: %s", name, sid),
		ReplyMarkup: mainMenu(),
	})
}

func (b *Bot) handleBalance(ctx context.Context, m *Message) {
	token, ok := b.requireAPIKey(ctx, m)
	if !ok {
		return
	}

	bal, err := b.wb.AccountBalance(ctx, token)
	if err != nil {
		b.replyWBError(ctx, m.Chat.ID, "balance", err)
		return
	}

	b.reply(ctx, m.Chat.ID, SendMessageRequest{
		Text: fmt.Sprintf("💰 Баланс: %.2f %s\n🔓 Доступно к выводу: %.2f %s",
			bal.Current, bal.Currency, bal.ForWithdraw, bal.Currency),
		ReplyMarkup: mainMenu(),
	})
}

func (b *Bot) handleCheckToken(ctx context.Context, m *Message) {
	token, ok := b.requireAPIKey(ctx, m)
	if !ok {
		return
	}

	results := b.wb.Ping(ctx, token)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := []string{"Результаты проверки токена:"}
	for _, name := range names {
		r := results[name]
		if r.OK {
			lines = append(lines, fmt.Sprintf("✅ %s (%d ms)", name, r.Duration.Milliseconds()))
		} else {
			lines = append(lines, fmt.Sprintf("❌ %s: %s", name, r.Err))
		}
	}

	if claims := wb.PeekTokenClaims(token); claims != nil && !claims.ExpiresAt.IsZero() {
		lines = append(lines, "Срок действия ключа: до "+claims.ExpiresAt.Format("02.01.2006"))
	}

	b.reply(ctx, m.Chat.ID, SendMessageRequest{
		Text:        strings.Join(lines, "\n"),
		ReplyMarkup: mainMenu(),
	})
}

// requireAPIKey loads the stored WB key for the sender. On any failure it
// replies with a login link so the seller can fix the key in the web
// cabinet, and reports ok=false.
func (b *Bot) requireAPIKey(ctx context.Context, m *Message) (string, bool) {

	token, err := b.creds.Load(ctx, m.From.ID)
	if err == nil {
		return token, true
	}

	var text, label string
	switch {
	case errors.Is(err, common.ErrorNotFound):
		text, label = "API-ключ WB не найден. Добавьте его в настройках кабинета.", "Сохранить API-ключ"
	case errors.Is(err, common.ErrDecryptionAuthFailure):
		text, label = "Не удалось расшифровать API-ключ. Сохраните его заново.", "Обновить API-ключ"
	default:
		b.logger.Error(ctx, "loading credential", "telegram_id", m.From.ID, "error", err)
		b.reply(ctx, m.Chat.ID, SendMessageRequest{Text: "Временная ошибка. Попробуйте позже."})
		return "", false
	}

	req := SendMessageRequest{Text: text, DisableWebPagePreview: true}
	if url, lerr := b.logins.IssueLoginToken(ctx, m.From.ID); lerr == nil {
		req.ReplyMarkup = &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{{Text: label, URL: url}}},
		}
	} else {
		b.logger.Error(ctx, "issuing login link", "error", lerr)
	}
	b.reply(ctx, m.Chat.ID, req)
	return "", false
}

func (b *Bot) replyWBError(ctx context.Context, chatID int64, op string, err error) {
	if errors.Is(err, wb.ErrUnauthorized) {
		b.reply(ctx, chatID, SendMessageRequest{
			Text:        "WB отклонил API-ключ. Проверьте его в настройках кабинета.",
			ReplyMarkup: mainMenu(),
		})
		return
	}
	if errors.Is(err, wb.ErrRateLimited) {
		b.reply(ctx, chatID, SendMessageRequest{Text: "Слишком часто. Подождите минуту и повторите."})
		return
	}
	b.logger.Warn(ctx, "wb call failed", "op", op, "error", err)
	b.reply(ctx, chatID, SendMessageRequest{Text: fmt.Sprintf("Ошибка WB %s: %v", op, err)})
}

func (b *Bot) reply(ctx context.Context, chatID int64, req SendMessageRequest) {
	req.ChatID = chatID
	if err := b.api.SendMessage(ctx, req); err != nil {
		b.logger.Warn(ctx, "sending reply", "chat_id", chatID, "error", err)
	}
}
