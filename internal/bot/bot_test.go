package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuzkabot/sellerbot/internal/common"
	"github.com/kuzkabot/sellerbot/internal/logging"
	"github.com/kuzkabot/sellerbot/internal/wb"
)

type fakeSender struct {
	sent []SendMessageRequest
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, req SendMessageRequest) error {
	f.sent = append(f.sent, req)
	return f.err
}

type fakeLinker struct {
	url string
	err error
}

func (f *fakeLinker) IssueLoginToken(context.Context, int64) (string, error) {
	return f.url, f.err
}

type fakeCreds struct {
	token string
	err   error
}

func (f *fakeCreds) Load(context.Context, int64) (string, error) {
	return f.token, f.err
}

type fakeGateway struct {
	info    *wb.SellerInfo
	infoErr error
	balance *wb.Balance
	balErr  error
	ping    map[string]wb.PingResult
}

func (f *fakeGateway) SellerInfo(context.Context, string) (*wb.SellerInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeGateway) AccountBalance(context.Context, string) (*wb.Balance, error) {
	return f.balance, f.balErr
}

func (f *fakeGateway) Ping(context.Context, string) map[string]wb.PingResult {
	return f.ping
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func privateMessage(text string) *Update {
	return &Update{
		UpdateID: 1,
		Message: &Message{
			From: &User{ID: 42},
			Chat: &Chat{ID: 42, Type: "private"},
			Text: text,
		},
	}
}

func newTestBot(sender *fakeSender, linker *fakeLinker, creds *fakeCreds, gw *fakeGateway) *Bot {
	if sender == nil {
		sender = &fakeSender{}
	}
	if linker == nil {
		linker = &fakeLinker{url: "https://bot.example.com/login/tg?token=x"}
	}
	if creds == nil {
		creds = &fakeCreds{token: "a.b.c"}
	}
	if gw == nil {
		gw = &fakeGateway{}
	}
	return New(sender, linker, creds, gw, testLogger())
}

func TestHandleUpdate_Start(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, nil, nil, nil)

	b.HandleUpdate(context.Background(), privateMessage("/start"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "Kuzka Seller Bot")
	kb, ok := sender.sent[0].ReplyMarkup.(*ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, btnProfile, kb.Keyboard[0][0].Text)
}

func TestHandleUpdate_IgnoresGroupsAndBots(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, nil, nil, nil)

	group := privateMessage("/start")
	group.Message.Chat.Type = "supergroup"
	b.HandleUpdate(context.Background(), group)

	fromBot := privateMessage("/start")
	fromBot.Message.From.IsBot = true
	b.HandleUpdate(context.Background(), fromBot)

	b.HandleUpdate(context.Background(), &Update{UpdateID: 3})

	assert.Empty(t, sender.sent)
}

func TestHandleUpdate_Balance(t *testing.T) {
	sender := &fakeSender{}
	gw := &fakeGateway{balance: &wb.Balance{Currency: "RUB", Current: 49985.47, ForWithdraw: 120}}
	b := newTestBot(sender, nil, nil, gw)

	b.HandleUpdate(context.Background(), privateMessage("Баланс"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "49985.47 RUB")
	assert.Contains(t, sender.sent[0].Text, "120.00 RUB")
}

func TestHandleUpdate_Profile(t *testing.T) {
	sender := &fakeSender{}
	gw := &fakeGateway{info: &wb.SellerInfo{Name: "ООО Ромашка", SID: "sid-1"}}
	b := newTestBot(sender, nil, nil, gw)

	b.HandleUpdate(context.Background(), privateMessage("Профиль"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "ООО Ромашка")
	assert.Contains(t, sender.sent[0].Text, "sid-1")
}

func TestHandleUpdate_CheckToken(t *testing.T) {
	sender := &fakeSender{}
	gw := &fakeGateway{ping: map[string]wb.PingResult{
		"seller-info":     {OK: true},
		"account-balance": {OK: false, Err: "unauthorized"},
	}}
	b := newTestBot(sender, nil, nil, gw)

	b.HandleUpdate(context.Background(), privateMessage("Проверка токена"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "✅ seller-info")
	assert.Contains(t, sender.sent[0].Text, "❌ account-balance: unauthorized")
}

func TestHandleUpdate_MissingKeyGetsLoginLink(t *testing.T) {
	sender := &fakeSender{}
	creds := &fakeCreds{err: common.ErrorNotFound}
	linker := &fakeLinker{url: "https://bot.example.com/login/tg?token=abc"}
	b := newTestBot(sender, linker, creds, nil)

	b.HandleUpdate(context.Background(), privateMessage("Баланс"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "API-ключ WB не найден")
	ikb, ok := sender.sent[0].ReplyMarkup.(*InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "Сохранить API-ключ", ikb.InlineKeyboard[0][0].Text)
	assert.Equal(t, linker.url, ikb.InlineKeyboard[0][0].URL)
}

func TestHandleUpdate_UndecryptableKey(t *testing.T) {
	sender := &fakeSender{}
	creds := &fakeCreds{err: common.ErrDecryptionAuthFailure}
	b := newTestBot(sender, nil, creds, nil)

	b.HandleUpdate(context.Background(), privateMessage("Профиль"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Не удалось расшифровать")
	ikb, ok := sender.sent[0].ReplyMarkup.(*InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "Обновить API-ключ", ikb.InlineKeyboard[0][0].Text)
}

func TestHandleUpdate_BadKeyRejectedByWB(t *testing.T) {
	sender := &fakeSender{}
	gw := &fakeGateway{balErr: wb.ErrUnauthorized}
	b := newTestBot(sender, nil, nil, gw)

	b.HandleUpdate(context.Background(), privateMessage("Баланс"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "WB отклонил API-ключ")
}

func TestHandleUpdate_Settings(t *testing.T) {
	sender := &fakeSender{}
	linker := &fakeLinker{url: "https://bot.example.com/login/tg?token=xyz"}
	b := newTestBot(sender, linker, nil, nil)

	b.HandleUpdate(context.Background(), privateMessage("Настройки"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, linker.url)
	assert.True(t, sender.sent[0].DisableWebPagePreview)
}

func TestHandleUpdate_SettingsLinkFailure(t *testing.T) {
	sender := &fakeSender{}
	linker := &fakeLinker{err: errors.New("store down")}
	b := newTestBot(sender, linker, nil, nil)

	b.HandleUpdate(context.Background(), privateMessage("Настройки"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Не удалось создать ссылку")
}

func TestHandleUpdate_UnknownText(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, nil, nil, nil)

	b.HandleUpdate(context.Background(), privateMessage("что-то ещё"))

	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "Выберите пункт меню")
}
