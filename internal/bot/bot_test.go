package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"giftshop-bot/internal/conversation"
	"giftshop-bot/internal/cryptopay"
)

func TestBannedUserOnlyGetsBlockNotice(t *testing.T) {
	h := newHarness(t)
	h.message(adminID, "boss", "/ban 555 spam")
	require.Contains(t, h.api.lastTextTo(t, adminID), "забанен")

	h.message(555, "villain", "/start")
	h.message(555, "villain", "/shop")
	h.message(555, "villain", "hello")
	h.callback(555, "plan:7:7.90")

	assert.Equal(t, []string{textBlocked, textBlocked, textBlocked}, h.api.textsTo(555))
	assert.Equal(t, []string{textBlocked}, h.api.alerts())
	assert.Equal(t, []string{"admin_ban"}, h.actions(t))
	h.gateway.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestAdminIsNeverBlocked(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.bans.Ban(context.Background(), adminID, "oops", time.Now()))

	h.message(adminID, "boss", "/admin")

	assert.Contains(t, h.api.lastTextTo(t, adminID), "Админ-панель")
	assert.Contains(t, h.actions(t), "admin_open")
}

func TestGroupMessagesIgnored(t *testing.T) {
	h := newHarness(t)
	upd := messageUpdate(userID, "alice", "/start")
	upd.Message.Chat.Type = "group"

	h.bot.HandleUpdate(context.Background(), upd)

	assert.Zero(t, h.api.sentCount())
	_, err := h.users.FindByPlatformID(context.Background(), userID)
	assert.Error(t, err)
}

func TestStartRecordsUserAndEvent(t *testing.T) {
	h := newHarness(t)

	h.message(userID, "alice", "/start")

	user, err := h.users.FindByPlatformID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Handle)
	assert.Equal(t, textStart, h.api.lastTextTo(t, userID))
	assert.Equal(t, []string{"start"}, h.actions(t))
}

func TestUnknownTextAndCommand(t *testing.T) {
	h := newHarness(t)

	h.message(userID, "alice", "what")
	h.message(userID, "alice", "/nope")

	assert.Equal(t, []string{textUnknown, textUnknownCommand}, h.api.textsTo(userID))
}

func TestNonAdminCannotUseAdminCommands(t *testing.T) {
	h := newHarness(t)

	h.message(userID, "alice", "/ban 555")
	h.callback(userID, "admin:ban")

	assert.Empty(t, h.api.textsTo(userID))
	banned, err := h.bans.IsBanned(context.Background(), 555)
	require.NoError(t, err)
	assert.False(t, banned)
	assert.Equal(t, conversation.Idle, h.store.Get(userID).Kind)
}

func TestStaleAdminStepClearedForNonAdmin(t *testing.T) {
	h := newHarness(t)
	h.store.Set(userID, conversation.Begin(conversation.AwaitingBanTarget))

	h.message(userID, "alice", "555")

	assert.Equal(t, conversation.Idle, h.store.Get(userID).Kind)
	assert.Empty(t, h.api.textsTo(userID))
}

func TestMethodsRequireVIP(t *testing.T) {
	h := newHarness(t)

	h.message(userID, "alice", "/methods")
	h.callback(userID, "m:group")

	assert.Equal(t, []string{textVIPRequired}, h.api.textsTo(userID))
	assert.Equal(t, []string{textVIPRequired}, h.api.alerts())
	assert.Equal(t, conversation.Idle, h.store.Get(userID).Kind)
}

func TestReportByUsername(t *testing.T) {
	h := newHarness(t)
	h.grantVIP(t, userID, 48*time.Hour)

	h.callback(userID, "m:username")
	require.Equal(t, conversation.AwaitingUsername, h.store.Get(userID).Kind)
	assert.Equal(t, textAskUsername, h.api.lastTextTo(t, userID))

	h.message(userID, "alice", "   ")
	assert.Equal(t, textAskUsername, h.api.lastTextTo(t, userID))
	require.Equal(t, conversation.AwaitingUsername, h.store.Get(userID).Kind)

	h.message(userID, "alice", "@spammer")
	state := h.store.Get(userID)
	require.Equal(t, conversation.AwaitingUsernameViolationLink, state.Kind)
	assert.Equal(t, "@spammer", state.Username)

	h.message(userID, "alice", "https://t.me/c/1/2")
	assert.Equal(t, textReportAccepted, h.api.lastTextTo(t, userID))
	assert.Equal(t, conversation.Idle, h.store.Get(userID).Kind)

	notice := h.api.lastTextTo(t, adminID)
	assert.Contains(t, notice, "@spammer")
	assert.Contains(t, notice, "https://t.me/c/1/2")
	assert.Contains(t, notice, "@alice")
	assert.Equal(t, []string{"method_selected", "report_submitted_username"}, h.actions(t))
}

func TestReportByLink(t *testing.T) {
	h := newHarness(t)
	h.grantVIP(t, userID, 48*time.Hour)

	h.callback(userID, "m:channel")
	state := h.store.Get(userID)
	require.Equal(t, conversation.AwaitingReportLink, state.Kind)
	assert.Equal(t, "channel", state.Method)

	h.message(userID, "alice", "https://t.me/somechannel/5")

	assert.Equal(t, textReportAccepted, h.api.lastTextTo(t, userID))
	assert.Contains(t, h.api.lastTextTo(t, adminID), "channel")
}

func TestCommandsTakePrecedenceOverConversation(t *testing.T) {
	h := newHarness(t)
	h.grantVIP(t, userID, 48*time.Hour)
	h.callback(userID, "m:group")

	h.message(userID, "alice", "/status")
	assert.Contains(t, h.api.lastTextTo(t, userID), "VIP")
	assert.Equal(t, conversation.AwaitingReportLink, h.store.Get(userID).Kind)

	h.message(userID, "alice", "/cancel")
	assert.Equal(t, textCancelled, h.api.lastTextTo(t, userID))
	assert.Equal(t, conversation.Idle, h.store.Get(userID).Kind)

	h.message(userID, "alice", "/cancel")
	assert.Equal(t, textNothingToCancel, h.api.lastTextTo(t, userID))
}

func TestForgedPlanTokenRejected(t *testing.T) {
	h := newHarness(t)

	h.callback(userID, "plan:7:0.01")
	h.callback(userID, "asset:USDT:30:0.10")
	h.callback(userID, "asset:BTC:7:7.90")

	assert.Equal(t, []string{"Тариф не найден", "Тариф не найден", "Тариф не найден"}, h.api.alerts())
	assert.Empty(t, h.api.textsTo(userID))
	h.gateway.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestCheckoutAndPaymentConfirmation(t *testing.T) {
	h := newHarness(t)
	h.gateway.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(in cryptopay.InvoiceRequest) bool {
		return in.Asset == "USDT" && in.Amount.StringFixed(2) == "7.90" && in.Payload == "42|7"
	})).Return(&cryptopay.Invoice{InvoiceID: "77", Status: "active", PayURL: "https://pay.example/77"}, nil).Once()
	h.gateway.On("GetInvoice", mock.Anything, "77").
		Return(&cryptopay.Invoice{InvoiceID: "77", Status: "paid", Asset: "USDT", Amount: "7.90", Payload: "42|7"}, nil).Twice()

	h.callback(userID, "plan:7:7.90")
	assert.Contains(t, h.api.lastTextTo(t, userID), "Выберите валюту")

	h.callback(userID, "asset:USDT:7:7.90")
	assert.Contains(t, h.api.lastTextTo(t, userID), "Счёт создан")

	h.callback(userID, "check:77")
	assert.Contains(t, h.api.lastTextTo(t, userID), "Платёж подтверждён")

	h.callback(userID, "check:77")
	alerts := h.api.alerts()
	require.NotEmpty(t, alerts)
	assert.Contains(t, alerts[len(alerts)-1], "Платёж уже учтён")

	user, err := h.users.FindByPlatformID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, user.SubscriptionUntil)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *user.SubscriptionUntil, time.Minute)
	h.gateway.AssertExpectations(t)
}

func TestPendingPaymentAlert(t *testing.T) {
	h := newHarness(t)
	h.gateway.On("GetInvoice", mock.Anything, "9").
		Return(&cryptopay.Invoice{InvoiceID: "9", Status: "active", Payload: "42|1"}, nil).Once()

	h.callback(userID, "check:9")

	assert.Contains(t, h.api.alerts(), "Оплата не найдена. Попробуйте позже.")
	status, err := h.bot.subs.Status(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, status.Valid)
}

func TestHandleUpdateRecoversFromPanic(t *testing.T) {
	log, hook := test.NewNullLogger()
	b := New(&fakeMessenger{}, Deps{Log: log})

	assert.NotPanics(t, func() {
		b.HandleUpdate(context.Background(), messageUpdate(userID, "alice", "/start"))
	})
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "panicked")
}

func TestCallbackWithoutMessageIgnored(t *testing.T) {
	h := newHarness(t)
	upd := callbackUpdate(userID, cbShop)
	upd.CallbackQuery.Message = nil

	h.bot.HandleUpdate(context.Background(), upd)

	assert.Zero(t, h.api.sentCount())
	assert.Empty(t, h.api.callbacks())
}

func TestStatusWithoutSubscription(t *testing.T) {
	h := newHarness(t)

	h.message(userID, "alice", "/status")

	sent := h.api.sent[len(h.api.sent)-1].(tgbotapi.MessageConfig)
	assert.Equal(t, "❌ VIP не активен.", sent.Text)
	assert.Equal(t, buyKeyboard(), sent.ReplyMarkup)
}
