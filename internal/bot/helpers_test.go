package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"giftshop-bot/internal/conversation"
	"giftshop-bot/internal/cryptopay"
	"giftshop-bot/internal/repository"
	"giftshop-bot/internal/service"
)

const (
	adminID int64 = 1
	userID  int64 = 42
)

// fakeMessenger records everything the bot sends.
type fakeMessenger struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	failFor  map[int64]error
}

func (f *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		if err := f.failFor[msg.ChatID]; err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeMessenger) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// textsTo returns the text of every message and edit addressed to chatID.
func (f *fakeMessenger) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		case tgbotapi.EditMessageTextConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		}
	}
	return out
}

func (f *fakeMessenger) lastTextTo(t *testing.T, chatID int64) string {
	t.Helper()
	texts := f.textsTo(chatID)
	require.NotEmpty(t, texts, "no message sent to %d", chatID)
	return texts[len(texts)-1]
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMessenger) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func (f *fakeMessenger) alerts() []string {
	var out []string
	for _, cb := range f.callbacks() {
		if cb.ShowAlert {
			out = append(out, cb.Text)
		}
	}
	return out
}

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) CreateInvoice(ctx context.Context, in cryptopay.InvoiceRequest) (*cryptopay.Invoice, error) {
	args := m.Called(ctx, in)
	inv, _ := args.Get(0).(*cryptopay.Invoice)
	return inv, args.Error(1)
}

func (m *gatewayMock) GetInvoice(ctx context.Context, invoiceID string) (*cryptopay.Invoice, error) {
	args := m.Called(ctx, invoiceID)
	inv, _ := args.Get(0).(*cryptopay.Invoice)
	return inv, args.Error(1)
}

type harness struct {
	bot     *Bot
	api     *fakeMessenger
	gateway *gatewayMock
	users   *repository.UserRepository
	bans    *repository.BanRepository
	events  *repository.EventRepository
	store   *conversation.Store
	hook    *test.Hook
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := repository.NewDB(":memory:", nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	h := &harness{
		api:     &fakeMessenger{failFor: map[int64]error{}},
		gateway: &gatewayMock{},
		users:   repository.NewUserRepository(db),
		bans:    repository.NewBanRepository(db),
		events:  repository.NewEventRepository(db),
		store:   conversation.NewStore(),
		hook:    hook,
	}
	invoices := repository.NewInvoiceRepository(db)
	admin := service.AdminIdentity{ID: adminID, Handle: "boss"}
	audit := service.NewAuditService(h.events, h.users, h.bans, log)
	sender := NewTelegramSender(h.api)

	h.bot = New(h.api, Deps{
		Gate:          service.NewAccessGate(h.users, h.bans, admin, log, nil),
		Resolver:      service.NewTargetResolver(h.users),
		Subscriptions: service.NewSubscriptionService(h.gateway, h.users, invoices, audit, log, nil),
		Broadcasts:    service.NewBroadcastService(h.users, sender, 0, log, nil),
		Audit:         audit,
		Bans:          h.bans,
		Reminders:     service.NewReminderService(h.users, 24*time.Hour),
		Conversations: h.store,
		Admin:         admin,
		Log:           log,
	})
	return h
}

func (h *harness) message(from int64, handle, text string) {
	h.bot.HandleUpdate(context.Background(), messageUpdate(from, handle, text))
}

func (h *harness) callback(from int64, data string) {
	h.bot.HandleUpdate(context.Background(), callbackUpdate(from, data))
}

func (h *harness) actions(t *testing.T) []string {
	t.Helper()
	list, err := h.events.List(context.Background(), repository.EventFilter{Limit: 1000})
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i].Action)
	}
	return out
}

func (h *harness) grantVIP(t *testing.T, id int64, d time.Duration) {
	t.Helper()
	_, err := h.users.ExtendSubscription(context.Background(), id, d, time.Now())
	require.NoError(t, err)
}

func messageUpdate(from int64, handle, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: handle},
		Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		cmd := strings.SplitN(text, " ", 2)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func callbackUpdate(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 2,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb",
			From: &tgbotapi.User{ID: from},
			Message: &tgbotapi.Message{
				MessageID: 10,
				Chat:      &tgbotapi.Chat{ID: from, Type: "private"},
			},
			Data: data,
		},
	}
}
