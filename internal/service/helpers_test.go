package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"giftshop-bot/internal/cryptopay"
	"giftshop-bot/internal/model"
	"giftshop-bot/internal/repository"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db       *gorm.DB
	users    *repository.UserRepository
	bans     *repository.BanRepository
	invoices *repository.InvoiceRepository
	events   *repository.EventRepository
	gifts    *repository.GiftRepository
	audit    *AuditService
	log      *logrus.Logger
	hook     *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repository.NewDB(":memory:", nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	env := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		bans:     repository.NewBanRepository(db),
		invoices: repository.NewInvoiceRepository(db),
		events:   repository.NewEventRepository(db),
		gifts:    repository.NewGiftRepository(db),
		log:      log,
		hook:     hook,
	}
	env.audit = NewAuditService(env.events, env.users, env.bans, log)
	env.audit.now = func() time.Time { return fixedNow }
	return env
}

func (e *testEnv) actions(t *testing.T) []string {
	t.Helper()
	list, err := e.events.List(context.Background(), repository.EventFilter{Limit: 1000})
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i].Action)
	}
	return out
}

func createGift(env *testEnv, gift *model.Gift) error {
	return env.db.Create(gift).Error
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

type textSenderMock struct {
	mock.Mock
}

func (m *textSenderMock) SendText(ctx context.Context, chatID int64, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

type animationSenderMock struct {
	mock.Mock
}

func (m *animationSenderMock) SendAnimation(ctx context.Context, chatID int64, ref string, isFileID bool, caption string) error {
	return m.Called(ctx, chatID, ref, isFileID, caption).Error(0)
}
