package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"giftshop-bot/internal/conversation"
	"giftshop-bot/internal/metrics"
	"giftshop-bot/internal/model"
	"giftshop-bot/internal/service"
)

// Messenger is the part of the Telegram API the bot talks through.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// UpdateSource delivers inbound updates in arrival order.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type banStore interface {
	Ban(ctx context.Context, platformID int64, reason string, at time.Time) error
	Unban(ctx context.Context, platformID int64) (bool, error)
}

type reminderSource interface {
	Due(ctx context.Context) ([]model.User, time.Time, error)
}

// Deps are the services the bot dispatches to.
type Deps struct {
	Gate          *service.AccessGate
	Resolver      *service.TargetResolver
	Subscriptions *service.SubscriptionService
	Broadcasts    *service.BroadcastService
	Audit         *service.AuditService
	Bans          banStore
	Reminders     reminderSource
	Conversations *conversation.Store
	Admin         service.AdminIdentity
	Log           logrus.FieldLogger
	Metrics       *metrics.Metrics
	Location      *time.Location
}

// Bot aggregates the Telegram API with services.
type Bot struct {
	api           Messenger
	gate          *service.AccessGate
	resolver      *service.TargetResolver
	subs          *service.SubscriptionService
	broadcasts    *service.BroadcastService
	audit         *service.AuditService
	bans          banStore
	reminders     reminderSource
	conversations *conversation.Store
	admin         service.AdminIdentity
	log           logrus.FieldLogger
	metrics       *metrics.Metrics
	loc           *time.Location
	now           func() time.Time

	// background broadcasts
	jobs sync.WaitGroup
}

func New(api Messenger, d Deps) *Bot {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	store := d.Conversations
	if store == nil {
		store = conversation.NewStore()
	}
	return &Bot{
		api:           api,
		gate:          d.Gate,
		resolver:      d.Resolver,
		subs:          d.Subscriptions,
		broadcasts:    d.Broadcasts,
		audit:         d.Audit,
		bans:          d.Bans,
		reminders:     d.Reminders,
		conversations: store,
		admin:         d.Admin,
		log:           d.Log,
		metrics:       d.Metrics,
		loc:           loc,
		now:           time.Now,
	}
}

// Start polls updates until ctx is cancelled. Updates are handled one at a
// time; broadcasts started from a handler keep running in the background and
// are awaited before Start returns.
func (b *Bot) Start(ctx context.Context, source UpdateSource) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := source.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		source.StopReceivingUpdates()
	}()

	for update := range updates {
		if ctx.Err() != nil {
			break
		}
		b.HandleUpdate(ctx, update)
	}

	b.jobs.Wait()
	return nil
}

// Wait blocks until background broadcasts finish.
func (b *Bot) Wait() {
	b.jobs.Wait()
}

// HandleUpdate runs one update through the access gate and the handlers.
// A failure or panic here never stops the polling loop.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{"panic": r, "update_id": update.UpdateID}).
				Errorf("update handler panicked\n%s", debug.Stack())
		}
	}()

	var (
		from *tgbotapi.User
		kind string
	)
	switch {
	case update.CallbackQuery != nil:
		if update.CallbackQuery.Message == nil {
			return
		}
		from, kind = update.CallbackQuery.From, "callback"
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		from, kind = update.Message.From, "message"
		if update.Message.IsCommand() {
			kind = "command"
		}
	default:
		return
	}
	if from == nil {
		return
	}
	b.metrics.Update(kind)

	who := identityOf(from)
	decision := b.gate.Check(ctx, who)
	if !decision.Permitted() {
		if decision == service.DecisionBlocked {
			b.notifyBlocked(update)
		}
		return
	}
	isAdmin := decision == service.DecisionAdmin

	var err error
	if update.CallbackQuery != nil {
		err = b.handleCallback(ctx, update.CallbackQuery, who, isAdmin)
	} else {
		err = b.handleMessage(ctx, update.Message, who, isAdmin)
	}
	if err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{"user_id": who.ID, "kind": kind}).Warn("handle update")
	}
}

func (b *Bot) notifyBlocked(update tgbotapi.Update) {
	var err error
	if cb := update.CallbackQuery; cb != nil {
		_, err = b.api.Request(tgbotapi.NewCallbackWithAlert(cb.ID, textBlocked))
	} else {
		_, err = b.api.Send(tgbotapi.NewMessage(update.Message.Chat.ID, textBlocked))
	}
	if err != nil {
		b.log.WithError(err).Debug("send block notice")
	}
}

func identityOf(u *tgbotapi.User) service.Identity {
	return service.Identity{ID: u.ID, Handle: u.UserName}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(edit)
	return err
}

// answer acknowledges a callback, as an alert when alert is set.
func (b *Bot) answer(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	cfg := tgbotapi.NewCallback(cb.ID, text)
	cfg.ShowAlert = alert
	if _, err := b.api.Request(cfg); err != nil {
		b.log.WithError(err).Debug("callback ack")
	}
}

func (b *Bot) formatTime(t time.Time) string {
	return t.In(b.loc).Format("2006-01-02 15:04:05")
}

func (b *Bot) formatUntil(until *time.Time) string {
	if until == nil {
		return "бессрочно"
	}
	return b.formatTime(*until)
}

func (b *Bot) record(ctx context.Context, actor int64, action, format string, args ...any) {
	details := format
	if len(args) > 0 {
		details = fmt.Sprintf(format, args...)
	}
	b.audit.Record(ctx, actor, action, details)
}
