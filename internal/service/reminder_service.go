package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"giftshop-bot/internal/model"
)

type expiringLister interface {
	ListExpiring(ctx context.Context, from, to time.Time) ([]model.User, error)
}

// ReminderService finds subscriptions about to lapse and builds the notice sent to their owners.
type ReminderService struct {
	users  expiringLister
	window time.Duration
	now    func() time.Time
}

func NewReminderService(users expiringLister, window time.Duration) *ReminderService {
	if window <= 0 {
		window = day
	}
	return &ReminderService{users: users, window: window, now: time.Now}
}

// Due returns non-banned subscribers whose validity ends within the window.
func (s *ReminderService) Due(ctx context.Context) ([]model.User, time.Time, error) {
	now := s.now()
	users, err := s.users.ListExpiring(ctx, now, now.Add(s.window))
	if err != nil {
		return nil, now, &PersistenceError{Op: "list expiring", Err: err}
	}
	return users, now, nil
}

// ExpiryNotice renders the reminder for user as HTML.
func ExpiryNotice(user model.User, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder
	sb.WriteString("⏳ <b>VIP скоро закончится</b>\n")

	if user.SubscriptionUntil != nil {
		until := user.SubscriptionUntil.In(loc)
		left := until.Sub(now)
		hours := int(left.Hours())
		if hours < 1 {
			sb.WriteString(fmt.Sprintf("Доступ действует до %s, осталось меньше часа.\n", until.Format("02.01.2006 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("Доступ действует до %s, осталось ≈%d ч.\n", until.Format("02.01.2006 15:04"), hours))
		}
	}

	if user.Handle != "" {
		sb.WriteString(fmt.Sprintf("Аккаунт: @%s\n", html.EscapeString(user.Handle)))
	}
	sb.WriteString("\nПродлить можно в разделе /shop.")
	return sb.String()
}
