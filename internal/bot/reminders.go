package bot

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"giftshop-bot/internal/service"
)

// SendExpiryReminders warns every subscriber whose VIP runs out within the reminder window.
func (b *Bot) SendExpiryReminders(ctx context.Context) error {
	if b.reminders == nil {
		return nil
	}
	users, now, err := b.reminders.Due(ctx)
	if err != nil {
		return err
	}
	sender := NewTelegramSender(b.api)

	sent := 0
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text := service.ExpiryNotice(user, now, b.loc)
		if err := sender.SendText(ctx, user.PlatformID, text); err != nil {
			entry := b.log.WithError(err).WithField("user_id", user.PlatformID)
			if errors.Is(err, service.ErrRecipientUnavailable) {
				entry.Debug("expiry reminder not delivered")
			} else {
				entry.Warn("send expiry reminder")
			}
			continue
		}
		sent++
		b.record(ctx, user.PlatformID, "vip_reminder", "")
	}
	b.log.WithFields(logrus.Fields{"due": len(users), "sent": sent}).Info("expiry reminders sent")
	return nil
}
