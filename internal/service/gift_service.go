package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sirupsen/logrus"

	"giftshop-bot/internal/metrics"
	"giftshop-bot/internal/model"
	"giftshop-bot/internal/repository"
)

type giftCatalog interface {
	FindByID(ctx context.Context, id uint) (*model.Gift, error)
}

// AnimationSender delivers an animation by platform file id or URL.
type AnimationSender interface {
	SendAnimation(ctx context.Context, chatID int64, ref string, isFileID bool, caption string) error
}

// GiftDelivery is a storefront request to send a catalog gift to a recipient.
type GiftDelivery struct {
	GiftID      uint   `json:"gift_id" validate:"required"`
	RecipientID int64  `json:"recipient_id" validate:"required"`
	Message     string `json:"message" validate:"max=1000"`
	BuyerName   string `json:"buyer_name" validate:"max=128"`
}

// GiftService sends catalog animations on behalf of the storefront.
type GiftService struct {
	gifts   giftCatalog
	sender  AnimationSender
	events  eventRecorder
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

func NewGiftService(gifts giftCatalog, sender AnimationSender, events eventRecorder, log logrus.FieldLogger, m *metrics.Metrics) *GiftService {
	return &GiftService{gifts: gifts, sender: sender, events: events, log: log, metrics: m}
}

// Deliver looks the gift up and sends its animation to the recipient.
func (s *GiftService) Deliver(ctx context.Context, d GiftDelivery) (*model.Gift, error) {
	if d.GiftID == 0 || d.RecipientID == 0 {
		return nil, invalidf("gift and recipient are required")
	}

	gift, err := s.gifts.FindByID(ctx, d.GiftID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("gift %d: %w", d.GiftID, ErrNotFound)
		}
		return nil, &PersistenceError{Op: "find gift", Err: err}
	}

	ref, isFileID := gift.Animation()
	if ref == "" {
		return nil, fmt.Errorf("gift %d has no animation: %w", gift.ID, ErrNotFound)
	}

	logger := s.log.WithFields(logrus.Fields{"gift_id": gift.ID, "user_id": d.RecipientID})
	if err := s.sender.SendAnimation(ctx, d.RecipientID, ref, isFileID, giftCaption(*gift, d)); err != nil {
		s.events.Record(ctx, d.RecipientID, "gift_failed", fmt.Sprintf("%d; %v", gift.ID, err))
		if errors.Is(err, ErrRecipientUnavailable) {
			s.metrics.GiftDelivery("unavailable")
			logger.WithError(err).Debug("gift recipient unavailable")
			return nil, err
		}
		s.metrics.GiftDelivery("failed")
		logger.WithError(err).Warn("send gift")
		return nil, &ExternalError{Service: "telegram", Op: "sendAnimation", Err: err}
	}

	s.metrics.GiftDelivery("sent")
	s.events.Record(ctx, d.RecipientID, "gift_sent", fmt.Sprintf("%d; %s", gift.ID, gift.Title))
	return gift, nil
}

func giftCaption(gift model.Gift, d GiftDelivery) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎁 <b>%s</b>", html.EscapeString(strings.TrimSpace(gift.Title))))
	if msg := strings.TrimSpace(d.Message); msg != "" {
		sb.WriteString("\n\n" + html.EscapeString(msg))
	}
	if buyer := strings.TrimSpace(d.BuyerName); buyer != "" {
		sb.WriteString(fmt.Sprintf("\n\nОт: %s", html.EscapeString(buyer)))
	}
	return sb.String()
}
