package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giftshop-bot/internal/service"
)

// TelegramSender adapts the Telegram API to the service senders.
type TelegramSender struct {
	api Messenger
}

func NewTelegramSender(api Messenger) *TelegramSender {
	return &TelegramSender{api: api}
}

// SendText sends an HTML message.
func (s *TelegramSender) SendText(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := s.api.Send(msg)
	return classifyDelivery(err)
}

// SendAnimation sends an animation by uploaded file id or by URL.
func (s *TelegramSender) SendAnimation(_ context.Context, chatID int64, ref string, isFileID bool, caption string) error {
	var file tgbotapi.RequestFileData = tgbotapi.FileURL(ref)
	if isFileID {
		file = tgbotapi.FileID(ref)
	}
	anim := tgbotapi.NewAnimation(chatID, file)
	anim.Caption = caption
	anim.ParseMode = tgbotapi.ModeHTML
	_, err := s.api.Send(anim)
	return classifyDelivery(err)
}

var unavailableMarkers = []string{
	"chat not found",
	"user is deactivated",
	"bot was blocked",
	"bot can't initiate conversation",
}

// classifyDelivery marks expected recipient failures with ErrRecipientUnavailable.
func classifyDelivery(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", service.ErrRecipientUnavailable, apiErr.Message)
	}
	if apiErr.Code == http.StatusBadRequest {
		msg := strings.ToLower(apiErr.Message)
		for _, marker := range unavailableMarkers {
			if strings.Contains(msg, marker) {
				return fmt.Errorf("%w: %s", service.ErrRecipientUnavailable, apiErr.Message)
			}
		}
	}
	return err
}
