package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giftshop-bot/internal/service"
)

func (b *Bot) showShop(ctx context.Context, chatID int64, who service.Identity) error {
	b.record(ctx, who.ID, "shop_open", "")
	return b.sendWithMarkup(chatID, "<b>💳 Выберите срок подписки:</b>", shopKeyboard())
}

func (b *Bot) showStatus(ctx context.Context, chatID int64, who service.Identity) error {
	b.record(ctx, who.ID, "status_checked", "")
	status, err := b.subs.Status(ctx, who.ID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if !status.Valid {
		return b.sendWithMarkup(chatID, "❌ VIP не активен.", buyKeyboard())
	}
	return b.sendText(chatID, fmt.Sprintf("👑 Ваш статус: <b>VIP</b>\n⏳ Действует до: <b>%s</b>", b.formatUntil(status.Until)))
}

func (b *Bot) choosePlan(ctx context.Context, cb *tgbotapi.CallbackQuery, who service.Identity) error {
	plan, err := parsePlanToken(cb.Data)
	if err != nil {
		b.answer(cb, "Тариф не найден", true)
		b.log.WithError(err).WithField("user_id", who.ID).Info("rejected plan token")
		return nil
	}
	b.answer(cb, "", false)
	b.record(ctx, who.ID, "choose_plan", "days=%d; price=%s", plan.Days, plan.Price.StringFixed(2))
	return b.editWithMarkup(cb.Message.Chat.ID, cb.Message.MessageID, "<b>💱 Выберите валюту для оплаты:</b>", assetsKeyboard(plan))
}

func (b *Bot) chooseAsset(ctx context.Context, cb *tgbotapi.CallbackQuery, who service.Identity) error {
	asset, plan, err := parseAssetToken(cb.Data)
	if err != nil {
		b.answer(cb, "Тариф не найден", true)
		b.log.WithError(err).WithField("user_id", who.ID).Info("rejected asset token")
		return nil
	}

	checkout, err := b.subs.StartCheckout(ctx, who, plan, asset)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentsDisabled):
			b.answer(cb, "Оплата временно недоступна", true)
		default:
			b.answer(cb, "Не удалось создать счёт. Попробуйте позже.", true)
		}
		return nil
	}
	b.answer(cb, "", false)

	text := fmt.Sprintf("<b>🧾 Счёт создан</b>\nСрок: <b>%s</b>\nСумма: <b>%s %s</b>\n\nОплатите по кнопке ниже, затем нажмите «Проверить оплату».",
		escape(planTitle(plan)), checkout.Plan.Price.StringFixed(2), escape(checkout.Asset))
	return b.editWithMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, invoiceKeyboard(checkout.PayURL, checkout.InvoiceID))
}

func (b *Bot) checkPayment(ctx context.Context, cb *tgbotapi.CallbackQuery, who service.Identity) error {
	invoiceID := strings.TrimPrefix(cb.Data, cbCheckPrefix)

	res, err := b.subs.CheckPayment(ctx, who, invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentsDisabled):
			b.answer(cb, "Оплата временно недоступна", true)
		case errors.Is(err, service.ErrNotFound):
			b.answer(cb, "Счёт не найден.", true)
		case errors.Is(err, service.ErrValidation):
			b.answer(cb, "", false)
		default:
			b.answer(cb, "Не удалось проверить оплату. Попробуйте позже.", true)
		}
		return nil
	}

	switch res.Outcome {
	case service.PaymentConfirmed:
		b.answer(cb, "", false)
		text := fmt.Sprintf("✅ Платёж подтверждён. VIP активен до: <b>%s</b>", b.formatUntil(res.ValidUntil))
		return b.editWithMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, methodsKeyboard())
	case service.PaymentAlreadyApplied:
		b.answer(cb, fmt.Sprintf("Платёж уже учтён. VIP до %s", b.formatUntil(res.ValidUntil)), true)
	case service.PaymentPending:
		b.answer(cb, "Оплата не найдена. Попробуйте позже.", true)
	default:
		b.answer(cb, fmt.Sprintf("Статус счёта: %s", res.Status), true)
	}
	return nil
}

func planTitle(p service.Plan) string {
	if p.Forever() {
		return "навсегда"
	}
	return fmt.Sprintf("%d дн.", p.Days)
}
