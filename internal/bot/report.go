package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giftshop-bot/internal/conversation"
	"giftshop-bot/internal/service"
)

const (
	textReportAccepted  = "✅ Жалоба передана модератору. Решение принимает модерация."
	textAskLink         = "Отправьте ссылку на сообщение с нарушением"
	textAskUsername     = "Введите username аккаунта, на который жалуетесь"
	textAskUsernameLink = "Теперь отправьте ссылку на сообщение с нарушением"
)

// canUseMethods: VIP subscribers and the admin.
func (b *Bot) canUseMethods(ctx context.Context, who service.Identity, isAdmin bool) (bool, error) {
	if isAdmin {
		return true, nil
	}
	status, err := b.subs.Status(ctx, who.ID)
	if err != nil {
		return false, err
	}
	return status.Valid, nil
}

func (b *Bot) showMethods(ctx context.Context, chatID int64, who service.Identity, isAdmin bool) error {
	ok, err := b.canUseMethods(ctx, who, isAdmin)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if !ok {
		return b.sendWithMarkup(chatID, textVIPRequired, buyKeyboard())
	}
	b.record(ctx, who.ID, "methods_open", "")
	return b.sendWithMarkup(chatID, "<b>🧰 Доступные методы:</b>", methodsKeyboard())
}

func (b *Bot) chooseMethod(ctx context.Context, cb *tgbotapi.CallbackQuery, who service.Identity, isAdmin bool) error {
	ok, err := b.canUseMethods(ctx, who, isAdmin)
	if err != nil {
		b.answer(cb, textInternal, true)
		return err
	}
	if !ok {
		b.answer(cb, textVIPRequired, true)
		return nil
	}

	method, found := findMethod(cb.Data[len(cbMethodPrefix):])
	if !found {
		b.answer(cb, "", false)
		return nil
	}
	b.answer(cb, "", false)
	b.record(ctx, who.ID, "method_selected", "%s", method.code)

	state := conversation.BeginReport(method.code)
	b.conversations.Set(who.ID, state)
	if state.Kind == conversation.AwaitingUsername {
		return b.sendText(cb.Message.Chat.ID, textAskUsername)
	}
	return b.sendText(cb.Message.Chat.ID, textAskLink)
}

func (b *Bot) continueReport(ctx context.Context, chatID int64, who service.Identity, state conversation.State, text string) error {
	switch state.Kind {
	case conversation.AwaitingUsername:
		if text == "" {
			return b.sendText(chatID, textAskUsername)
		}
		b.conversations.Set(who.ID, state.WithUsername(text))
		return b.sendText(chatID, textAskUsernameLink)
	case conversation.AwaitingUsernameViolationLink:
		if text == "" {
			return b.sendText(chatID, textAskUsernameLink)
		}
	default:
		if text == "" {
			return b.sendText(chatID, textAskLink)
		}
	}

	b.conversations.Clear(who.ID)
	if err := b.sendText(chatID, textReportAccepted); err != nil {
		b.log.WithError(err).WithField("user_id", who.ID).Debug("send report acknowledgement")
	}
	b.notifyAdmin(reportNotice(who, state, text))

	if state.Kind == conversation.AwaitingUsernameViolationLink {
		b.record(ctx, who.ID, "report_submitted_username", "%s; %s", state.Username, text)
	} else {
		b.record(ctx, who.ID, "report_submitted", "%s; %s", state.Method, text)
	}
	return nil
}

// notifyAdmin is best effort; only the numeric admin id can be messaged.
func (b *Bot) notifyAdmin(text string) {
	if b.admin.ID == 0 {
		b.log.Warn("admin id not configured, notice dropped")
		return
	}
	if err := b.sendText(b.admin.ID, text); err != nil {
		b.log.WithError(err).Warn("notify admin")
	}
}

func reportNotice(who service.Identity, state conversation.State, link string) string {
	name := who.Mention()
	if who.Handle == "" {
		name = fmt.Sprintf("id %d", who.ID)
	}
	text := fmt.Sprintf("⚠️ Новая жалоба от <a href=\"tg://user?id=%d\">%s</a>\nМетод: <b>%s</b>\n", who.ID, escape(name), escape(state.Method))
	if state.Kind == conversation.AwaitingUsernameViolationLink {
		text += fmt.Sprintf("Username: <code>%s</code>\n", escape(state.Username))
	}
	return text + fmt.Sprintf("Ссылка: %s", escape(link))
}
