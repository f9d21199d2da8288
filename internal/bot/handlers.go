package bot

import (
	"context"
	"errors"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giftshop-bot/internal/conversation"
	"giftshop-bot/internal/service"
)

const (
	textBlocked         = "⛔ Вы заблокированы."
	textUnknown         = "Не понял сообщение. Загляни в /help."
	textUnknownCommand  = "Команда не поддерживается. Загляни в /help."
	textCancelled       = "⏪ Ввод отменён."
	textNothingToCancel = "Нечего отменять."
	textVIPRequired     = "Требуется VIP."
	textInternal        = "Что-то пошло не так. Попробуйте позже."
)

const textStart = "<b>🎁 Добро пожаловать!</b>\n\n" +
	"Оформите VIP-подписку, чтобы отправлять жалобы на нарушения модераторам.\n\n" +
	"🛍️ <b>/shop</b> — магазин подписок\n" +
	"🛠️ <b>/methods</b> — функции VIP\n" +
	"👑 <b>/status</b> — статус подписки\n" +
	"⏪ <b>/cancel</b> — отменить ввод"

const textHelp = "ℹ️ <b>Подсказки</b>\n" +
	"• /shop — выбрать срок и оплатить VIP\n" +
	"• /status — до какого числа действует VIP\n" +
	"• /methods — отправить жалобу модератору\n" +
	"• /cancel — отменить текущий ввод"

const textAdminHelp = "\n\n🛡️ <b>Админ</b>\n" +
	"• /admin — панель\n" +
	"• /grant_vip <code>target</code> <code>days</code>\n" +
	"• /revoke_vip <code>target</code>\n" +
	"• /ban <code>target</code> [reason]\n" +
	"• /unban <code>target</code>\n" +
	"• /user_info <code>target</code>\n" +
	"• /logs [target|all] [limit]\n" +
	"• /broadcast <code>text</code>\n" +
	"• /users [limit] [offset]"

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message, who service.Identity, isAdmin bool) error {
	if msg.IsCommand() {
		b.log.WithField("user_id", who.ID).Debugf("command /%s", msg.Command())
		return b.handleCommand(ctx, msg, who, isAdmin)
	}

	state := b.conversations.Get(who.ID)
	if state.Kind != conversation.Idle {
		b.log.WithField("user_id", who.ID).Debugf("conversation step %s", state.Kind)
		return b.handleConversation(ctx, msg, who, isAdmin, state)
	}

	return b.sendText(msg.Chat.ID, textUnknown)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, who service.Identity, isAdmin bool) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.record(ctx, who.ID, "start", "")
		return b.sendWithMarkup(chatID, textStart, startKeyboard(isAdmin))
	case "help":
		text := textHelp
		if isAdmin {
			text += textAdminHelp
		}
		return b.sendText(chatID, text)
	case "shop":
		return b.showShop(ctx, chatID, who)
	case "status":
		return b.showStatus(ctx, chatID, who)
	case "methods":
		return b.showMethods(ctx, chatID, who, isAdmin)
	case "cancel":
		if b.conversations.Get(who.ID).Kind == conversation.Idle {
			return b.sendText(chatID, textNothingToCancel)
		}
		b.conversations.Clear(who.ID)
		return b.sendText(chatID, textCancelled)
	}

	if cmd, ok := adminCommands[msg.Command()]; ok {
		if !isAdmin {
			b.log.WithError(service.ErrUnauthorized).WithField("user_id", who.ID).Infof("admin command /%s ignored", msg.Command())
			return nil
		}
		return cmd(b, ctx, chatID, who, args)
	}

	return b.sendText(chatID, textUnknownCommand)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, who service.Identity, isAdmin bool) error {
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case data == cbShop:
		b.answer(cb, "", false)
		return b.showShop(ctx, chatID, who)
	case data == cbMethods:
		b.answer(cb, "", false)
		return b.showMethods(ctx, chatID, who, isAdmin)
	case strings.HasPrefix(data, cbPlanPrefix):
		return b.choosePlan(ctx, cb, who)
	case strings.HasPrefix(data, cbAssetPrefix):
		return b.chooseAsset(ctx, cb, who)
	case strings.HasPrefix(data, cbCheckPrefix):
		return b.checkPayment(ctx, cb, who)
	case strings.HasPrefix(data, cbMethodPrefix):
		return b.chooseMethod(ctx, cb, who, isAdmin)
	case strings.HasPrefix(data, cbAdminPrefix):
		if !isAdmin {
			b.answer(cb, "", false)
			b.log.WithError(service.ErrUnauthorized).WithField("user_id", who.ID).Info("admin callback ignored")
			return nil
		}
		b.answer(cb, "", false)
		return b.handleAdminAction(ctx, chatID, who, strings.TrimPrefix(data, cbAdminPrefix))
	default:
		b.answer(cb, "", false)
		return nil
	}
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, who service.Identity, isAdmin bool, state conversation.State) error {
	if state.Kind.IsAdmin() && !isAdmin {
		b.conversations.Clear(who.ID)
		return nil
	}

	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch state.Kind {
	case conversation.AwaitingReportLink, conversation.AwaitingUsername, conversation.AwaitingUsernameViolationLink:
		return b.continueReport(ctx, chatID, who, state, text)
	case conversation.AwaitingBroadcastBody:
		if text == "" {
			return b.sendText(chatID, "Текст пуст. Отправьте сообщение для рассылки или /cancel")
		}
		b.conversations.Clear(who.ID)
		return b.startBroadcast(ctx, chatID, who, msg.Text)
	default:
		return b.continueAdminFlow(ctx, chatID, who, state, text)
	}
}

// replyError turns a service error into a short user-facing message.
func (b *Bot) replyError(chatID int64, err error) error {
	var text string
	switch {
	case errors.Is(err, service.ErrPaymentsDisabled):
		text = "Оплата временно недоступна."
	case errors.Is(err, service.ErrUnresolved):
		text = "Не удалось определить пользователя. Укажите user_id или @username"
	case errors.Is(err, service.ErrValidation):
		text = "Некорректный ввод."
	default:
		b.log.WithError(err).Warn("request failed")
		text = textInternal
	}
	return b.sendText(chatID, text)
}

func escape(s string) string {
	return html.EscapeString(s)
}
