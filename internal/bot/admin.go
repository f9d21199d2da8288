package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"giftshop-bot/internal/conversation"
	"giftshop-bot/internal/service"
)

type adminCommand func(b *Bot, ctx context.Context, chatID int64, who service.Identity, args string) error

var adminCommands = map[string]adminCommand{
	"admin":      (*Bot).cmdAdmin,
	"grant_vip":  (*Bot).cmdGrantVIP,
	"revoke_vip": (*Bot).cmdRevokeVIP,
	"ban":        (*Bot).cmdBan,
	"unban":      (*Bot).cmdUnban,
	"user_info":  (*Bot).cmdUserInfo,
	"logs":       (*Bot).cmdLogs,
	"broadcast":  (*Bot).cmdBroadcast,
	"users":      (*Bot).cmdUsers,
}

var adminPrompts = map[string]struct {
	kind   conversation.Kind
	prompt string
}{
	adminBan:       {conversation.AwaitingBanTarget, "Введите user_id или @username и причину (необязательно)\nНапример: <code>123456 Спам</code> или <code>@user нарушение</code>"},
	adminUnban:     {conversation.AwaitingUnbanTarget, "Введите user_id или @username для разбана"},
	adminUserInfo:  {conversation.AwaitingUserInfoTarget, "Введите user_id или @username для просмотра информации"},
	adminRevokeVIP: {conversation.AwaitingRevokeVipTarget, "Введите user_id или @username для снятия VIP"},
	adminGrantVIP:  {conversation.AwaitingGrantVipTarget, "Введите: <code>user_id days</code> для выдачи VIP"},
	adminLogs:      {conversation.AwaitingLogsTarget, "Введите user_id или @username и лимит (необязательно). Пример: <code>@user 30</code> или <code>all 50</code>"},
	adminBroadcast: {conversation.AwaitingBroadcastBody, "Введите текст рассылки. Он будет отправлен всем, кто писал боту.\nМожно использовать HTML-разметку."},
}

func (b *Bot) handleAdminAction(ctx context.Context, chatID int64, who service.Identity, action string) error {
	switch action {
	case "open":
		return b.cmdAdmin(ctx, chatID, who, "")
	case adminUsers:
		stats, err := b.audit.Stats(ctx)
		if err != nil {
			return b.replyError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("Всего пользователей: <b>%d</b> (VIP: <b>%d</b>)\nОтправьте <code>/users [limit] [offset]</code>, чтобы получить список.", stats.Users, stats.Subscribers))
	}

	p, ok := adminPrompts[action]
	if !ok {
		return nil
	}
	// a new flow replaces whatever was open before
	b.conversations.Set(who.ID, conversation.Begin(p.kind))
	return b.sendText(chatID, p.prompt)
}

// continueAdminFlow consumes the input of an admin target step. Unparsable
// input re-prompts and keeps the step open.
func (b *Bot) continueAdminFlow(ctx context.Context, chatID int64, who service.Identity, state conversation.State, text string) error {
	var err error
	switch state.Kind {
	case conversation.AwaitingBanTarget:
		var target int64
		var reason string
		if target, reason, err = b.resolver.ResolveWithRest(ctx, text); err == nil {
			b.conversations.Clear(who.ID)
			return b.banUser(ctx, chatID, who, target, reason)
		}
	case conversation.AwaitingUnbanTarget:
		var target int64
		if target, err = b.resolver.Resolve(ctx, text); err == nil {
			b.conversations.Clear(who.ID)
			return b.unbanUser(ctx, chatID, who, target)
		}
	case conversation.AwaitingUserInfoTarget:
		var target int64
		if target, err = b.resolver.Resolve(ctx, text); err == nil {
			b.conversations.Clear(who.ID)
			return b.showUserInfo(ctx, chatID, who, target)
		}
	case conversation.AwaitingRevokeVipTarget:
		var target int64
		if target, err = b.resolver.Resolve(ctx, text); err == nil {
			b.conversations.Clear(who.ID)
			return b.revokeVIP(ctx, chatID, who, target)
		}
	case conversation.AwaitingGrantVipTarget:
		var target int64
		var days int
		if target, days, err = b.parseGrant(ctx, text); err == nil {
			b.conversations.Clear(who.ID)
			return b.grantVIP(ctx, chatID, who, target, days)
		}
		if errors.Is(err, service.ErrValidation) {
			return b.sendText(chatID, fmt.Sprintf("Формат: <code>user_id days</code>, days от 1 до %d", service.MaxGrantDays))
		}
	case conversation.AwaitingLogsTarget:
		var target *int64
		var limit int
		if target, limit, err = b.parseLogsArgs(ctx, text); err == nil {
			b.conversations.Clear(who.ID)
			return b.showLogs(ctx, chatID, who, target, limit)
		}
	default:
		b.conversations.Clear(who.ID)
		return nil
	}

	if errors.Is(err, service.ErrUnresolved) {
		return b.replyError(chatID, err)
	}
	// storage trouble; leave the flow so the admin is not stuck
	b.conversations.Clear(who.ID)
	return b.replyError(chatID, err)
}

func (b *Bot) cmdAdmin(ctx context.Context, chatID int64, who service.Identity, _ string) error {
	stats, err := b.audit.Stats(ctx)
	if err != nil {
		return b.replyError(chatID, err)
	}
	b.record(ctx, who.ID, "admin_open", "")
	text := fmt.Sprintf("<b>🛡️ Админ-панель</b>\n👥 Всего пользователей: <b>%d</b>\n👑 VIP пользователей: <b>%d</b>\n🚫 Забанено: <b>%d</b>%s",
		stats.Users, stats.Subscribers, stats.Banned, textAdminHelp)
	return b.sendWithMarkup(chatID, text, adminKeyboard())
}

func (b *Bot) cmdGrantVIP(ctx context.Context, chatID int64, who service.Identity, args string) error {
	target, days, err := b.parseGrant(ctx, args)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return b.sendText(chatID, "Формат: /grant_vip <code>user_id|@username</code> <code>days</code>")
		}
		return b.replyError(chatID, err)
	}
	return b.grantVIP(ctx, chatID, who, target, days)
}

func (b *Bot) cmdRevokeVIP(ctx context.Context, chatID int64, who service.Identity, args string) error {
	if args == "" {
		return b.sendText(chatID, "Формат: /revoke_vip <code>user_id|@username</code>")
	}
	target, err := b.resolver.Resolve(ctx, args)
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.revokeVIP(ctx, chatID, who, target)
}

func (b *Bot) cmdBan(ctx context.Context, chatID int64, who service.Identity, args string) error {
	if args == "" {
		return b.sendText(chatID, "Формат: /ban <code>user_id|@username</code> [reason]")
	}
	target, reason, err := b.resolver.ResolveWithRest(ctx, args)
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.banUser(ctx, chatID, who, target, reason)
}

func (b *Bot) cmdUnban(ctx context.Context, chatID int64, who service.Identity, args string) error {
	if args == "" {
		return b.sendText(chatID, "Формат: /unban <code>user_id|@username</code>")
	}
	target, err := b.resolver.Resolve(ctx, args)
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.unbanUser(ctx, chatID, who, target)
}

func (b *Bot) cmdUserInfo(ctx context.Context, chatID int64, who service.Identity, args string) error {
	if args == "" {
		return b.sendText(chatID, "Формат: /user_info <code>user_id|@username</code>")
	}
	target, err := b.resolver.Resolve(ctx, args)
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.showUserInfo(ctx, chatID, who, target)
}

func (b *Bot) cmdLogs(ctx context.Context, chatID int64, who service.Identity, args string) error {
	target, limit, err := b.parseLogsArgs(ctx, args)
	if err != nil {
		return b.replyError(chatID, err)
	}
	return b.showLogs(ctx, chatID, who, target, limit)
}

func (b *Bot) cmdBroadcast(ctx context.Context, chatID int64, who service.Identity, args string) error {
	if args == "" {
		return b.sendText(chatID, "Формат: /broadcast <code>text</code>")
	}
	return b.startBroadcast(ctx, chatID, who, args)
}

func (b *Bot) cmdUsers(ctx context.Context, chatID int64, who service.Identity, args string) error {
	fields := strings.Fields(args)
	limit, offset := 0, 0
	if len(fields) > 0 {
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return b.sendText(chatID, "Формат: /users [limit] [offset]")
		}
		limit = n
	}
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			return b.sendText(chatID, "Формат: /users [limit] [offset]")
		}
		offset = n
	}

	rows, err := b.audit.Users(ctx, limit, offset)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if len(rows) == 0 {
		return b.sendText(chatID, "Пользователи не найдены")
	}
	return b.sendText(chatID, formatUsers(rows))
}

func (b *Bot) banUser(ctx context.Context, chatID int64, who service.Identity, target int64, reason string) error {
	if b.admin.Matches(service.Identity{ID: target}) {
		return b.sendText(chatID, "Нельзя забанить администратора.")
	}
	if err := b.bans.Ban(ctx, target, reason, b.now()); err != nil {
		return b.replyError(chatID, &service.PersistenceError{Op: "ban", Err: err})
	}
	b.record(ctx, who.ID, "admin_ban", "%d; %s", target, reason)
	if reason == "" {
		reason = "—"
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Пользователь <code>%d</code> забанен. Причина: %s", target, escape(reason)))
}

func (b *Bot) unbanUser(ctx context.Context, chatID int64, who service.Identity, target int64) error {
	removed, err := b.bans.Unban(ctx, target)
	if err != nil {
		return b.replyError(chatID, &service.PersistenceError{Op: "unban", Err: err})
	}
	b.record(ctx, who.ID, "admin_unban", "%d", target)
	if !removed {
		return b.sendText(chatID, fmt.Sprintf("Пользователь <code>%d</code> не был забанен", target))
	}
	return b.sendText(chatID, fmt.Sprintf("✅ Пользователь <code>%d</code> разбанен", target))
}

func (b *Bot) showUserInfo(ctx context.Context, chatID int64, who service.Identity, target int64) error {
	info, err := b.audit.UserInfo(ctx, target)
	if err != nil {
		return b.replyError(chatID, err)
	}
	b.record(ctx, who.ID, "admin_user_info", "%d", target)
	return b.sendText(chatID, b.formatUserInfo(info))
}

func (b *Bot) revokeVIP(ctx context.Context, chatID int64, who service.Identity, target int64) error {
	if err := b.subs.Revoke(ctx, target); err != nil {
		return b.replyError(chatID, err)
	}
	b.record(ctx, who.ID, "admin_revoke_vip", "%d", target)
	return b.sendText(chatID, fmt.Sprintf("⛔ VIP снят у пользователя <code>%d</code>", target))
}

func (b *Bot) grantVIP(ctx context.Context, chatID int64, who service.Identity, target int64, days int) error {
	until, err := b.subs.Grant(ctx, target, days)
	if err != nil {
		return b.replyError(chatID, err)
	}
	b.record(ctx, who.ID, "admin_grant_vip", "%d; %d", target, days)
	return b.sendText(chatID, fmt.Sprintf("✅ VIP выдан до <b>%s</b> пользователю <code>%d</code>", b.formatTime(until), target))
}

func (b *Bot) showLogs(ctx context.Context, chatID int64, who service.Identity, target *int64, limit int) error {
	events, err := b.audit.Logs(ctx, target, limit)
	if err != nil {
		return b.replyError(chatID, err)
	}
	scope := "all"
	if target != nil {
		scope = strconv.FormatInt(*target, 10)
	}
	b.record(ctx, who.ID, "admin_logs", "target=%s; limit=%d", scope, limit)
	if len(events) == 0 {
		return b.sendText(chatID, "Логи не найдены")
	}
	return b.sendText(chatID, b.formatLogs(events))
}

// startBroadcast replies with the target count and delivers in the background.
// The tally is sent to the admin when the run finishes.
func (b *Bot) startBroadcast(ctx context.Context, chatID int64, who service.Identity, body string) error {
	targets, err := b.broadcasts.Targets(ctx)
	if err != nil {
		return b.replyError(chatID, err)
	}
	jobID := uuid.NewString()
	if err := b.sendText(chatID, fmt.Sprintf("Начинаю рассылку %d пользователям…", len(targets))); err != nil {
		b.log.WithError(err).Debug("send broadcast start notice")
	}

	b.jobs.Add(1)
	go func() {
		defer b.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.WithField("panic", r).WithField("job_id", jobID).Error("broadcast panicked")
			}
		}()

		res := b.broadcasts.Deliver(ctx, jobID, targets, body)
		// the report must reach the admin even when the run was cut short
		b.record(context.WithoutCancel(ctx), who.ID, "admin_broadcast", "job=%s; sent=%d; failed=%d", res.JobID, res.Sent, res.Failed)
		if err := b.sendText(chatID, fmt.Sprintf("Рассылка завершена. Успешно: <b>%d</b>, Ошибок: <b>%d</b>.", res.Sent, res.Failed)); err != nil {
			b.log.WithError(err).WithField("job_id", jobID).Warn("send broadcast report")
		}
	}()
	return nil
}

// parseGrant reads "<target> <days>".
func (b *Bot) parseGrant(ctx context.Context, text string) (int64, int, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: expected target and days", service.ErrValidation)
	}
	days, err := strconv.Atoi(fields[1])
	if err != nil || days < 1 || days > service.MaxGrantDays {
		return 0, 0, fmt.Errorf("%w: days %q", service.ErrValidation, fields[1])
	}
	target, err := b.resolver.Resolve(ctx, fields[0])
	if err != nil {
		return 0, 0, err
	}
	return target, days, nil
}

// parseLogsArgs reads "[target|all] [limit]". A nil target means every identity.
func (b *Bot) parseLogsArgs(ctx context.Context, text string) (*int64, int, error) {
	fields := strings.Fields(text)
	limit := service.DefaultLogLimit
	if len(fields) == 0 {
		return nil, limit, nil
	}
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
			limit = n
		}
	}
	if strings.EqualFold(fields[0], "all") {
		return nil, limit, nil
	}
	target, err := b.resolver.Resolve(ctx, fields[0])
	if err != nil {
		return nil, 0, err
	}
	return &target, limit, nil
}
