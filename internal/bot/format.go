package bot

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"giftshop-bot/internal/model"
	"giftshop-bot/internal/service"
)

// maxMessageText keeps admin listings under the Telegram message limit.
const maxMessageText = 3500

func (b *Bot) formatLogs(events []model.LogEvent) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		actor := "—"
		if e.PlatformID != nil {
			actor = fmt.Sprintf("%d", *e.PlatformID)
		}
		line := fmt.Sprintf("<code>%s</code> | <code>%s</code> | <b>%s</b>",
			e.CreatedAt.In(b.loc).Format("01-02 15:04:05"), actor, escape(e.Action))
		if e.Details != "" {
			line += " | " + escape(e.Details)
		}
		lines = append(lines, line)
	}
	return truncate(strings.Join(lines, "\n"), maxMessageText)
}

func formatUsers(rows []service.UserRow) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		handle := "—"
		if r.Handle != "" {
			handle = "@" + escape(r.Handle)
		}
		vip := "—"
		if r.Valid {
			vip = "VIP"
		}
		lines = append(lines, fmt.Sprintf("<code>%d</code> %s %s", r.PlatformID, handle, vip))
	}
	return truncate(strings.Join(lines, "\n"), maxMessageText)
}

func (b *Bot) formatUserInfo(info *service.UserInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Пользователь</b> <code>%d</code>\n", info.PlatformID)
	if !info.Known {
		sb.WriteString("Ещё не писал боту\n")
	} else if info.Handle != "" {
		fmt.Fprintf(&sb, "Username: @%s\n", escape(info.Handle))
	}

	if info.Valid {
		fmt.Fprintf(&sb, "VIP: ✅ до %s\n", b.formatUntil(info.Until))
	} else {
		sb.WriteString("VIP: ❌\n")
	}

	if info.Banned {
		reason := info.BanReason
		if reason == "" {
			reason = "—"
		}
		fmt.Fprintf(&sb, "Бан: 🚫 с %s, причина: %s", b.formatTime(info.BannedAt), escape(reason))
	} else {
		sb.WriteString("Бан: нет")
	}
	return sb.String()
}

// truncate drops whole trailing lines so s fits in max bytes, keeping the
// HTML markup of every line intact, and marks the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndexByte(s[:max], '\n')
	if cut <= 0 {
		cut = max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return s[:cut] + "\n…"
}
