package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"giftshop-bot/internal/service"
)

const (
	cbShop         = "shop"
	cbMethods      = "methods"
	cbPlanPrefix   = "plan:"
	cbAssetPrefix  = "asset:"
	cbCheckPrefix  = "check:"
	cbMethodPrefix = "m:"
	cbAdminPrefix  = "admin:"
	cbAdminOpen    = "admin:open"
)

const (
	adminBan       = "ban"
	adminUnban     = "unban"
	adminUserInfo  = "userinfo"
	adminLogs      = "logs"
	adminRevokeVIP = "revokevip"
	adminGrantVIP  = "grantvip"
	adminBroadcast = "broadcast"
	adminUsers     = "users"
)

type reportMethod struct {
	code  string
	label string
}

var reportMethods = []reportMethod{
	{code: "group", label: "👥 Группа"},
	{code: "channel", label: "📣 Канал"},
	{code: "bot", label: "🤖 Бот"},
	{code: "email", label: "✉️ Email"},
	{code: "web", label: "🌐 Сайт"},
	{code: "username", label: "👤 Аккаунт"},
}

func findMethod(code string) (reportMethod, bool) {
	for _, m := range reportMethods {
		if m.code == code {
			return m, true
		}
	}
	return reportMethod{}, false
}

func startKeyboard(isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛍️ Магазин", cbShop),
			tgbotapi.NewInlineKeyboardButtonData("🛠️ Функции", cbMethods),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛡️ Админ", cbAdminOpen),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func shopKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range service.Plans() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗓️ "+p.Label(), planToken(p)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func assetsKeyboard(plan service.Plan) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, asset := range service.Assets() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(asset, assetToken(asset, plan)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", cbShop)),
	)
}

func invoiceKeyboard(payURL, invoiceID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("💰 Оплатить", payURL)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Проверить оплату", cbCheckPrefix+invoiceID)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", cbShop)),
	)
}

func buyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Купить VIP", cbShop)),
	)
}

func methodsKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(reportMethods); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(reportMethods[i].label, cbMethodPrefix+reportMethods[i].code),
		}
		if i+1 < len(reportMethods) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(reportMethods[i+1].label, cbMethodPrefix+reportMethods[i+1].code))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func adminKeyboard() tgbotapi.InlineKeyboardMarkup {
	button := func(label, action string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(label, cbAdminPrefix+action)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("🚫 Бан", adminBan), button("✅ Разбан", adminUnban)),
		tgbotapi.NewInlineKeyboardRow(button("ℹ️ Инфо пользователя", adminUserInfo), button("📜 Логи", adminLogs)),
		tgbotapi.NewInlineKeyboardRow(button("👑 Снять VIP", adminRevokeVIP), button("👑 Выдать VIP", adminGrantVIP)),
		tgbotapi.NewInlineKeyboardRow(button("📢 Рассылка", adminBroadcast), button("👥 Пользователи", adminUsers)),
	)
}

func planToken(p service.Plan) string {
	return fmt.Sprintf("%s%d:%s", cbPlanPrefix, p.Days, p.Price.StringFixed(2))
}

func assetToken(asset string, p service.Plan) string {
	return fmt.Sprintf("%s%s:%d:%s", cbAssetPrefix, asset, p.Days, p.Price.StringFixed(2))
}

// parsePlanToken reads "plan:<days>:<price>" and checks it against the catalog.
func parsePlanToken(data string) (service.Plan, error) {
	parts := strings.Split(strings.TrimPrefix(data, cbPlanPrefix), ":")
	if len(parts) != 2 {
		return service.Plan{}, fmt.Errorf("%w: plan token %q", service.ErrValidation, data)
	}
	return catalogPlan(parts[0], parts[1])
}

// parseAssetToken reads "asset:<code>:<days>:<price>".
func parseAssetToken(data string) (string, service.Plan, error) {
	parts := strings.Split(strings.TrimPrefix(data, cbAssetPrefix), ":")
	if len(parts) != 3 {
		return "", service.Plan{}, fmt.Errorf("%w: asset token %q", service.ErrValidation, data)
	}
	if !service.IsAsset(parts[0]) {
		return "", service.Plan{}, fmt.Errorf("%w: asset %q", service.ErrValidation, parts[0])
	}
	plan, err := catalogPlan(parts[1], parts[2])
	if err != nil {
		return "", service.Plan{}, err
	}
	return strings.ToUpper(parts[0]), plan, nil
}

func catalogPlan(rawDays, rawPrice string) (service.Plan, error) {
	days, err := strconv.Atoi(rawDays)
	if err != nil {
		return service.Plan{}, fmt.Errorf("%w: days %q", service.ErrValidation, rawDays)
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return service.Plan{}, fmt.Errorf("%w: price %q", service.ErrValidation, rawPrice)
	}
	return service.FindPlan(days, &price)
}
