package bot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giftshop-bot/internal/service"
)

func TestClassifyDelivery(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{name: "forbidden", err: &tgbotapi.Error{Code: http.StatusForbidden, Message: "Forbidden: bot was blocked by the user"}, unavailable: true},
		{name: "chat not found", err: &tgbotapi.Error{Code: http.StatusBadRequest, Message: "Bad Request: chat not found"}, unavailable: true},
		{name: "deactivated", err: &tgbotapi.Error{Code: http.StatusBadRequest, Message: "Bad Request: user is deactivated"}, unavailable: true},
		{name: "bad markup", err: &tgbotapi.Error{Code: http.StatusBadRequest, Message: "Bad Request: can't parse entities"}},
		{name: "flood", err: &tgbotapi.Error{Code: http.StatusTooManyRequests, Message: "Too Many Requests: retry after 5"}},
		{name: "network", err: errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyDelivery(tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.unavailable, errors.Is(err, service.ErrRecipientUnavailable))
		})
	}
	assert.NoError(t, classifyDelivery(nil))
}

func TestSendAnimationChoosesFileKind(t *testing.T) {
	api := &fakeMessenger{}
	sender := NewTelegramSender(api)

	require.NoError(t, sender.SendAnimation(context.Background(), 5, "AgAD123", true, "<b>hi</b>"))
	require.NoError(t, sender.SendAnimation(context.Background(), 5, "https://cdn.example/a.gif", false, ""))

	require.Len(t, api.sent, 2)
	first := api.sent[0].(tgbotapi.AnimationConfig)
	assert.Equal(t, tgbotapi.FileID("AgAD123"), first.File)
	assert.Equal(t, tgbotapi.ModeHTML, first.ParseMode)
	assert.Equal(t, "<b>hi</b>", first.Caption)
	second := api.sent[1].(tgbotapi.AnimationConfig)
	assert.Equal(t, tgbotapi.FileURL("https://cdn.example/a.gif"), second.File)
}

func TestPlanTokensRoundTrip(t *testing.T) {
	for _, p := range service.Plans() {
		got, err := parsePlanToken(planToken(p))
		require.NoError(t, err)
		assert.Equal(t, p.Days, got.Days)
		assert.True(t, p.Price.Equal(got.Price))

		for _, asset := range service.Assets() {
			gotAsset, gotPlan, err := parseAssetToken(assetToken(strings.ToLower(asset), p))
			require.NoError(t, err)
			assert.Equal(t, asset, gotAsset)
			assert.Equal(t, p.Days, gotPlan.Days)
		}
	}
}

func TestParseTokensRejectGarbage(t *testing.T) {
	for _, data := range []string{"plan:", "plan:7", "plan:x:7.90", "plan:7:abc", "plan:7:7.90:1"} {
		_, err := parsePlanToken(data)
		assert.ErrorIs(t, err, service.ErrValidation, data)
	}
	for _, data := range []string{"asset:USDT:7", "asset:DOGE:7:7.90", "asset:TON:8:7.90"} {
		_, _, err := parseAssetToken(data)
		assert.ErrorIs(t, err, service.ErrValidation, data)
	}
}

func TestTruncateKeepsWholeLines(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	text := strings.Repeat("<b>line</b>\n", 10)
	got := truncate(text, 30)
	assert.True(t, strings.HasSuffix(got, "\n…"))
	assert.Equal(t, "<b>line</b>\n<b>line</b>\n…", got)
}

func TestSendExpiryReminders(t *testing.T) {
	h := newHarness(t)
	h.message(userID, "alice", "/start")
	h.message(43, "bob", "/start")
	h.grantVIP(t, userID, 5*time.Hour)
	h.grantVIP(t, 43, 72*time.Hour)

	require.NoError(t, h.bot.SendExpiryReminders(context.Background()))

	notice := h.api.lastTextTo(t, userID)
	assert.Contains(t, notice, "VIP скоро закончится")
	assert.Contains(t, notice, "/shop")
	assert.Equal(t, []string{textStart}, h.api.textsTo(43))
	assert.Contains(t, h.actions(t), "vip_reminder")
}

func TestSendExpiryRemindersSkipsUnreachable(t *testing.T) {
	h := newHarness(t)
	h.grantVIP(t, userID, time.Hour)
	h.api.failFor[userID] = &tgbotapi.Error{Code: http.StatusForbidden, Message: "Forbidden: bot was blocked by the user"}

	require.NoError(t, h.bot.SendExpiryReminders(context.Background()))

	assert.NotContains(t, h.actions(t), "vip_reminder")
}
