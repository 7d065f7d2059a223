package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

// tzPresets are the timezone quick picks offered during onboarding and in settings.
var tzPresets = []string{
	"Europe/Paris", "Europe/London",
	"Europe/Berlin", "Europe/Madrid",
	"America/New_York", "America/Los_Angeles",
	"Asia/Tokyo", "UTC",
}

// menuKeyboard is the main check-in menu. Done check-ins get a checkmark,
// check-ins outside their window are marked unavailable.
func menuKeyboard(morningDone, eveningDone, morningOpen, eveningOpen bool) tgbotapi.InlineKeyboardMarkup {
	label := func(base string, done, open bool) string {
		switch {
		case done:
			return "✅ " + base
		case !open:
			return "🚫 " + base
		default:
			return base
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label("🌅 Morning check-in", morningDone, morningOpen), "survey:morning"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label("🌙 Evening check-in", eveningDone, eveningOpen), "survey:evening"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", "show_stats"),
			tgbotapi.NewInlineKeyboardButtonData("📈 Reports", "reports"),
		),
	)
}

// scaleKeyboard renders the 0..10 answer grid for one question.
func scaleKeyboard(questionID string) tgbotapi.InlineKeyboardMarkup {
	row1 := make([]tgbotapi.InlineKeyboardButton, 0, 6)
	for v := 0; v <= 5; v++ {
		row1 = append(row1, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", v), fmt.Sprintf("ans:%s:%d", questionID, v)))
	}
	row2 := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for v := 6; v <= 10; v++ {
		row2 = append(row2, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", v), fmt.Sprintf("ans:%s:%d", questionID, v)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row1, row2)
}

// wordKeyboard shows the quick-pick words for a word-selection question.
func wordKeyboard(questionID string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, w := range domain.MainWords(questionID) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(w.Label, fmt.Sprintf("word:%s:%s", questionID, w.Word)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📋 More options", "more:"+questionID),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// extendedWordKeyboard shows the full categorized word list.
func extendedWordKeyboard(questionID string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, cat := range domain.Categories(questionID) {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(cat.Emoji+" "+cat.Title, "noop"),
		))
		var row []tgbotapi.InlineKeyboardButton
		for _, w := range cat.Words {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				w, fmt.Sprintf("word:%s:%s", questionID, w)))
			if len(row) == 4 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back:"+questionID),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// tzKeyboard offers timezone presets. The prefix distinguishes onboarding
// from the settings flow.
func tzKeyboard(prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(tzPresets); i += 2 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tzPresets[i], prefix+":"+tzPresets[i]),
			tgbotapi.NewInlineKeyboardButtonData(tzPresets[i+1], prefix+":"+tzPresets[i+1]),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", prefix+":custom"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// settingsKeyboard is the settings entry point.
func settingsKeyboard(p *domain.Prefs) tgbotapi.InlineKeyboardMarkup {
	toggle := func(on bool, label string) string {
		if on {
			return "✅ " + label
		}
		return "🚫 " + label
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌍 Timezone: "+p.Timezone, "set:tz"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌅 Morning at "+domain.FormatMinutes(p.MorningM), "set:morning_time"),
			tgbotapi.NewInlineKeyboardButtonData("🌙 Evening at "+domain.FormatMinutes(p.EveningM), "set:evening_time"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggle(p.MorningOn, "Morning"), "set:toggle_morning"),
			tgbotapi.NewInlineKeyboardButtonData(toggle(p.EveningOn, "Evening"), "set:toggle_evening"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggle(p.RemindersOn, "All reminders"), "set:toggle_all"),
		),
	)
}

// timeKeyboard offers reminder time presets for one kind.
func timeKeyboard(kind domain.Kind) tgbotapi.InlineKeyboardMarkup {
	presets := []string{"06:00", "07:00", "08:00", "09:00"}
	if kind == domain.KindEvening {
		presets = []string{"20:00", "21:00", "22:00", "23:00"}
	}
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(presets))
	for _, t := range presets {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			t, fmt.Sprintf("time:%s:%s", kind, t)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		row,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", fmt.Sprintf("time:%s:custom", kind)),
		),
	)
}

// reminderKeyboard is attached to scheduled reminder messages.
func reminderKeyboard(kind domain.Kind) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Start check-in", "survey:"+string(kind)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Snooze 2h", "snooze:"+string(kind)),
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip today", "skip:"+string(kind)),
		),
	)
}

// reportsKeyboard lists stored weekly reports, newest first.
func reportsKeyboard(reports []*domain.Report) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, rep := range reports {
		label := rep.WeekKey
		if ws, err := domain.ParseWeekStart(rep.WeekStart); err == nil {
			label = domain.FormatWeekRange(ws)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "report:"+rep.WeekKey),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
