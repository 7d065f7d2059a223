package telegram

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

// exportCooldown limits how often a user may download their data.
const exportCooldown = 7 * 24 * time.Hour

// exportData is everything that goes into one CSV export.
type exportData struct {
	User     *domain.User
	Stats    *domain.Stats
	Prefs    *domain.Prefs
	Sessions []*domain.Session
	Reports  []*domain.Report
}

func (r *Router) handleExport(ctx context.Context, chatID int64) {
	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.sendText(chatID, notRegisteredText)
		return
	}

	now := time.Now().UTC()
	if prefs.LastExport != nil {
		if wait := exportCooldown - now.Sub(*prefs.LastExport); wait > 0 {
			days := int(wait.Hours()/24) + 1
			r.sendText(chatID, fmt.Sprintf(
				"Exports are limited to once per week. Try again in about %d day(s).", days))
			return
		}
	}

	data, err := r.collectExport(ctx, chatID, prefs)
	if err != nil {
		r.log.Error("collect export data", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Export failed, please try again later.")
		return
	}
	if len(data.Sessions) == 0 {
		r.sendText(chatID, "Nothing to export yet.")
		return
	}

	blob, err := buildExportCSV(data, now)
	if err != nil {
		r.log.Error("build csv", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Export failed, please try again later.")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("checkins_%s.csv", now.Format("2006-01-02")),
		Bytes: blob,
	})
	doc.Caption = fmt.Sprintf("📥 Your complete data: %d check-in(s), %d report(s).",
		len(data.Sessions), len(data.Reports))
	if _, err := r.bot.Send(doc); err != nil {
		r.log.Error("send export", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not send the file, please try again later.")
		return
	}

	if err := r.repo.SetLastExport(ctx, chatID, now); err != nil {
		r.log.Error("stamp export", zap.Int64("user_id", chatID), zap.Error(err))
	}
}

func (r *Router) collectExport(ctx context.Context, chatID int64, prefs *domain.Prefs) (*exportData, error) {
	user, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	stats, err := r.repo.UserStats(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sessions, err := r.repo.AllSessions(ctx, chatID)
	if err != nil {
		return nil, err
	}
	reports, err := r.repo.ListReports(ctx, chatID, 100)
	if err != nil {
		return nil, err
	}
	return &exportData{User: user, Stats: stats, Prefs: prefs, Sessions: sessions, Reports: reports}, nil
}

// buildExportCSV renders a sectioned CSV: user info, statistics,
// preferences, the full session table and report summaries. Cells are
// hardened against formula injection in spreadsheet apps.
func buildExportCSV(data *exportData, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{fmt.Sprintf("Check-in data export for user %d", data.User.ID)},
		{"Generated on " + now.Format("2006-01-02 15:04:05")},
		{},
		{"USER INFORMATION"},
		{"Field", "Value"},
		{"Username", csvCell(data.User.Username)},
		{"First Name", csvCell(data.User.FirstName)},
		{"Last Name", csvCell(data.User.LastName)},
		{"First Seen", data.User.FirstSeen.Format("2006-01-02 15:04:05")},
		{},
		{"STATISTICS"},
		{"Metric", "Value"},
		{"Total Sessions", fmt.Sprintf("%d", data.Stats.Total)},
		{"Morning Sessions", fmt.Sprintf("%d", data.Stats.Morning)},
		{"Evening Sessions", fmt.Sprintf("%d", data.Stats.Evening)},
		{"Unique Days Tracked", fmt.Sprintf("%d", data.Stats.UniqueDates)},
		{"First Entry", data.Stats.FirstDate},
		{"Latest Entry", data.Stats.LastDate},
		{},
		{"PREFERENCES"},
		{"Field", "Value"},
		{"Timezone", data.Prefs.Timezone},
		{"Morning Reminder", domain.FormatMinutes(data.Prefs.MorningM)},
		{"Evening Reminder", domain.FormatMinutes(data.Prefs.EveningM)},
		{"Reminders Enabled", fmt.Sprintf("%t", data.Prefs.RemindersOn)},
		{},
		{"SESSIONS"},
		{
			"session_id", "date", "time", "type",
			"energy_level", "mood", "stress_level",
			"intention", "day_word", "reflection",
		},
	}
	for _, s := range data.Sessions {
		rows = append(rows, []string{
			s.ID, s.Date, s.Time, string(s.Kind),
			csvScale(s.Energy), csvScale(s.Mood), csvScale(s.Stress),
			csvCell(s.Intention), csvCell(s.DayWord), csvCell(s.Reflection),
		})
	}

	rows = append(rows, []string{}, []string{"WEEKLY REPORTS"},
		[]string{"week_key", "week_start", "week_end", "days_with_data", "model", "generated_at", "content"})
	for _, rep := range data.Reports {
		rows = append(rows, []string{
			rep.WeekKey, rep.WeekStart, rep.WeekEnd,
			fmt.Sprintf("%d", rep.DaysCount), rep.Model,
			rep.GeneratedAt.Format("2006-01-02 15:04:05"),
			csvCell(rep.Content),
		})
	}

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func csvScale(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

// csvCell neutralizes values a spreadsheet would evaluate as a formula.
func csvCell(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsRune("=+-@\t", rune(s[0])) {
		return "'" + s
	}
	return s
}
