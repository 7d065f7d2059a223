package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/report"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/scheduler"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
)

// Default reminder times for new users.
const (
	defaultMorningM = 7 * 60  // 07:00
	defaultEveningM = 22 * 60 // 22:00

	snoozeDelay = 2 * time.Hour

	reportListLimit = 10
)

// --- Registration and onboarding ---

func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	user := domain.User{
		ID:        chatID,
		FirstSeen: time.Now().UTC(),
		IsAdmin:   chatID == r.adminID,
	}
	if msg.From != nil {
		user.Username = msg.From.UserName
		user.FirstName = msg.From.FirstName
		user.LastName = msg.From.LastName
	}

	err := r.repo.RegisterUser(ctx, user, r.maxUsers)
	if errors.Is(err, store.ErrUserCapReached) {
		r.sendText(chatID, capReachedText)
		return
	}
	if err != nil {
		r.log.Error("register user", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Registration failed, please try again later.")
		return
	}

	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err == nil && prefs.Onboarded {
		r.sendHTML(chatID, welcomeBackText)
		r.handleMenu(ctx, chatID)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		prefs = &domain.Prefs{
			UserID:      chatID,
			Timezone:    r.defaultTZ,
			RemindersOn: true,
			MorningM:    defaultMorningM,
			EveningM:    defaultEveningM,
			MorningOn:   true,
			EveningOn:   true,
		}
		if err := r.repo.UpsertPrefs(ctx, prefs); err != nil {
			r.log.Error("seed prefs", zap.Int64("user_id", chatID), zap.Error(err))
			r.sendText(chatID, "Registration failed, please try again later.")
			return
		}
	} else if err != nil {
		r.log.Error("load prefs", zap.Int64("user_id", chatID), zap.Error(err))
		return
	}

	msgOut := tgbotapi.NewMessage(chatID, startText)
	msgOut.ReplyMarkup = tzKeyboard("onboard_tz")
	if _, err := r.bot.Send(msgOut); err != nil {
		r.log.Warn("send onboarding", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleOnboardTZ(ctx context.Context, chatID int64, value string) {
	if value == "custom" {
		r.sendText(chatID, "Enter your timezone as Region/City (e.g. Europe/Paris):")
		r.setPending(chatID, pendingOnboardTZ)
		return
	}
	r.completeOnboarding(ctx, chatID, value)
}

func (r *Router) completeOnboarding(ctx context.Context, chatID int64, tz string) {
	canonical, err := domain.ValidateTZ(tz)
	if err != nil {
		r.sendText(chatID, "Invalid timezone. Example: Europe/Paris")
		return
	}

	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.log.Error("load prefs for onboarding", zap.Int64("user_id", chatID), zap.Error(err))
		return
	}
	prefs.Timezone = canonical
	prefs.Onboarded = true
	now := time.Now().UTC()
	prefs.LastSetup = &now
	if err := r.savePrefsAndReschedule(ctx, prefs); err != nil {
		r.log.Error("save onboarding prefs", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save your timezone, please try again.")
		return
	}

	r.sendHTML(chatID, fmt.Sprintf(
		"✅ All set! Timezone: <b>%s</b>\n\n"+
			"I'll remind you at <b>%s</b> in the morning and <b>%s</b> in the evening. "+
			"You can change everything in /settings.",
		canonical, domain.FormatMinutes(prefs.MorningM), domain.FormatMinutes(prefs.EveningM)))
	r.handleMenu(ctx, chatID)
}

// --- Menu and stats ---

func (r *Router) handleMenu(ctx context.Context, chatID int64) {
	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.sendText(chatID, notRegisteredText)
		return
	}
	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localNow := time.Now().In(loc)

	morningDate := domain.SessionDate(domain.KindMorning, localNow)
	eveningDate := domain.SessionDate(domain.KindEvening, localNow)

	morningDone := r.hasSession(ctx, chatID, domain.KindMorning, morningDate)
	eveningDone := r.hasSession(ctx, chatID, domain.KindEvening, eveningDate)

	msg := tgbotapi.NewMessage(chatID, "What would you like to do?")
	msg.ReplyMarkup = menuKeyboard(
		morningDone, eveningDone,
		domain.CheckinAllowed(domain.KindMorning, localNow),
		domain.CheckinAllowed(domain.KindEvening, localNow),
	)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) hasSession(ctx context.Context, chatID int64, kind domain.Kind, date string) bool {
	sessions, err := r.repo.TodaySessions(ctx, chatID, date)
	if err != nil {
		r.log.Error("load sessions", zap.Int64("user_id", chatID), zap.Error(err))
		return false
	}
	_, ok := sessions[kind]
	return ok
}

func (r *Router) handleStats(ctx context.Context, chatID int64) {
	if !r.requireRegistered(ctx, chatID) {
		return
	}
	st, err := r.repo.UserStats(ctx, chatID)
	if err != nil {
		r.log.Error("load stats", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not load your statistics.")
		return
	}
	if st.Total == 0 {
		r.sendText(chatID, "No check-ins yet. Complete your first one from the menu!")
		return
	}
	r.sendHTML(chatID, fmt.Sprintf(
		"📊 <b>Your statistics</b>\n\n"+
			"Total check-ins: <b>%d</b>\n"+
			"🌅 Morning: %d\n"+
			"🌙 Evening: %d\n"+
			"Days tracked: %d\n"+
			"First entry: %s\n"+
			"Latest entry: %s",
		st.Total, st.Morning, st.Evening, st.UniqueDates, st.FirstDate, st.LastDate))
}

// --- Settings ---

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.sendText(chatID, notRegisteredText)
		return
	}
	msg := tgbotapi.NewMessage(chatID, "⚙️ Settings — tap what you want to change:")
	msg.ReplyMarkup = settingsKeyboard(prefs)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send settings", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleSettingsCallback(ctx context.Context, chatID int64, action string) {
	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.sendText(chatID, notRegisteredText)
		return
	}

	switch action {
	case "tz":
		msg := tgbotapi.NewMessage(chatID, "Choose your timezone:")
		msg.ReplyMarkup = tzKeyboard("tz")
		_, _ = r.bot.Send(msg)
		return
	case "morning_time":
		msg := tgbotapi.NewMessage(chatID, "When should the morning reminder arrive?")
		msg.ReplyMarkup = timeKeyboard(domain.KindMorning)
		_, _ = r.bot.Send(msg)
		return
	case "evening_time":
		msg := tgbotapi.NewMessage(chatID, "When should the evening reminder arrive?")
		msg.ReplyMarkup = timeKeyboard(domain.KindEvening)
		_, _ = r.bot.Send(msg)
		return
	case "toggle_morning":
		prefs.MorningOn = !prefs.MorningOn
	case "toggle_evening":
		prefs.EveningOn = !prefs.EveningOn
	case "toggle_all":
		prefs.RemindersOn = !prefs.RemindersOn
	default:
		return
	}

	if err := r.savePrefsAndReschedule(ctx, prefs); err != nil {
		r.log.Error("save toggled prefs", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save the change.")
		return
	}
	r.handleSettings(ctx, chatID)
}

func (r *Router) handleSetTZ(ctx context.Context, chatID int64, value string) {
	if value == "custom" {
		r.sendText(chatID, "Enter your timezone as Region/City (e.g. Europe/Paris):")
		r.setPending(chatID, pendingTZ)
		return
	}
	r.updateTZ(ctx, chatID, value)
}

func (r *Router) updateTZ(ctx context.Context, chatID int64, tz string) {
	canonical, err := domain.ValidateTZ(tz)
	if err != nil {
		r.sendText(chatID, "Invalid timezone. Example: Europe/Paris")
		return
	}
	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.sendText(chatID, notRegisteredText)
		return
	}
	prefs.Timezone = canonical
	if err := r.savePrefsAndReschedule(ctx, prefs); err != nil {
		r.log.Error("save timezone", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save the timezone.")
		return
	}
	r.sendText(chatID, "Timezone updated: "+canonical)
}

func (r *Router) handleTimeCallback(ctx context.Context, chatID int64, data string) {
	parts := strings.SplitN(data, ":", 2)
	if len(parts) != 2 {
		return
	}
	kind := domain.Kind(parts[0])
	if !kind.Valid() {
		return
	}
	if parts[1] == "custom" {
		r.sendText(chatID, "Enter the time as HH:MM (e.g. 07:30):")
		if kind == domain.KindMorning {
			r.setPending(chatID, pendingMorningTime)
		} else {
			r.setPending(chatID, pendingEveningTime)
		}
		return
	}
	r.updateReminderTime(ctx, chatID, kind, parts[1])
}

func (r *Router) updateReminderTime(ctx context.Context, chatID int64, kind domain.Kind, value string) {
	minutes, err := domain.ParseHHMM(value)
	if err != nil {
		r.sendText(chatID, "Invalid time. Example: 07:30")
		return
	}
	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.sendText(chatID, notRegisteredText)
		return
	}
	if kind == domain.KindMorning {
		prefs.MorningM = minutes
	} else {
		prefs.EveningM = minutes
	}
	if err := r.savePrefsAndReschedule(ctx, prefs); err != nil {
		r.log.Error("save reminder time", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save the time.")
		return
	}
	label := "Morning"
	if kind == domain.KindEvening {
		label = "Evening"
	}
	r.sendText(chatID, fmt.Sprintf("%s reminder set to %s.", label, domain.FormatMinutes(minutes)))
}

// savePrefsAndReschedule persists prefs and recomputes both next fire instants.
func (r *Router) savePrefsAndReschedule(ctx context.Context, prefs *domain.Prefs) error {
	if err := r.repo.UpsertPrefs(ctx, prefs); err != nil {
		return err
	}
	return scheduler.Reschedule(ctx, r.repo, prefs, time.Now().UTC())
}

// --- Reminders ---

func (r *Router) handleReminders(ctx context.Context, chatID int64) {
	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.sendText(chatID, notRegisteredText)
		return
	}

	status := func(on bool) string {
		if on {
			return "on"
		}
		return "off"
	}
	nextOf := func(t *time.Time) string {
		if t == nil {
			return "—"
		}
		if s, err := domain.LocalizeTime(*t, prefs.Timezone); err == nil {
			return s
		}
		return t.Format("15:04 MST")
	}

	r.sendHTML(chatID, fmt.Sprintf(
		"⏰ <b>Reminders</b> (%s)\n\n"+
			"🌅 Morning: %s at %s, next at %s\n"+
			"🌙 Evening: %s at %s, next at %s\n\n"+
			"Timezone: %s",
		status(prefs.RemindersOn),
		status(prefs.MorningOn), domain.FormatMinutes(prefs.MorningM), nextOf(prefs.NextMorningAt),
		status(prefs.EveningOn), domain.FormatMinutes(prefs.EveningM), nextOf(prefs.NextEveningAt),
		prefs.Timezone))
}

func (r *Router) handleSnooze(ctx context.Context, chatID int64, kind domain.Kind) {
	if !kind.Valid() {
		return
	}
	next := time.Now().UTC().Add(snoozeDelay)
	if err := r.repo.SetNextFire(ctx, chatID, kind, &next); err != nil {
		r.log.Error("snooze reminder", zap.Int64("user_id", chatID), zap.Error(err))
		return
	}
	r.sendText(chatID, "⏰ Snoozed. I'll remind you again in 2 hours.")
}

func (r *Router) handleSkip(ctx context.Context, chatID int64, kind domain.Kind) {
	if !kind.Valid() {
		return
	}
	// next fire was already advanced to tomorrow when the reminder fired
	r.sendText(chatID, "Okay, skipping today. See you at the next one! 👋")
}

// --- Weekly reports ---

func (r *Router) handleReportList(ctx context.Context, chatID int64) {
	if !r.requireRegistered(ctx, chatID) {
		return
	}
	list, err := r.repo.ListReports(ctx, chatID, reportListLimit)
	if err != nil {
		r.log.Error("list reports", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not load your reports.")
		return
	}
	if len(list) == 0 {
		r.sendText(chatID, "No weekly reports yet. They appear every Monday once you have check-ins on at least 3 days of a week.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "📈 Your weekly reports:")
	msg.ReplyMarkup = reportsKeyboard(list)
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send report list", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleShowReport(ctx context.Context, chatID int64, weekKey string) {
	rep, err := r.repo.GetReport(ctx, chatID, weekKey)
	if errors.Is(err, store.ErrNotFound) {
		r.sendText(chatID, "That report does not exist anymore.")
		return
	}
	if err != nil {
		r.log.Error("load report", zap.Int64("user_id", chatID), zap.Error(err))
		return
	}
	header := rep.WeekKey
	if ws, err := domain.ParseWeekStart(rep.WeekStart); err == nil {
		header = domain.FormatWeekRange(ws)
	}
	r.sendHTML(chatID, fmt.Sprintf("📊 <b>%s</b>\n\n%s", header, rep.Content))
}

// handleGenerateReport serves the previous week's report on demand,
// generating it first if needed.
func (r *Router) handleGenerateReport(ctx context.Context, chatID int64) {
	if !r.requireRegistered(ctx, chatID) {
		return
	}
	weekStart := domain.PreviousWeekStart(time.Now().UTC())
	weekKey := domain.WeekKey(weekStart)

	if rep, err := r.repo.GetReport(ctx, chatID, weekKey); err == nil {
		header := domain.FormatWeekRange(weekStart)
		r.sendHTML(chatID, fmt.Sprintf("📊 <b>%s</b>\n\n%s", header, rep.Content))
		return
	}

	r.sendText(chatID, "⏳ Generating your report, this can take a minute...")
	// the model call can take a while; keep the update loop responsive
	go func() {
		err := r.reports.Generate(context.Background(), chatID, weekStart, 1)
		if errors.Is(err, report.ErrInsufficientData) {
			r.sendText(chatID, "Not enough data last week: reports need check-ins on at least 3 different days.")
			return
		}
		if err != nil {
			r.log.Error("on-demand report", zap.Int64("user_id", chatID), zap.Error(err))
			r.sendText(chatID, "Report generation failed. I'll retry automatically later.")
		}
		// success delivery happens inside the report service
	}()
}

// --- Admin ---

func (r *Router) handleAdminStats(ctx context.Context, chatID int64) {
	if r.adminID == 0 || chatID != r.adminID {
		return
	}
	users, err := r.repo.UserCount(ctx)
	if err != nil {
		r.log.Error("count users", zap.Error(err))
		return
	}
	pendingRetries, err := r.repo.PendingRetries(ctx, time.Now().UTC().Add(30*24*time.Hour))
	if err != nil {
		r.log.Error("list retries", zap.Error(err))
		return
	}
	notes, err := r.repo.PendingAdminNotes(ctx)
	if err != nil {
		r.log.Error("list admin notes", zap.Error(err))
		return
	}
	r.sendHTML(chatID, fmt.Sprintf(
		"🛠 <b>Admin stats</b>\n\n"+
			"Users: %d / %d\n"+
			"Report retries in flight: %d\n"+
			"Queued issues: %d",
		users, r.maxUsers, len(pendingRetries), len(notes)))
}

// --- Shared flows ---

func (r *Router) handleCancel(chatID int64) {
	r.clearPending(chatID)
	if r.getSurvey(chatID) != nil {
		r.setSurvey(chatID, nil)
		r.sendText(chatID, surveyAbortedText)
		return
	}
	r.sendText(chatID, "Nothing to cancel.")
}

// handleFreeForm dispatches non-command text: first to a running survey,
// then to pending settings inputs.
func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if r.handleSurveyText(ctx, chatID, text) {
		return
	}

	switch r.getPending(chatID) {
	case pendingTZ:
		r.clearPending(chatID)
		r.updateTZ(ctx, chatID, text)
	case pendingOnboardTZ:
		r.clearPending(chatID)
		r.completeOnboarding(ctx, chatID, text)
	case pendingMorningTime:
		r.clearPending(chatID)
		r.updateReminderTime(ctx, chatID, domain.KindMorning, text)
	case pendingEveningTime:
		r.clearPending(chatID)
		r.updateReminderTime(ctx, chatID, domain.KindEvening, text)
	default:
		// no pending flow, ignore
	}
}

func (r *Router) requireRegistered(ctx context.Context, chatID int64) bool {
	ok, err := r.repo.IsRegistered(ctx, chatID)
	if err != nil {
		r.log.Error("check registration", zap.Int64("user_id", chatID), zap.Error(err))
		return false
	}
	if !ok {
		r.sendText(chatID, notRegisteredText)
	}
	return ok
}
