package telegram

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/report"
	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/store"
)

// Pending state keys used in conversational flows outside a running survey.
const (
	pendingTZ          = "await_tz_text"
	pendingOnboardTZ   = "await_onboard_tz_text"
	pendingMorningTime = "await_morning_time_text"
	pendingEveningTime = "await_evening_time_text"
)

// maxMessageLen is the split point for long outgoing messages; Telegram caps
// message text at 4096 characters.
const maxMessageLen = 4000

// Router wires Telegram updates to handlers and holds the in-memory
// conversation state (running surveys, pending free-text inputs).
type Router struct {
	bot       *tgbotapi.BotAPI
	log       *zap.Logger
	repo      store.Repo
	reports   *report.Service
	adminID   int64
	defaultTZ string
	maxUsers  int

	mu      sync.Mutex
	surveys map[int64]*surveyState
	pending map[int64]string
}

// NewRouter creates a Telegram router. adminID of 0 disables admin features.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo, reports *report.Service, adminID int64, defaultTZ string, maxUsers int) *Router {
	return &Router{
		bot:       bot,
		log:       log.Named("telegram"),
		repo:      repo,
		reports:   reports,
		adminID:   adminID,
		defaultTZ: defaultTZ,
		maxUsers:  maxUsers,
		surveys:   make(map[int64]*surveyState),
		pending:   make(map[int64]string),
	}
}

func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[chatID] = s
}

func (r *Router) getPending(chatID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[chatID]
}

func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, chatID)
}

func (r *Router) setSurvey(chatID int64, s *surveyState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s == nil {
		delete(r.surveys, chatID)
		return
	}
	r.surveys[chatID] = s
}

func (r *Router) getSurvey(chatID int64) *surveyState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.surveys[chatID]
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, msg)
		case strings.HasPrefix(text, "/help"):
			r.sendHTML(chatID, helpText)
		case strings.HasPrefix(text, "/checkin"):
			r.handleMenu(ctx, chatID)
		case strings.HasPrefix(text, "/stats"):
			r.handleStats(ctx, chatID)
		case strings.HasPrefix(text, "/settings"):
			r.handleSettings(ctx, chatID)
		case strings.HasPrefix(text, "/reminders"):
			r.handleReminders(ctx, chatID)
		case strings.HasPrefix(text, "/weekly_reports"):
			r.handleReportList(ctx, chatID)
		case strings.HasPrefix(text, "/generate_report"):
			r.handleGenerateReport(ctx, chatID)
		case strings.HasPrefix(text, "/export"):
			r.handleExport(ctx, chatID)
		case strings.HasPrefix(text, "/admin_stats"):
			r.handleAdminStats(ctx, chatID)
		case strings.HasPrefix(text, "/cancel"):
			r.handleCancel(chatID)
		default:
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if cb.Message == nil {
			return
		}
		data := cb.Data
		chatID := cb.Message.Chat.ID
		_ = r.answerCallback(cb.ID, "")

		switch {
		case data == "menu":
			r.handleMenu(ctx, chatID)
		case data == "show_stats":
			r.handleStats(ctx, chatID)
		case data == "reports":
			r.handleReportList(ctx, chatID)
		case strings.HasPrefix(data, "report:"):
			r.handleShowReport(ctx, chatID, strings.TrimPrefix(data, "report:"))

		case strings.HasPrefix(data, "survey:"):
			r.startSurvey(ctx, chatID, domain.Kind(strings.TrimPrefix(data, "survey:")))
		case strings.HasPrefix(data, "ans:"):
			r.handleScaleCallback(ctx, chatID, data)
		case strings.HasPrefix(data, "word:"):
			r.handleWordCallback(ctx, chatID, data)
		case strings.HasPrefix(data, "more:"):
			r.handleMoreWords(chatID, strings.TrimPrefix(data, "more:"), cb.Message.MessageID)
		case strings.HasPrefix(data, "back:"):
			r.handleBackToWords(chatID, strings.TrimPrefix(data, "back:"), cb.Message.MessageID)

		case strings.HasPrefix(data, "onboard_tz:"):
			r.handleOnboardTZ(ctx, chatID, strings.TrimPrefix(data, "onboard_tz:"))
		case strings.HasPrefix(data, "tz:"):
			r.handleSetTZ(ctx, chatID, strings.TrimPrefix(data, "tz:"))
		case strings.HasPrefix(data, "set:"):
			r.handleSettingsCallback(ctx, chatID, strings.TrimPrefix(data, "set:"))
		case strings.HasPrefix(data, "time:"):
			r.handleTimeCallback(ctx, chatID, strings.TrimPrefix(data, "time:"))

		case strings.HasPrefix(data, "snooze:"):
			r.handleSnooze(ctx, chatID, domain.Kind(strings.TrimPrefix(data, "snooze:")))
		case strings.HasPrefix(data, "skip:"):
			r.handleSkip(ctx, chatID, domain.Kind(strings.TrimPrefix(data, "skip:")))

		case data == "noop":
			// category header buttons do nothing
		default:
			r.log.Debug("unknown callback", zap.String("data", data))
		}
		return
	}
}

// --- Outgoing message helpers ---

// SendReminder delivers a scheduled check-in reminder. Satisfies scheduler.Sender.
func (r *Router) SendReminder(userID int64, kind domain.Kind) error {
	text := morningReminderText
	if kind == domain.KindEvening {
		text = eveningReminderText
	}
	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = reminderKeyboard(kind)
	_, err := r.bot.Send(msg)
	return err
}

// NotifyUser sends an HTML message to a user's chat. Satisfies report.UserNotifier.
func (r *Router) NotifyUser(userID int64, text string) error {
	return r.sendHTMLErr(userID, text)
}

// NotifyAdmin sends an HTML message to the admin chat. Satisfies report.AdminSender.
func (r *Router) NotifyAdmin(text string) error {
	if r.adminID == 0 {
		return nil
	}
	return r.sendHTMLErr(r.adminID, text)
}

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendHTML(chatID int64, text string) {
	if err := r.sendHTMLErr(chatID, text); err != nil {
		r.log.Warn("send html message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) sendHTMLErr(chatID int64, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLen) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := r.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// splitMessage cuts text into chunks no longer than limit, preferring to
// break at newlines.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndex(text[:limit], "\n")
		if cut <= 0 {
			// hard cut, but never in the middle of a rune
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], "\n"))
		text = strings.TrimLeft(text[cut:], "\n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
