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
)

// surveyState tracks one running check-in conversation.
type surveyState struct {
	Kind      domain.Kind
	Date      string // local date the session will be stored under
	Index     int    // current question
	Answers   map[string]string
	StartedAt time.Time
}

func (s *surveyState) current() (domain.Question, bool) {
	qs := domain.QuestionnaireFor(s.Kind).Questions
	if s.Index >= len(qs) {
		return domain.Question{}, false
	}
	return qs[s.Index], true
}

// startSurvey begins a check-in if the kind is valid, the user is registered,
// the window is open and today's session is not already recorded.
func (r *Router) startSurvey(ctx context.Context, chatID int64, kind domain.Kind) {
	if !kind.Valid() {
		return
	}
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

	if !domain.CheckinAllowed(kind, localNow) {
		fromM, toM := domain.WindowFor(kind)
		r.sendText(chatID, fmt.Sprintf(
			"This check-in is available between %s and %s your time. See you then!",
			domain.FormatMinutes(fromM), domain.FormatMinutes(toM)))
		return
	}

	date := domain.SessionDate(kind, localNow)
	existing, err := r.repo.TodaySessions(ctx, chatID, date)
	if err != nil {
		r.log.Error("load today's sessions", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Something went wrong, please try again.")
		return
	}
	if _, done := existing[kind]; done {
		r.sendText(chatID, "You already completed this check-in today. ✅")
		return
	}

	q := domain.QuestionnaireFor(kind)
	r.setSurvey(chatID, &surveyState{
		Kind:      kind,
		Date:      date,
		Answers:   make(map[string]string, len(q.Questions)),
		StartedAt: time.Now().UTC(),
	})

	r.sendHTML(chatID, fmt.Sprintf("<b>%s</b>\n\n%s", q.Title, q.Description))
	r.askCurrent(chatID)
}

// askCurrent sends the current question with its answer widget.
func (r *Router) askCurrent(chatID int64) {
	s := r.getSurvey(chatID)
	if s == nil {
		return
	}
	q, ok := s.current()
	if !ok {
		return
	}

	total := len(domain.QuestionnaireFor(s.Kind).Questions)
	text := fmt.Sprintf("%s Question %d of %d\n\n%s %s",
		progressBar(s.Index+1, total), s.Index+1, total, q.Emoji, q.Text)
	msg := tgbotapi.NewMessage(chatID, text)
	switch q.Type {
	case domain.QScale:
		msg.ReplyMarkup = scaleKeyboard(q.ID)
	case domain.QWord:
		msg.Text = text + "\n\n" + wordHintText
		msg.ReplyMarkup = wordKeyboard(q.ID)
	case domain.QText:
		// free text, no keyboard
	}
	if _, err := r.bot.Send(msg); err != nil {
		r.log.Warn("send question", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// handleScaleCallback records a 0..10 button press for the active question.
func (r *Router) handleScaleCallback(ctx context.Context, chatID int64, data string) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		return
	}
	questionID, raw := parts[1], parts[2]

	s := r.getSurvey(chatID)
	q, ok := currentMatches(s, questionID, domain.QScale)
	if !ok {
		return
	}
	value, err := domain.ValidateScale(raw)
	if err != nil {
		r.sendText(chatID, "Please pick a number between 0 and 10.")
		return
	}
	r.record(ctx, chatID, s, q.ID, fmt.Sprintf("%d", value))
}

// handleWordCallback records a word button press for the active question.
func (r *Router) handleWordCallback(ctx context.Context, chatID int64, data string) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		return
	}
	questionID, word := parts[1], parts[2]

	s := r.getSurvey(chatID)
	q, ok := currentMatches(s, questionID, domain.QWord)
	if !ok {
		return
	}
	r.record(ctx, chatID, s, q.ID, word)
}

// handleMoreWords swaps the quick picks for the full categorized list in place.
func (r *Router) handleMoreWords(chatID int64, questionID string, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, extendedWordKeyboard(questionID))
	if _, err := r.bot.Request(edit); err != nil {
		r.log.Warn("edit word keyboard", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleBackToWords(chatID int64, questionID string, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, wordKeyboard(questionID))
	if _, err := r.bot.Request(edit); err != nil {
		r.log.Warn("edit word keyboard", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// handleSurveyText consumes free text while a survey is active. Returns false
// when no survey is running so the caller can try other pending flows.
func (r *Router) handleSurveyText(ctx context.Context, chatID int64, text string) bool {
	s := r.getSurvey(chatID)
	if s == nil {
		return false
	}
	q, ok := s.current()
	if !ok {
		return false
	}

	switch q.Type {
	case domain.QScale:
		r.sendText(chatID, "Please use the number buttons above.")
	case domain.QWord:
		word, err := domain.ValidateWordAnswer(text)
		if err != nil {
			r.sendText(chatID, answerErrorText(err))
			return true
		}
		r.record(ctx, chatID, s, q.ID, word)
	case domain.QText:
		answer, err := domain.ValidateReflection(text)
		if err != nil {
			r.sendText(chatID, answerErrorText(err))
			return true
		}
		r.record(ctx, chatID, s, q.ID, answer)
	}
	return true
}

// record stores the answer, advances the survey and finishes it when the
// last question was answered.
func (r *Router) record(ctx context.Context, chatID int64, s *surveyState, questionID, answer string) {
	s.Answers[questionID] = answer
	s.Index++
	if _, more := s.current(); more {
		r.askCurrent(chatID)
		return
	}
	r.finishSurvey(ctx, chatID, s)
}

func (r *Router) finishSurvey(ctx context.Context, chatID int64, s *surveyState) {
	defer r.setSurvey(chatID, nil)

	prefs, err := r.repo.GetPrefs(ctx, chatID)
	if err != nil {
		r.log.Error("load prefs on finish", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save your check-in, please try again.")
		return
	}
	loc, err := time.LoadLocation(prefs.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localNow := time.Now().In(loc)

	session := buildSession(chatID, s, localNow)
	if err := r.repo.SaveSession(ctx, session); err != nil {
		r.log.Error("save session", zap.Int64("user_id", chatID), zap.Error(err))
		r.sendText(chatID, "Could not save your check-in, please try again.")
		return
	}

	r.log.Info("check-in completed",
		zap.Int64("user_id", chatID),
		zap.String("kind", string(s.Kind)),
		zap.String("date", s.Date))

	r.sendHTML(chatID, completionText(s))
	r.handleMenu(ctx, chatID)
}

// buildSession maps collected answers into the typed session columns.
func buildSession(userID int64, s *surveyState, localNow time.Time) *domain.Session {
	session := &domain.Session{
		ID:        fmt.Sprintf("%d_%s_%s", userID, s.Kind, localNow.Format("20060102_150405")),
		UserID:    userID,
		Kind:      s.Kind,
		Date:      s.Date,
		Time:      localNow.Format("15:04:05"),
		Timestamp: time.Now().UTC(),
		Answers:   s.Answers,
	}
	for id, answer := range s.Answers {
		switch id {
		case "energy_level":
			session.Energy = scaleValue(answer)
		case "mood":
			session.Mood = scaleValue(answer)
		case "stress_level":
			session.Stress = scaleValue(answer)
		case "intention":
			session.Intention = answer
		case "day_word":
			session.DayWord = answer
		case "reflection":
			session.Reflection = answer
		}
	}
	return session
}

func scaleValue(s string) *int {
	v, err := domain.ValidateScale(s)
	if err != nil {
		return nil
	}
	return &v
}

func completionText(s *surveyState) string {
	var b strings.Builder
	if s.Kind == domain.KindMorning {
		b.WriteString("🌅 <b>Morning check-in saved!</b>\n")
		fmt.Fprintf(&b, "\n⚡ Energy: %s/10", s.Answers["energy_level"])
		fmt.Fprintf(&b, "\n😊 Mood: %s/10", s.Answers["mood"])
		fmt.Fprintf(&b, "\n🎯 Intention: %s", s.Answers["intention"])
		b.WriteString("\n\nHave a great day! See you this evening. 🌙")
	} else {
		b.WriteString("🌙 <b>Evening check-in saved!</b>\n")
		fmt.Fprintf(&b, "\n😊 Mood: %s/10", s.Answers["mood"])
		fmt.Fprintf(&b, "\n😰 Stress: %s/10", s.Answers["stress_level"])
		fmt.Fprintf(&b, "\n📝 Day in a word: %s", s.Answers["day_word"])
		b.WriteString("\n\nRest well! See you tomorrow morning. 🌅")
	}
	return b.String()
}

func answerErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrAnswerTooShort):
		return "That's a bit short. Please write at least a few words (3–200 characters)."
	case errors.Is(err, domain.ErrAnswerTooLong):
		return "That's too long, please keep it shorter."
	case errors.Is(err, domain.ErrTooManyWords):
		return "Please keep it to at most 3 words."
	case errors.Is(err, domain.ErrExcessRepetition):
		return "That looks repetitive. Try describing it differently."
	case errors.Is(err, domain.ErrUnsafeText):
		return "Plain text only please, no links or markup."
	default:
		return "I couldn't accept that answer, please try again."
	}
}

// progressBar renders filled and empty circles for the survey header,
// e.g. "🟢🟢⚪" for question 2 of 3.
func progressBar(current, total int) string {
	var b strings.Builder
	for i := 1; i <= total; i++ {
		if i <= current {
			b.WriteString("🟢")
		} else {
			b.WriteString("⚪")
		}
	}
	return b.String()
}

func currentMatches(s *surveyState, questionID string, qt domain.QuestionType) (domain.Question, bool) {
	if s == nil {
		return domain.Question{}, false
	}
	q, ok := s.current()
	if !ok || q.ID != questionID || q.Type != qt {
		return domain.Question{}, false
	}
	return q, true
}
