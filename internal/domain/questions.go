package domain

// QuestionType selects the input widget for a question.
type QuestionType string

const (
	QScale QuestionType = "scale"          // 0..10 inline keyboard
	QWord  QuestionType = "word_selection" // curated word keyboard with free-text fallback
	QText  QuestionType = "text"           // free text
)

// Question is one step of a check-in questionnaire.
type Question struct {
	ID    string
	Text  string
	Emoji string
	Type  QuestionType
}

// Questionnaire is a titled ordered question set.
type Questionnaire struct {
	Title       string
	Description string
	Questions   []Question
}

var morningQuestionnaire = Questionnaire{
	Title:       "🟢 🕘 Morning: Starting Point",
	Description: "Good morning! Let's check in on your starting point for today:",
	Questions: []Question{
		{ID: "energy_level", Text: "Energy level (0–10): How energized do you feel?", Emoji: "⚡", Type: QScale},
		{ID: "mood", Text: "Mood (0–10): How positive do you feel emotionally?", Emoji: "😊", Type: QScale},
		{ID: "intention", Text: "One-word intention: Choose what you want from today:", Emoji: "🎯", Type: QWord},
	},
}

var eveningQuestionnaire = Questionnaire{
	Title:       "🔵 🌙 Evening: Review",
	Description: "Good evening! Time to reflect on your day:",
	Questions: []Question{
		{ID: "mood", Text: "Mood (0–10): How do you feel emotionally right now?", Emoji: "😊", Type: QScale},
		{ID: "stress_level", Text: "Stress level (0–10): How stressed have you felt today?", Emoji: "😰", Type: QScale},
		{ID: "day_word", Text: "One word for the day: Describe your day in one word:", Emoji: "📝", Type: QWord},
		{ID: "reflection", Text: "One line reflection: One sentence about what affected your mood most:", Emoji: "💭", Type: QText},
	},
}

// QuestionnaireFor returns the question set for a check-in kind.
func QuestionnaireFor(k Kind) Questionnaire {
	if k == KindMorning {
		return morningQuestionnaire
	}
	return eveningQuestionnaire
}

// MainWord is a quick-pick word with its button label.
type MainWord struct {
	Label string
	Word  string
}

// WordCategory groups the extended word list shown behind "More".
type WordCategory struct {
	Emoji string
	Title string
	Words []string
}

var intentionMainWords = []MainWord{
	{Label: "🌿 Calm", Word: "Calm"},
	{Label: "🎯 Focused", Word: "Focused"},
	{Label: "💖 Grateful", Word: "Grateful"},
	{Label: "🌿 Patient", Word: "Patient"},
	{Label: "⚡ Energetic", Word: "Energetic"},
}

var intentionCategories = []WordCategory{
	{Emoji: "🌿", Title: "Calm & Centered", Words: []string{"Calm", "Peaceful", "Steady", "Grounded", "Patient", "Balanced", "Relaxed"}},
	{Emoji: "💪", Title: "Productive & Active", Words: []string{"Focused", "Productive", "Efficient", "Driven", "Organized", "Motivated", "Disciplined"}},
	{Emoji: "💖", Title: "Emotional & Relational", Words: []string{"Kind", "Compassionate", "Caring", "Grateful", "Loving", "Supportive", "Generous"}},
	{Emoji: "🌟", Title: "Growth & Aspiration", Words: []string{"Confident", "Brave", "Curious", "Creative", "Resilient", "Optimistic", "Determined"}},
	{Emoji: "🎯", Title: "Self-Care & Well-Being", Words: []string{"Healthy", "Rested", "Nourished", "Energetic", "Mindful", "Joyful", "Present"}},
}

var dayWordMainWords = []MainWord{
	{Label: "🌈 Joyful", Word: "Joyful"},
	{Label: "🌤 Steady", Word: "Steady"},
	{Label: "🌧 Tired", Word: "Tired"},
	{Label: "🌟 Resilient", Word: "Resilient"},
}

var dayWordCategories = []WordCategory{
	{Emoji: "🌈", Title: "Joyful", Words: []string{"Joyful", "Peaceful", "Exciting", "Productive", "Relaxed", "Inspired", "Optimistic"}},
	{Emoji: "🌤", Title: "Steady", Words: []string{"Steady", "Okay", "Average", "Routine", "Quiet", "Normal", "Content"}},
	{Emoji: "🌧", Title: "Tired", Words: []string{"Tired", "Stressed", "Frustrated", "Overwhelmed", "Lonely", "Drained", "Anxious"}},
	{Emoji: "🌟", Title: "Resilient", Words: []string{"Resilient", "Learning", "Challenging", "Courageous", "Progress", "Adaptive", "Determined"}},
}

// MainWords returns the quick-pick words for a word-selection question.
func MainWords(questionID string) []MainWord {
	if questionID == "day_word" {
		return dayWordMainWords
	}
	return intentionMainWords
}

// Categories returns the extended word categories for a word-selection question.
func Categories(questionID string) []WordCategory {
	if questionID == "day_word" {
		return dayWordCategories
	}
	return intentionCategories
}
