package telegram

// UI texts in English. Messages are sent with HTML parse mode.
const (
	startText = "👋 Welcome! I am your daily check-in companion.\n\n" +
		"Twice a day I ask a few quick questions about your energy, mood and stress. " +
		"Every Monday I turn the past week into a personal reflection report.\n\n" +
		"First, let's set your timezone so reminders arrive at the right local time:"

	welcomeBackText = "👋 Welcome back! Use the menu below or /help to see what I can do."

	capReachedText = "😔 The bot is at capacity right now and cannot accept new users. " +
		"Please try again later."

	notRegisteredText = "Please run /start first so I can set things up for you."

	helpText = "<b>Commands</b>\n" +
		"/start — register and set up reminders\n" +
		"/checkin — open the check-in menu\n" +
		"/stats — your check-in statistics\n" +
		"/settings — timezone and reminder times\n" +
		"/reminders — current reminder schedule\n" +
		"/weekly_reports — browse your weekly reports\n" +
		"/generate_report — report for the previous week\n" +
		"/export — download your data as CSV\n\n" +
		"<b>Check-in windows</b>\n" +
		"🌅 Morning: 05:00–12:00 local time\n" +
		"🌙 Evening: 15:00–05:00 local time"

	morningReminderText = "🌅 Good morning! Ready for your morning check-in?"
	eveningReminderText = "🌙 Good evening! Time for your evening check-in."

	surveyAbortedText = "Check-in cancelled. Your answers were discarded."

	wordHintText = "Pick a word below, tap «More options» for the full list, or just type your own (up to 3 words)."
)
