// Package assets embeds static files shipped with the bot binary.
package assets

import _ "embed"

// WeeklyReportPrompt is the system prompt used for weekly report generation.
//
//go:embed prompts/weekly_report.txt
var WeeklyReportPrompt string
