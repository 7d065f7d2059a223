package ai

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Shkirskiy/Moody-Telegram-Bot/internal/domain"
)

// MinReportDays is the minimum number of distinct days with entries required
// before a weekly report is generated.
const MinReportDays = 3

// FormatSessions renders a week of check-ins into the line format the model
// is prompted with, grouped by date in ascending order. Session times are
// already local to the user, so no conversion happens here.
func FormatSessions(sessions []*domain.Session) string {
	if len(sessions) == 0 {
		return "No data available for this period."
	}

	byDate := make(map[string]map[domain.Kind]*domain.Session)
	for _, s := range sessions {
		if byDate[s.Date] == nil {
			byDate[s.Date] = make(map[domain.Kind]*domain.Session, 2)
		}
		byDate[s.Date][s.Kind] = s
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var b strings.Builder
	for _, date := range dates {
		day := byDate[date]
		fmt.Fprintf(&b, "\n*Data for* %s\n", date)

		if m, ok := day[domain.KindMorning]; ok {
			fmt.Fprintf(&b,
				"Morning data, registered at %s : energy level=%s, mood=%s, intention word for the day=%q\n",
				clockOf(m), scaleOf(m.Energy), scaleOf(m.Mood), orNA(m.Intention))
		}
		if e, ok := day[domain.KindEvening]; ok {
			fmt.Fprintf(&b,
				"Evening data, registered at %s: mood=%s, stress=%s, word that describes this day best=%q, one sentence describing what had the most impact on your mood today=%q\n",
				clockOf(e), scaleOf(e.Mood), scaleOf(e.Stress), orNA(e.DayWord), orNA(e.Reflection))
		}
	}
	return strings.TrimSuffix(strings.TrimPrefix(b.String(), "\n"), "\n")
}

// BuildPrompt assembles the user prompt: current week data followed by up to
// three previous reports, newest first.
func BuildPrompt(currentWeekData string, previousReports []string) string {
	parts := []string{"*Current week data:*", currentWeekData}

	n := len(previousReports)
	if n > 3 {
		n = 3
	}
	for i := 0; i < n; i++ {
		if previousReports[i] == "" {
			continue
		}
		label := "previous"
		if i > 0 {
			label = fmt.Sprintf("%d weeks before", i+1)
		}
		parts = append(parts,
			fmt.Sprintf("\n*Generated report for the %s week*:", label),
			previousReports[i])
	}
	return strings.Join(parts, "\n")
}

// SufficientData checks the distinct-day threshold for report generation.
func SufficientData(sessions []*domain.Session) (ok bool, days int) {
	seen := make(map[string]struct{})
	for _, s := range sessions {
		seen[s.Date] = struct{}{}
	}
	return len(seen) >= MinReportDays, len(seen)
}

func clockOf(s *domain.Session) string {
	if len(s.Time) >= 5 {
		return s.Time[:5]
	}
	return "unknown"
}

func scaleOf(v *int) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
