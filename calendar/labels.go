package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Holiday categories shown next to upcoming holidays.
const (
	CategoryStandard    = "Standard"
	CategoryEaster      = "Easter-based"
	CategoryLongWeekend = "Long Weekend"
	CategoryChristmas   = "Christmas Period"
)

// Category groups a holiday for display. Checks run in order and the last
// match wins, so Christmas beats Long Weekend beats Easter.
func Category(h Holiday) string {
	category := CategoryStandard
	if strings.Contains(h.Name, "Easter") {
		category = CategoryEaster
	}
	if wd := h.Date.Weekday(); strings.Contains(h.Name, "Day") && (wd == time.Monday || wd == time.Tuesday) {
		category = CategoryLongWeekend
	}
	if strings.Contains(h.Name, "Christmas") || strings.Contains(h.Name, "Boxing") {
		category = CategoryChristmas
	}
	return category
}

// DaysUntilLabel describes how far date is from today in calendar days:
// "Today", "Tomorrow", "In N days" up to 30 days, then whole 30-day months.
func DaysUntilLabel(today, date time.Time) string {
	days := DaysBetween(today, date)
	switch {
	case days < 0:
		return "Past"
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days <= 30:
		return fmt.Sprintf("In %d days", days)
	}

	months := days / 30
	if months == 1 {
		return "1 month"
	}
	return fmt.Sprintf("%d months", months)
}
