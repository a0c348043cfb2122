package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseDate accepts common date formats plus a few relative keywords
// (today, yesterday, this week, last month, ...).
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.ToLower(strings.TrimSpace(dateStr))

	if dateStr == "today" {
		return time.Now(), nil
	}
	if dateStr == "yesterday" {
		return time.Now().AddDate(0, 0, -1), nil
	}
	if dateStr == "tomorrow" {
		return time.Now().AddDate(0, 0, 1), nil
	}

	if strings.HasPrefix(dateStr, "this ") {
		return parseRelativeDate(dateStr, 0)
	}
	if strings.HasPrefix(dateStr, "last ") {
		return parseRelativeDate(dateStr, -1)
	}
	if strings.HasPrefix(dateStr, "next ") {
		return parseRelativeDate(dateStr, 1)
	}

	formats := []string{
		"2006-01-02",
		"01/02/2006",
		"02/01/2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

func parseRelativeDate(dateStr string, weekOffset int) (time.Time, error) {
	now := time.Now()

	if strings.Contains(dateStr, "week") {
		startOfWeek := now.AddDate(0, 0, -int(now.Weekday())+weekOffset*7)
		return startOfWeek, nil
	}

	if strings.Contains(dateStr, "month") {
		if weekOffset == 0 {
			return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
		}
		return now.AddDate(0, weekOffset, 0), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse relative date: %s", dateStr)
}

// ParsePeriod resolves a named period ("this month", "last week",
// "January 2025") into an inclusive start/end date pair.
func ParsePeriod(period string) (time.Time, time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	now := time.Now()

	if period == "this month" || period == "current month" {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, -1)
		return start, end, nil
	}

	if period == "last month" {
		start := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, -1)
		return start, end, nil
	}

	if period == "this week" {
		start := now.AddDate(0, 0, -int(now.Weekday()))
		end := start.AddDate(0, 0, 6)
		return start, end, nil
	}

	if period == "last week" {
		start := now.AddDate(0, 0, -int(now.Weekday())-7)
		end := start.AddDate(0, 0, 6)
		return start, end, nil
	}

	monthYear := regexp.MustCompile(`(\w+)\s+(\d{4})`)
	if matches := monthYear.FindStringSubmatch(period); len(matches) == 3 {
		monthName := matches[1]
		yearStr := matches[2]

		month, err := parseMonth(monthName)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		year, err := strconv.Atoi(yearStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid year: %s", yearStr)
		}

		start := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())
		end := start.AddDate(0, 1, -1)
		return start, end, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("unable to parse period: %s", period)
}

func parseMonth(monthStr string) (time.Month, error) {
	monthStr = strings.ToLower(monthStr)
	months := map[string]time.Month{
		"january":   time.January,
		"february":  time.February,
		"march":     time.March,
		"april":     time.April,
		"may":       time.May,
		"june":      time.June,
		"july":      time.July,
		"august":    time.August,
		"september": time.September,
		"october":   time.October,
		"november":  time.November,
		"december":  time.December,
		"jan":       time.January,
		"feb":       time.February,
		"mar":       time.March,
		"apr":       time.April,
		"jun":       time.June,
		"jul":       time.July,
		"aug":       time.August,
		"sep":       time.September,
		"oct":       time.October,
		"nov":       time.November,
		"dec":       time.December,
	}

	if month, ok := months[monthStr]; ok {
		return month, nil
	}

	return 0, fmt.Errorf("invalid month: %s", monthStr)
}
