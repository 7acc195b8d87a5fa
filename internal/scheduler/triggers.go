package scheduler

import "time"

// nextMonthly returns the next occurrence of day/hour:minute strictly after
// now. Days are capped at 28 upstream so every month has the target day.
func nextMonthly(now time.Time, day, hour, minute int) time.Time {
	due := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, now.Location())
	if !due.After(now) {
		due = time.Date(now.Year(), now.Month()+1, day, hour, minute, 0, 0, now.Location())
	}
	return due
}

// nextDaily returns the next occurrence of hour:minute strictly after now.
func nextDaily(now time.Time, hour, minute int) time.Time {
	due := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !due.After(now) {
		due = due.AddDate(0, 0, 1)
	}
	return due
}

// nextWeekly returns the next occurrence of weekday at hour:minute strictly
// after now.
func nextWeekly(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	due := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	offset := (int(weekday) - int(due.Weekday()) + 7) % 7
	due = due.AddDate(0, 0, offset)
	if !due.After(now) {
		due = due.AddDate(0, 0, 7)
	}
	return due
}
