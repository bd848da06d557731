package schedule

import "time"

// Frequency is the recurring interval between generated invoices.
type Frequency string

const (
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Yearly     Frequency = "yearly"
)

// Months returns the period length in months. Unknown values default to
// monthly so a bad row degrades to the shortest (safest) cycle.
func (f Frequency) Months() int {
	switch f {
	case Quarterly:
		return 3
	case Semiannual:
		return 6
	case Yearly:
		return 12
	default:
		return 1
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Quarterly, Semiannual, Yearly:
		return true
	}
	return false
}

// NextDueDate advances prev by one billing period and clamps the result to
// payDay. If the target month is shorter than payDay the last day of that
// month is used, so a day-31 contract bills on Feb 28 (29 in leap years).
// Time-of-day is discarded; due dates are calendar dates at midnight UTC.
func NextDueDate(prev time.Time, f Frequency, payDay int) time.Time {
	if payDay < 1 {
		payDay = prev.Day()
	}
	if payDay > 31 {
		payDay = 31
	}

	y, m, _ := prev.UTC().Date()
	m += time.Month(f.Months())
	for m > 12 {
		m -= 12
		y++
	}
	return time.Date(y, m, ClampDay(y, m, payDay), 0, 0, 0, 0, time.UTC)
}

// ClampDay limits day to the number of days in (year, month).
func ClampDay(year int, month time.Month, day int) int {
	last := daysIn(year, month)
	if day > last {
		return last
	}
	return day
}

// ElapsedPeriods counts whole billing periods between due and now.
// Returns 0 when now is not past due.
func ElapsedPeriods(due, now time.Time, f Frequency) int {
	if !now.After(due) {
		return 0
	}
	periods := 0
	cursor := due
	for {
		next := NextDueDate(cursor, f, due.Day())
		if next.After(now) {
			return periods
		}
		periods++
		cursor = next
	}
}

func daysIn(year int, month time.Month) int {
	// day 0 of the next month is the last day of this month
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
