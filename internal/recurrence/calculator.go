package recurrence

import "time"

// NowFunc supplies the reference clock. The calculator falls back to it for
// "today" when a task has no due date; the generator uses it for the
// future-check on carried reminders. Injected so callers stay deterministic.
type NowFunc func() time.Time

// DateOnly truncates t to midnight UTC. All occurrence math is done on
// date-only values.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdayOrdinal maps Go's Sunday-based weekday onto the grammar's MO=0..SU=6.
func weekdayOrdinal(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextDate computes the next eligible occurrence strictly after base.
// The second return is false when the recurrence has ended: either the
// frequency is unrecognized or the candidate falls past UNTIL.
func (c Config) NextDate(base time.Time) (time.Time, bool) {
	base = DateOnly(base)
	var next time.Time

	switch c.Freq {
	case FrequencyDaily:
		next = base.AddDate(0, 0, 1)
	case FrequencyWeekly:
		if len(c.ByDay) == 0 {
			next = base.AddDate(0, 0, 7)
			break
		}
		cur := weekdayOrdinal(base)
		days := 0
		for _, target := range c.ByDay {
			if target > cur {
				days = target - cur
				break
			}
		}
		if days == 0 {
			// No configured day left this week; wrap to the earliest next week.
			days = 7 - cur + c.ByDay[0]
		}
		next = base.AddDate(0, 0, days)
	case FrequencyMonthly:
		target := c.ByMonthDay
		if target == 0 {
			target = base.Day()
		}
		year, month := base.Year(), base.Month()
		if month == time.December {
			year, month = year+1, time.January
		} else {
			month++
		}
		if last := daysInMonth(year, month); target > last {
			target = last
		}
		next = time.Date(year, month, target, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}, false
	}

	if c.Until != nil && next.After(*c.Until) {
		return time.Time{}, false
	}
	return next, true
}

// NextDueDate parses rule and computes the next due date after current.
// When current is nil the injected clock's date is used as the reference.
// A nil result with nil error means the recurrence has ended.
func NextDueDate(current *time.Time, rule string, now NowFunc) (*time.Time, error) {
	cfg, err := Parse(rule)
	if err != nil {
		return nil, err
	}
	var base time.Time
	if current != nil {
		base = *current
	} else {
		if now == nil {
			now = time.Now
		}
		base = now()
	}
	next, ok := cfg.NextDate(base)
	if !ok {
		return nil, nil
	}
	return &next, nil
}
