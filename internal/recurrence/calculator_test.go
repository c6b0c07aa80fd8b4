package recurrence

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedNow(t time.Time) NowFunc {
	return func() time.Time { return t }
}

func mustNext(t *testing.T, current *time.Time, rule string, now NowFunc) time.Time {
	t.Helper()
	next, err := NextDueDate(current, rule, now)
	if err != nil {
		t.Fatalf("next due date failed: %v", err)
	}
	if next == nil {
		t.Fatalf("expected a next date for rule %q", rule)
	}
	return *next
}

func TestDailyAdvancesOneDay(t *testing.T) {
	for _, d := range []time.Time{
		date(2025, 6, 10),
		date(2025, 12, 31), // year rollover
		date(2024, 2, 28),  // leap February
	} {
		got := mustNext(t, &d, "FREQ=DAILY", nil)
		if want := d.AddDate(0, 0, 1); !got.Equal(want) {
			t.Fatalf("daily from %s: got %s want %s", d, got, want)
		}
	}
}

func TestWeeklyWithoutByDay(t *testing.T) {
	d := date(2025, 6, 5)
	got := mustNext(t, &d, "FREQ=WEEKLY", nil)
	if want := date(2025, 6, 12); !got.Equal(want) {
		t.Fatalf("weekly: got %s want %s", got, want)
	}
}

func TestWeeklyByDayPicksNextConfiguredDay(t *testing.T) {
	// Thursday 2025-06-05 with MO,WE,FR: next is Friday 2025-06-06.
	d := date(2025, 6, 5)
	got := mustNext(t, &d, "FREQ=WEEKLY;BYDAY=MO,WE,FR", nil)
	if want := date(2025, 6, 6); !got.Equal(want) {
		t.Fatalf("byday: got %s want %s", got, want)
	}
}

func TestWeeklyByDayWrapsToNextWeek(t *testing.T) {
	// Friday 2025-06-06 with MO,WE,FR: wraps to Monday 2025-06-09.
	d := date(2025, 6, 6)
	got := mustNext(t, &d, "FREQ=WEEKLY;BYDAY=MO,WE,FR", nil)
	if want := date(2025, 6, 9); !got.Equal(want) {
		t.Fatalf("byday wrap: got %s want %s", got, want)
	}
}

func TestWeeklyByDaySundayReference(t *testing.T) {
	// Sunday 2025-06-08 (ordinal 6) is at or after every configured day.
	d := date(2025, 6, 8)
	got := mustNext(t, &d, "FREQ=WEEKLY;BYDAY=WE", nil)
	if want := date(2025, 6, 11); !got.Equal(want) {
		t.Fatalf("sunday wrap: got %s want %s", got, want)
	}
}

func TestMonthlyClampsToShortMonth(t *testing.T) {
	d := date(2025, 1, 15)
	got := mustNext(t, &d, "FREQ=MONTHLY;BYMONTHDAY=31", nil)
	if want := date(2025, 2, 28); !got.Equal(want) {
		t.Fatalf("monthly clamp: got %s want %s", got, want)
	}
}

func TestMonthlyLeapFebruary(t *testing.T) {
	d := date(2024, 1, 31)
	got := mustNext(t, &d, "FREQ=MONTHLY;BYMONTHDAY=31", nil)
	if want := date(2024, 2, 29); !got.Equal(want) {
		t.Fatalf("monthly leap clamp: got %s want %s", got, want)
	}
}

func TestMonthlyDecemberRollsToJanuary(t *testing.T) {
	d := date(2025, 12, 10)
	got := mustNext(t, &d, "FREQ=MONTHLY", nil)
	if want := date(2026, 1, 10); !got.Equal(want) {
		t.Fatalf("december rollover: got %s want %s", got, want)
	}
}

func TestMonthlyUsesReferenceDayWithoutByMonthDay(t *testing.T) {
	d := date(2025, 3, 31)
	got := mustNext(t, &d, "FREQ=MONTHLY", nil)
	if want := date(2025, 4, 30); !got.Equal(want) {
		t.Fatalf("reference-day clamp: got %s want %s", got, want)
	}
}

func TestUntilEndsRecurrence(t *testing.T) {
	d := date(2025, 6, 10)
	next, err := NextDueDate(&d, "FREQ=DAILY;UNTIL=2025-06-10", nil)
	if err != nil {
		t.Fatalf("next due date failed: %v", err)
	}
	if next != nil {
		t.Fatalf("expected recurrence to end, got %s", *next)
	}

	// Candidate exactly on UNTIL is still returned.
	got := mustNext(t, &d, "FREQ=DAILY;UNTIL=2025-06-11", nil)
	if want := date(2025, 6, 11); !got.Equal(want) {
		t.Fatalf("until boundary: got %s want %s", got, want)
	}
}

func TestUnknownFreqEndsRecurrence(t *testing.T) {
	d := date(2025, 6, 10)
	next, err := NextDueDate(&d, "FREQ=YEARLY", nil)
	if err != nil {
		t.Fatalf("next due date failed: %v", err)
	}
	if next != nil {
		t.Fatalf("unknown freq should end recurrence, got %s", *next)
	}
}

func TestNilDueDateUsesInjectedClock(t *testing.T) {
	now := fixedNow(time.Date(2025, 6, 10, 17, 45, 0, 0, time.UTC))
	got := mustNext(t, nil, "FREQ=DAILY", now)
	if want := date(2025, 6, 11); !got.Equal(want) {
		t.Fatalf("clock fallback: got %s want %s", got, want)
	}
}

func TestParseThenCalculateMatchesCombined(t *testing.T) {
	const rule = "FREQ=WEEKLY;BYDAY=MO,WE,FR;UNTIL=2026-01-01"
	d := date(2025, 6, 5)

	cfg, err := Parse(rule)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	fromConfig, ok := cfg.NextDate(d)
	if !ok {
		t.Fatal("config path: expected a next date")
	}

	combined := mustNext(t, &d, rule, nil)
	if !fromConfig.Equal(combined) {
		t.Fatalf("config path %s != combined path %s", fromConfig, combined)
	}
}

func TestNextDueDateDeterministic(t *testing.T) {
	d := date(2025, 6, 5)
	a := mustNext(t, &d, "FREQ=WEEKLY;BYDAY=MO,WE,FR", nil)
	b := mustNext(t, &d, "FREQ=WEEKLY;BYDAY=MO,WE,FR", nil)
	if !a.Equal(b) {
		t.Fatalf("identical inputs produced %s and %s", a, b)
	}
}
