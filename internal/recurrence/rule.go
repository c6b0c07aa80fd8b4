package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Frequency is the closed set of supported repeat cadences. Rules carrying a
// FREQ value outside this set parse to FrequencyUnknown, which the calculator
// treats as "recurrence ended" rather than an error.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyUnknown Frequency = "UNKNOWN"
)

// Weekday ordinals follow the rule grammar: MO=0 .. SU=6.
var dayOrdinals = map[string]int{
	"MO": 0, "TU": 1, "WE": 2, "TH": 3, "FR": 4, "SA": 5, "SU": 6,
}

const untilLayout = "2006-01-02"

// ValidationError reports a rule segment that cannot be used.
type ValidationError struct {
	Field string
	Value string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("recurrence: invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// Config is the structured form of a recurrence rule. It is derived purely
// from the rule string and never persisted.
type Config struct {
	Freq       Frequency
	ByDay      []int // ascending weekday ordinals, MO=0..SU=6
	ByMonthDay int   // 1..31, 0 when absent
	Until      *time.Time
}

// Parse converts a rule string such as "FREQ=WEEKLY;BYDAY=MO,WE;UNTIL=2026-06-01"
// into a Config. Keys match case-insensitively; unknown keys and segments
// without "=" are ignored. Unknown BYDAY codes are silently dropped. A missing
// FREQ defaults to DAILY. BYMONTHDAY outside [1,31] and malformed UNTIL dates
// fail with a *ValidationError.
func Parse(rule string) (Config, error) {
	cfg := Config{Freq: FrequencyDaily}

	for _, segment := range strings.Split(rule, ";") {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "FREQ":
			switch value {
			case "DAILY":
				cfg.Freq = FrequencyDaily
			case "WEEKLY":
				cfg.Freq = FrequencyWeekly
			case "MONTHLY":
				cfg.Freq = FrequencyMonthly
			default:
				cfg.Freq = FrequencyUnknown
			}
		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				code = strings.TrimSpace(code)
				ord, known := dayOrdinals[code]
				if !known {
					continue
				}
				if !containsInt(cfg.ByDay, ord) {
					cfg.ByDay = append(cfg.ByDay, ord)
				}
			}
			sort.Ints(cfg.ByDay)
		case "BYMONTHDAY":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, &ValidationError{Field: "BYMONTHDAY", Value: value, Msg: "not an integer"}
			}
			if n < 1 || n > 31 {
				return Config{}, &ValidationError{Field: "BYMONTHDAY", Value: value, Msg: "must be in 1..31"}
			}
			cfg.ByMonthDay = n
		case "UNTIL":
			t, err := time.Parse(untilLayout, value)
			if err != nil {
				return Config{}, &ValidationError{Field: "UNTIL", Value: value, Msg: "expected YYYY-MM-DD"}
			}
			t = t.UTC()
			cfg.Until = &t
		}
	}
	return cfg, nil
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
