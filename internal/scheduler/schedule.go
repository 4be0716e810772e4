package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule is either a cron expression or a fixed interval.
type Schedule struct {
	Kind     string        // "cron" or "interval"
	CronExpr string        // if Kind is cron
	Interval time.Duration // if Kind is interval
}

// ParseSchedule accepts a cron expression ("0 3 * * *", "@daily") or a Go
// duration ("6h").
func ParseSchedule(raw string) (Schedule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Schedule{}, fmt.Errorf("empty schedule")
	}

	if d, err := time.ParseDuration(raw); err == nil {
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval must be positive: %s", raw)
		}
		return Schedule{Kind: "interval", Interval: d}, nil
	}

	if !gronx.New().IsValid(raw) {
		return Schedule{}, fmt.Errorf("invalid schedule: not a duration or cron expression: %s", raw)
	}
	return Schedule{Kind: "cron", CronExpr: raw}, nil
}

// Next returns the first run strictly after ref.
func (s Schedule) Next(ref time.Time) (time.Time, error) {
	switch s.Kind {
	case "interval":
		return ref.Add(s.Interval), nil
	case "cron":
		return gronx.NextTickAfter(s.CronExpr, ref, false)
	default:
		return time.Time{}, fmt.Errorf("unknown schedule kind: %s", s.Kind)
	}
}

// String returns a human-readable description.
func (s Schedule) String() string {
	switch s.Kind {
	case "cron":
		return s.CronExpr
	case "interval":
		d := s.Interval
		switch {
		case d%time.Hour == 0:
			h := int(d.Hours())
			if h == 1 {
				return "Every hour"
			}
			return fmt.Sprintf("Every %d hours", h)
		case d%time.Minute == 0:
			m := int(d.Minutes())
			if m == 1 {
				return "Every minute"
			}
			return fmt.Sprintf("Every %d minutes", m)
		default:
			return fmt.Sprintf("Every %s", d)
		}
	default:
		return "never"
	}
}
