package followup

import "time"

// BusinessHours is the operating window follow-ups are clamped into.
// Weekends are skipped entirely.
type BusinessHours struct {
	StartHour int
	EndHour   int
	Location  *time.Location
}

// Clamp nudges t forward to the next moment inside business hours. A time
// already inside the window is returned unchanged.
func (h BusinessHours) Clamp(t time.Time) time.Time {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)

	for {
		switch local.Weekday() {
		case time.Saturday:
			local = startOfHour(local.AddDate(0, 0, 2), h.StartHour)
			continue
		case time.Sunday:
			local = startOfHour(local.AddDate(0, 0, 1), h.StartHour)
			continue
		}

		if local.Hour() < h.StartHour {
			local = startOfHour(local, h.StartHour)
			continue
		}
		if local.Hour() >= h.EndHour {
			local = startOfHour(local.AddDate(0, 0, 1), h.StartHour)
			continue
		}
		return local
	}
}

func startOfHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}

// Policy is the cadence table: attempt 1 lands tens of minutes out,
// attempt 2 about a day later, later attempts space out further. The values
// are business policy, injected from configuration.
type Policy struct {
	AttemptDelays []time.Duration
	Hours         BusinessHours
}

// DelayFor returns the delay for a 1-indexed attempt. Attempts beyond the
// table reuse the last entry.
func (p Policy) DelayFor(attempt int) time.Duration {
	if len(p.AttemptDelays) == 0 {
		return 24 * time.Hour
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(p.AttemptDelays) {
		attempt = len(p.AttemptDelays)
	}
	return p.AttemptDelays[attempt-1]
}
