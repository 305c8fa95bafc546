package schedule

import (
	"log/slog"
	"time"
)

// OffsetSource says how a timezone's UTC offset was resolved. Fallback
// resolution silently changes scheduling accuracy, so it is reported as a
// distinguishable value rather than hidden inside the computation.
type OffsetSource string

const (
	SourceZoneinfo OffsetSource = "zoneinfo"
	SourceFallback OffsetSource = "fallback"
	SourceUTC      OffsetSource = "utc"
)

// fallbackOffsets covers common zones when the system tzdata is unusable.
// Values are standard-time offsets in minutes; DST is not modeled here.
var fallbackOffsets = map[string]int{
	"America/Los_Angeles": -8 * 60,
	"America/New_York":    -5 * 60,
	"America/Chicago":     -6 * 60,
	"America/Denver":      -7 * 60,
	"Europe/London":       0,
	"Europe/Paris":        1 * 60,
	"Asia/Tokyo":          9 * 60,
	"UTC":                 0,
}

// ResolveOffset returns the UTC offset in minutes for the named zone at
// the given instant. Resolution fails soft: zoneinfo, then the fixed
// fallback table, then UTC+0.
func ResolveOffset(tz string, at time.Time) (int, OffsetSource) {
	if tz == "" {
		return 0, SourceUTC
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		_, secs := at.In(loc).Zone()
		return secs / 60, SourceZoneinfo
	}
	if min, ok := fallbackOffsets[tz]; ok {
		return min, SourceFallback
	}
	return 0, SourceUTC
}

// IsDue reports whether the prompt should fire at now (UTC). Disabled
// prompts and prompts with no computed next-run instant are never due.
func IsDue(p *Prompt, now time.Time) bool {
	if !p.Enabled || p.NextRunAt == nil {
		return false
	}
	return !p.NextRunAt.After(now)
}

// ComputeNextRun returns the next UTC instant the prompt should fire,
// evaluated at now. The configured local time-of-day is converted using
// the zone's offset at the evaluation instant; DST transitions are
// honored here because the caller recomputes after every firing.
func ComputeNextRun(p *Prompt, now time.Time) time.Time {
	now = now.UTC()

	hour, minute, err := parseTimeOfDay(p.TimeOfDay)
	if err != nil {
		slog.Warn("invalid time of day, defaulting to 09:00",
			"prompt_id", p.ID, "time_of_day", p.TimeOfDay)
		hour, minute = 9, 0
	}

	offsetMin, source := ResolveOffset(p.Timezone, now)
	if source != SourceZoneinfo && p.Timezone != "" && p.Timezone != "UTC" {
		slog.Warn("timezone resolved via fallback",
			"prompt_id", p.ID, "timezone", p.Timezone,
			"source", string(source), "offset_minutes", offsetMin)
	}

	// Convert the local wall time to a UTC wall time plus day carry.
	utcTotal := hour*60 + minute - offsetMin
	dayOffset := 0
	for utcTotal < 0 {
		utcTotal += 24 * 60
		dayOffset--
	}
	for utcTotal >= 24*60 {
		utcTotal -= 24 * 60
		dayOffset++
	}
	utcHour, utcMinute := utcTotal/60, utcTotal%60

	// Anchor at the first UTC instant with that wall time strictly after
	// now. Starting a day back keeps an already-future same-day instant
	// from being skipped.
	anchor := time.Date(now.Year(), now.Month(), now.Day(), utcHour, utcMinute, 0, 0, time.UTC)
	anchor = anchor.AddDate(0, 0, -1)
	for !anchor.After(now) {
		anchor = anchor.AddDate(0, 0, 1)
	}

	switch p.Schedule {
	case Weekly:
		// Prompt weekday is 0=Sunday..6=Saturday in the prompt's zone;
		// the day carry maps it onto the UTC weekday the firing lands on.
		target := (p.DayOfWeek + dayOffset + 7) % 7
		delta := (target - int(anchor.Weekday()) + 7) % 7
		return anchor.AddDate(0, 0, delta)

	case Monthly:
		next := withDayClamped(anchor, p.DayOfMonth)
		if !next.After(now) {
			year, month := next.Year(), next.Month()+1
			if next.Month() == time.December {
				year, month = next.Year()+1, time.January
			}
			next = withDayClamped(time.Date(year, month, 1, utcHour, utcMinute, 0, 0, time.UTC), p.DayOfMonth)
		}
		return next

	case Yearly:
		next := time.Date(now.Year(), time.January, 1, utcHour, utcMinute, 0, 0, time.UTC)
		if !next.After(now) {
			next = time.Date(now.Year()+1, time.January, 1, utcHour, utcMinute, 0, 0, time.UTC)
		}
		return next

	default: // daily
		return anchor
	}
}

// withDayClamped sets the day-of-month, clamping to the month's last day
// so day 31 in a 30-day month schedules on the 30th instead of rolling
// into the next month.
func withDayClamped(t time.Time, day int) time.Time {
	if day < 1 {
		day = 1
	}
	last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), 0, 0, time.UTC)
}
