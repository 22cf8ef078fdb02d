package deadline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsable is returned when a text does not match any supported deadline expression.
var ErrUnparsable = errors.New("cannot parse deadline")

const (
	defaultHour = 9
	// maxOffset keeps "in N units" away from time.Duration overflow.
	maxOffset = 10 * 365 * 24 * time.Hour
)

var periods = map[string][2]int{
	"morning":   {9, 0},
	"afternoon": {14, 0},
	"evening":   {19, 0},
	"night":     {22, 0},
	"tonight":   {22, 0},
}

var weekdays = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

const qualifier = `(?:\s+(?:(\d{1,2}):(\d{2})|(morning|afternoon|evening|night|tonight)))?`

var (
	reClock    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	reDateTime = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
	reDate     = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reOffset   = regexp.MustCompile(`^in\s*(\d+)\s*(h|hr|hour|hours|m|min|minute|minutes|d|day|days|w|week|weeks)$`)
	reDay      = regexp.MustCompile(`^(today|tomorrow)` + qualifier + `$`)
	reWeekday  = regexp.MustCompile(`^(next\s+)?(mon|tue|wed|thu|fri|sat|sun|monday|tuesday|wednesday|thursday|friday|saturday|sunday)` + qualifier + `$`)
)

// Resolver turns typed deadline expressions into instants in the configured zone.
// It has no state besides the zone and never reads the wall clock itself.
type Resolver struct {
	zone Zone
}

func NewResolver(zone Zone) *Resolver {
	return &Resolver{zone: zone}
}

func (r *Resolver) Zone() Zone {
	return r.zone
}

// Resolve parses text relative to now. The first matching rule wins:
//
//	21:00                 today if still ahead, else tomorrow
//	2025-08-31 19:00      that instant
//	2025-08-31            that day at 09:00
//	in 2h / in 30m / in 3d / in 1w
//	today|tomorrow [HH:MM|morning|afternoon|evening|night|tonight]
//	tonight
//	[next] mon|monday ... [HH:MM|period]
//
// Anything else yields ErrUnparsable.
func (r *Resolver) Resolve(text string, now time.Time) (time.Time, error) {
	txt := strings.ToLower(strings.TrimSpace(text))
	now = r.zone.In(now)

	if m := reClock.FindStringSubmatch(txt); m != nil {
		hh, mm, ok := clock(m[1], m[2])
		if !ok {
			return time.Time{}, unparsable(text)
		}
		return r.rollForward(now, now, hh, mm), nil
	}

	if m := reDateTime.FindStringSubmatch(txt); m != nil {
		t, ok := r.civil(m[1], m[2], m[3], m[4], m[5])
		if !ok {
			return time.Time{}, unparsable(text)
		}
		return t, nil
	}

	if m := reDate.FindStringSubmatch(txt); m != nil {
		t, ok := r.civil(m[1], m[2], m[3], "9", "00")
		if !ok {
			return time.Time{}, unparsable(text)
		}
		return t, nil
	}

	if m := reOffset.FindStringSubmatch(txt); m != nil {
		d, ok := offset(m[1], m[2])
		if !ok {
			return time.Time{}, unparsable(text)
		}
		return now.Add(d), nil
	}

	if m := reDay.FindStringSubmatch(txt); m != nil {
		hh, mm, ok := timeOfDay(m[2], m[3], m[4])
		if !ok {
			return time.Time{}, unparsable(text)
		}
		base := now
		if m[1] == "tomorrow" {
			base = now.AddDate(0, 0, 1)
		}
		return r.rollForward(now, base, hh, mm), nil
	}

	if txt == "tonight" {
		p := periods["tonight"]
		return r.rollForward(now, now, p[0], p[1]), nil
	}

	if m := reWeekday.FindStringSubmatch(txt); m != nil {
		hh, mm, ok := timeOfDay(m[3], m[4], m[5])
		if !ok {
			return time.Time{}, unparsable(text)
		}
		next := m[1] != ""
		qualified := m[3] != "" || m[5] != ""
		target := weekdays[m[2][:3]]

		ahead := (int(target) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			if next || !qualified {
				ahead = 7
			} else if t := r.zone.at(now.Year(), now.Month(), now.Day(), hh, mm); t.After(now) {
				return t, nil
			} else {
				ahead = 7
			}
		}
		return r.zone.at(now.Year(), now.Month(), now.Day()+ahead, hh, mm), nil
	}

	return time.Time{}, unparsable(text)
}

// rollForward returns base's day at hh:mm, moved one day later if that is not after now.
func (r *Resolver) rollForward(now, base time.Time, hh, mm int) time.Time {
	t := r.zone.at(base.Year(), base.Month(), base.Day(), hh, mm)
	if !t.After(now) {
		t = r.zone.at(base.Year(), base.Month(), base.Day()+1, hh, mm)
	}
	return t
}

// civil validates the fields instead of letting time.Date normalize 2025-02-30 into March.
func (r *Resolver) civil(year, month, day, hour, minute string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	mo, err := strconv.Atoi(month)
	if err != nil || mo < 1 || mo > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > daysIn(time.Month(mo), y) {
		return time.Time{}, false
	}
	hh, mm, ok := clock(hour, minute)
	if !ok {
		return time.Time{}, false
	}
	return r.zone.at(y, time.Month(mo), d, hh, mm), true
}

func clock(hour, minute string) (int, int, bool) {
	hh, err := strconv.Atoi(hour)
	if err != nil || hh < 0 || hh > 23 {
		return 0, 0, false
	}
	mm, err := strconv.Atoi(minute)
	if err != nil || mm < 0 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}

// timeOfDay reads the optional qualifier groups; no qualifier means 09:00.
func timeOfDay(hour, minute, period string) (int, int, bool) {
	switch {
	case hour != "":
		return clock(hour, minute)
	case period != "":
		p := periods[period]
		return p[0], p[1], true
	default:
		return defaultHour, 0, true
	}
}

func offset(count, unit string) (time.Duration, bool) {
	n, err := strconv.ParseInt(count, 10, 64)
	if err != nil {
		return 0, false
	}
	var step time.Duration
	switch unit {
	case "h", "hr", "hour", "hours":
		step = time.Hour
	case "m", "min", "minute", "minutes":
		step = time.Minute
	case "d", "day", "days":
		step = 24 * time.Hour
	default:
		step = 7 * 24 * time.Hour
	}
	if n > int64(maxOffset/step) {
		return 0, false
	}
	return time.Duration(n) * step, true
}

func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func unparsable(text string) error {
	return fmt.Errorf("%w: %q", ErrUnparsable, strings.TrimSpace(text))
}
