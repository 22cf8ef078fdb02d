package deadline

import (
	"fmt"
	"strings"
	"time"
)

const (
	// StorageLayout is how deadlines are persisted: bot-local wall time, minute precision.
	StorageLayout = "2006-01-02 15:04"
	// DateLayout is the calendar date format used for XP buckets.
	DateLayout = "2006-01-02"
)

// Zone is the bot's configured time zone. Every conversion between wall-clock
// strings and absolute instants goes through it.
type Zone struct {
	loc *time.Location
}

// LoadZone resolves an IANA zone name such as "Asia/Tashkent".
func LoadZone(name string) (Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Zone{}, fmt.Errorf("empty time zone name")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Zone{}, fmt.Errorf("load zone %q: %w", name, err)
	}
	return Zone{loc: loc}, nil
}

// NewZone wraps an already loaded location. A nil location means UTC.
func NewZone(loc *time.Location) Zone {
	if loc == nil {
		loc = time.UTC
	}
	return Zone{loc: loc}
}

func (z Zone) Location() *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

func (z Zone) String() string {
	return z.Location().String()
}

// In converts t into the zone.
func (z Zone) In(t time.Time) time.Time {
	return t.In(z.Location())
}

// Format renders t as a persisted deadline string.
func (z Zone) Format(t time.Time) string {
	return z.In(t).Format(StorageLayout)
}

// Parse reads a persisted deadline string back into an instant.
func (z Zone) Parse(s string) (time.Time, error) {
	t, err := time.ParseInLocation(StorageLayout, strings.TrimSpace(s), z.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse deadline %q: %w", s, err)
	}
	return t, nil
}

// Date returns the calendar date of t in the zone.
func (z Zone) Date(t time.Time) string {
	return z.In(t).Format(DateLayout)
}

// at builds the instant for a wall-clock time on the given local day.
// time.Date normalizes overflowing days, so day+1 crosses month ends.
func (z Zone) at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, z.Location())
}
