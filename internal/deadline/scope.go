package deadline

import (
	"strings"
	"time"
)

// Scope is the coarse deadline bucket a user picks when adding tasks.
type Scope string

const (
	ScopeFree  Scope = "free"
	ScopeToday Scope = "today"
	ScopeWeek  Scope = "week"
	ScopeMonth Scope = "month"
)

const scopeHour = 22

// ParseScope maps user or callback input to a Scope. Unknown values are free.
func ParseScope(s string) Scope {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeToday:
		return ScopeToday
	case ScopeWeek:
		return ScopeWeek
	case ScopeMonth:
		return ScopeMonth
	default:
		return ScopeFree
	}
}

// Label is the human-readable name of the scope.
func (s Scope) Label() string {
	switch s {
	case ScopeToday:
		return "🌞 Today"
	case ScopeWeek:
		return "🗓️ This Week"
	case ScopeMonth:
		return "📆 This Month"
	default:
		return "📝 No deadline"
	}
}

// ForScope derives the default deadline for a scope. The result is always
// strictly after now. Free scope has no deadline and reports ok=false.
func (r *Resolver) ForScope(scope Scope, now time.Time) (time.Time, bool) {
	now = r.zone.In(now)
	y, m, d := now.Date()

	switch scope {
	case ScopeToday:
		t := r.zone.at(y, m, d, scopeHour, 0)
		if !t.After(now) {
			t = r.zone.at(y, m, d+1, scopeHour, 0)
		}
		return t, true
	case ScopeWeek:
		// Weeks start on Monday, so Sunday closes the week.
		sinceMonday := (int(now.Weekday()) + 6) % 7
		sunday := d - sinceMonday + 6
		t := r.zone.at(y, m, sunday, scopeHour, 0)
		if !t.After(now) {
			t = r.zone.at(y, m, sunday+7, scopeHour, 0)
		}
		return t, true
	case ScopeMonth:
		// Day 0 of the following month is the last day of this one.
		t := r.zone.at(y, m+1, 0, scopeHour, 0)
		if !t.After(now) {
			t = r.zone.at(y, m+2, 0, scopeHour, 0)
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// Period returns the calendar span [start, end) of the scope that contains
// now: the local day, the Monday-to-Sunday week or the calendar month. Free
// scope has no span and reports ok=false.
func (r *Resolver) Period(scope Scope, now time.Time) (start, end time.Time, ok bool) {
	now = r.zone.In(now)
	y, m, d := now.Date()

	switch scope {
	case ScopeToday:
		return r.zone.at(y, m, d, 0, 0), r.zone.at(y, m, d+1, 0, 0), true
	case ScopeWeek:
		monday := d - (int(now.Weekday())+6)%7
		return r.zone.at(y, m, monday, 0, 0), r.zone.at(y, m, monday+7, 0, 0), true
	case ScopeMonth:
		return r.zone.at(y, m, 1, 0, 0), r.zone.at(y, m+1, 1, 0, 0), true
	default:
		return time.Time{}, time.Time{}, false
	}
}
