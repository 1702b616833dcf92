// Package sessions maps UTC timestamps to named trading sessions.
//
// Two independent tables coexist here and must not be unified:
// Classify answers "which session was this" using DST-correct New York
// wall-clock time, while MinutesSinceOpen answers "how far into a fixed
// UTC window" for feature extraction. They intentionally disagree near
// DST transitions.
package sessions

import (
	"time"

	"github.com/aristath/journal/internal/domain"
)

// newYork is loaded once at package init. The tz database is required
// for correct classification across US DST transitions; the fixed-zone
// fallback only matters on systems with no tzdata at all.
var newYork = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*60*60)
	}
	return loc
}()

// Classify maps a UTC instant to its trading session using New York
// civil time. First match wins; the 03:00 ET boundary resolves to
// london, not tokyo.
func Classify(t time.Time) domain.Session {
	et := t.In(newYork)
	etTime := float64(et.Hour()) + float64(et.Minute())/60.0

	switch {
	case etTime >= 3 && etTime < 8:
		return domain.SessionLondon
	case etTime >= 8 && etTime < 12:
		return domain.SessionNewYorkAM
	case etTime >= 12 && etTime < 17:
		return domain.SessionNewYorkPM
	case etTime >= 19 || etTime < 3:
		return domain.SessionTokyo
	default:
		return domain.SessionOffHours
	}
}

// Fixed UTC session windows used only for elapsed-time measurement.
// These do not need DST awareness: they measure offset within a fixed
// window, not which session a trade belongs to.
type utcWindow struct {
	name      string
	openHour  int
	closeHour int
}

var utcWindows = []utcWindow{
	{"overlap", 13, 16},
	{"london", 7, 16},
	{"new_york", 13, 22},
	{"tokyo", 0, 9},
}

// MinutesSinceOpen returns the minutes elapsed since the open of the
// fixed UTC window containing t, and the window's name. Returns
// (nil, "") when no window covers the hour.
func MinutesSinceOpen(t time.Time) (*float64, string) {
	utc := t.UTC()
	hour := utc.Hour()

	for _, w := range utcWindows {
		if hour >= w.openHour && hour < w.closeHour {
			mins := float64((hour-w.openHour)*60 + utc.Minute())
			return &mins, w.name
		}
	}

	return nil, ""
}

// displayNames maps stored session values to the labels shown in
// pattern categories. Legacy values new_york and overlap_london_ny
// still occur on old rows.
var displayNames = map[string]string{
	"tokyo":             "Tokyo",
	"london":            "London",
	"new_york_am":       "NY AM",
	"new_york_pm":       "NY PM",
	"off_hours":         "Off Hours",
	"new_york":          "New York",
	"overlap_london_ny": "London/NY Overlap",
}

// DisplayName returns the human-readable label for a stored session
// value. Unknown values pass through unchanged.
func DisplayName(session string) string {
	if name, ok := displayNames[session]; ok {
		return name
	}
	return session
}
