package services

import (
	"time"

	"RedditSchedulerAPI/models"
)

const (
	scheduleDateLayout = "2006-01-02"

	// canonicalScheduleLayout is the only format written for human-readable
	// timestamps (published_at_local, failed_at_local).
	canonicalScheduleLayout = "January 2, 2006 at 3:04 PM"
)

var scheduleTimeLayouts = []string{"3:04 PM", "15:04"}

// legacyScheduleLayouts is the read-path compatibility list for posts whose
// schedule was persisted as a formatted local string before the canonical
// instant column existed. Ordered; first match wins.
var legacyScheduleLayouts = []string{
	"January 2th, 2006 at 3:04 PM",
	"January 2th, 2006 at 3:04 pm",
	"January 2th, 2006 at 15:04",
	"January 2, 2006 at 3:04 PM",
	"January 2, 2006 at 3:04 pm",
	"January 2, 2006 at 15:04",
}

// ResolveScheduleTime combines a date string ("2006-01-02"), a time string
// ("3:04 PM" or "15:04") and an IANA timezone name into a single instant.
// The instant is returned in the resolved location; callers store it in UTC
// together with the zone name.
func ResolveScheduleTime(dateStr, timeStr, timezone string) (time.Time, *time.Location, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, nil, &ValidationError{Field: "timezone", Message: "unknown timezone " + timezone}
	}

	for _, layout := range scheduleTimeLayouts {
		t, err := time.ParseInLocation(scheduleDateLayout+" "+layout, dateStr+" "+timeStr, loc)
		if err == nil {
			return t, loc, nil
		}
	}

	return time.Time{}, nil, &ValidationError{
		Field:   "date/time",
		Message: `expected date "YYYY-MM-DD" and time "H:MM AM/PM" or "HH:MM"`,
	}
}

// ParseLegacySchedule parses a stored schedule string against the ordered
// legacy layout list, interpreted in the given location.
func ParseLegacySchedule(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range legacyScheduleLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnrecognizedSchedule
}

// FormatLocal renders an instant as a local string in the given location
// using the canonical layout.
func FormatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(canonicalScheduleLayout)
}

// postLocation resolves a post's stored timezone, defaulting to UTC when the
// name is absent or invalid.
func postLocation(post *models.ScheduledPost) *time.Location {
	if post.UserTimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(post.UserTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// scheduleDue reports whether a post's target instant is at or before now.
// Canonical instants compare directly; legacy strings are parsed in the
// post's own zone and compared against now converted into that zone.
func scheduleDue(post *models.ScheduledPost, now time.Time, loc *time.Location) (bool, error) {
	if post.ScheduledFor != nil {
		return !post.ScheduledFor.After(now), nil
	}
	target, err := ParseLegacySchedule(post.ScheduledForText, loc)
	if err != nil {
		return false, err
	}
	return !target.After(now.In(loc)), nil
}
