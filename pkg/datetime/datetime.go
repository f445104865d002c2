// Package datetime provides parsing for the human friendly duration strings used
// by moderator facing commands, eg. "1w 3d 5h", "10 minutes", "30s".
package datetime

import (
	"errors"
	"regexp"
	"time"
)

var (
	ErrInvalidDuration  = errors.New("invalid duration, use times with their corresponding units [s|m|h|d|w]")
	ErrDurationTooLarge = errors.New("duration is unreasonably large")
)

// maxUserDuration is an upper bound to catch nonsense inputs like "99999999w".
const maxUserDuration = time.Hour * 24 * 365 * 10

var durationTokens = regexp.MustCompile(`(?i)(\d+)\s*([a-z]+)`)

// ParseUserDuration converts a moderator supplied duration string into a time.Duration.
// Multiple components may be combined ("1w 2d 3h"). Repeated units keep the last value.
func ParseUserDuration(arg string) (time.Duration, error) {
	matches := durationTokens.FindAllStringSubmatch(arg, -1)
	if len(matches) == 0 {
		return 0, ErrInvalidDuration
	}

	units := map[string]int64{}

	for _, match := range matches {
		value, unit, ok := parseToken(match[1], match[2])
		if !ok {
			return 0, ErrInvalidDuration
		}

		units[unit] = value
	}

	var total time.Duration
	total += time.Duration(units["weeks"]) * time.Hour * 24 * 7
	total += time.Duration(units["days"]) * time.Hour * 24
	total += time.Duration(units["hours"]) * time.Hour
	total += time.Duration(units["minutes"]) * time.Minute
	total += time.Duration(units["seconds"]) * time.Second

	if total > maxUserDuration || total < 0 {
		return 0, ErrDurationTooLarge
	}

	return total, nil
}

func parseToken(digits string, unit string) (int64, string, bool) {
	var value int64
	for _, ch := range digits {
		value = value*10 + int64(ch-'0')
		if value > 1<<40 {
			return 0, "", false
		}
	}

	switch unit {
	case "w", "week", "weeks":
		return value, "weeks", true
	case "d", "day", "days":
		return value, "days", true
	case "h", "hr", "hrs", "hour", "hours":
		return value, "hours", true
	case "m", "min", "mins", "minute", "minutes":
		return value, "minutes", true
	case "s", "sec", "secs", "second", "seconds":
		return value, "seconds", true
	default:
		return 0, "", false
	}
}
