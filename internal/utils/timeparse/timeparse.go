// Package timeparse handles the owner-command time formats: bare
// durations like 6h or 30d and explicit datetime ranges.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const dateTimeLayout = "02.01.2006 15:04"

var (
	durationRe = regexp.MustCompile(`^(\d+)([smhd])$`)
	rangeRe    = regexp.MustCompile(`^(@\S+)\s+(\d{2}\.\d{2}\.\d{4}\s+\d{2}:\d{2})\s+(?:до|to)\s+(\d{2}\.\d{2}\.\d{4}\s+\d{2}:\d{2})$`)
)

// ParseDuration parses strings like 348s, 30m, 6h, 1d. Returns false on
// anything else.
func ParseDuration(s string) (time.Duration, bool) {
	match := durationRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if match == nil {
		return 0, false
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	unit := time.Second
	switch match[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(value) * unit, true
}

// ParseDeadline converts a duration string into an absolute end time.
func ParseDeadline(s string, now time.Time) (time.Time, bool) {
	d, ok := ParseDuration(s)
	if !ok {
		return time.Time{}, false
	}
	return now.Add(d), true
}

// ParseChannelRange parses "@channel DD.MM.YYYY HH:MM до DD.MM.YYYY HH:MM".
func ParseChannelRange(s string) (channel string, start, end time.Time, ok bool) {
	match := rangeRe.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return "", time.Time{}, time.Time{}, false
	}
	start, err := time.ParseInLocation(dateTimeLayout, match[2], time.Local)
	if err != nil {
		return "", time.Time{}, time.Time{}, false
	}
	end, err = time.ParseInLocation(dateTimeLayout, match[3], time.Local)
	if err != nil {
		return "", time.Time{}, time.Time{}, false
	}
	if !end.After(start) {
		return "", time.Time{}, time.Time{}, false
	}
	return match[1], start, end, true
}

// FormatDateTime renders a timestamp in the owner-facing layout.
func FormatDateTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}
