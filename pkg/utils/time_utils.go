package utils

import (
	"fmt"
	"strings"
	"time"

	"street-dispatch/internal/models"
)

// Layouts without a zone are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseISOTime parses an ISO-8601 timestamp and normalises it to UTC.
func ParseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, models.NewValidationError("time", fmt.Sprintf("%q is not an ISO-8601 timestamp", s))
}

// FormatISOTime renders t the way ParseISOTime reads it back.
func FormatISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
