package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// parseDateTime accepts RFC3339, a bare date, or a date-time without zone.
// Zone-less values are read as UTC.
func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// queryTimeRange parses the optional from/to query parameters.
// A bare "to" date covers the whole day.
func queryTimeRange(c *gin.Context) (from, to *time.Time, err error) {
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		t, err := parseDateTime(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("from: %w", err)
		}
		from = &t
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		t, err := parseDateTime(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("to: %w", err)
		}
		if len(raw) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	if from != nil && to != nil && to.Before(*from) {
		return nil, nil, fmt.Errorf("to must not be before from")
	}
	return from, to, nil
}
