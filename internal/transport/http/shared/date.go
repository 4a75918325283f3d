package shared

import "time"

const dateOnly = "2006-01-02"

// ParseDate parses an RFC3339 timestamp or a bare YYYY-MM-DD date.
// An empty value parses to the zero time without error.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(dateOnly, value)
}
