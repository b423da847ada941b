package timex

import "time"

// DBLayout is the textual timestamp layout stored in SQLite TEXT columns.
// It sorts lexicographically in chronological order.
const DBLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DateLayout is the calendar date layout used for birth dates.
const DateLayout = "2006-01-02"

// FormatDB renders t in UTC using DBLayout.
func FormatDB(t time.Time) string {
	return t.UTC().Format(DBLayout)
}

// ParseDB parses a value produced by FormatDB (or any RFC 3339 timestamp).
func ParseDB(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
