package application

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage form of card dates.
const DateLayout = "2006-01-02"

// DateFormatMessage is reported for malformed card dates.
const DateFormatMessage = "날짜 형식이 올바르지 않습니다. YYYY-MM-DD 형식을 사용하세요."

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("date", DateFormatMessage)
		return time.Time{}, vErr
	}
	return date, nil
}

// parseOptionalDate returns nil for an empty value.
func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	date, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// FormatDate renders a card date.
func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// nextUpdatedAt returns now, or the smallest later instant when the clock has
// not moved past the previous write.
func nextUpdatedAt(previous, now time.Time) time.Time {
	if now.After(previous) {
		return now
	}
	return previous.Add(time.Microsecond)
}
