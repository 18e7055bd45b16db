package timeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/keyxmakerx/subtimeline/internal/apperror"
)

// DateLayout is the platform's calendar-date encoding.
const DateLayout = "2006-01-02"

// DisplayLayout renders a day the way the widget header shows it.
const DisplayLayout = "Mon Jan 02 2006"

// rangeValue is the platform's timeline column payload. Extra members such
// as changed_at are ignored on decode and never written.
type rangeValue struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Noon returns t's calendar day at 12:00 in t's own location. Every date the
// widget holds is normalised this way so that no offset between UTC-12 and
// UTC+14 can move it onto a neighbouring day.
func Noon(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
}

// ParseDate parses a YYYY-MM-DD string as noon on that day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, err
	}
	return Noon(d), nil
}

// FormatDate returns t's calendar day as YYYY-MM-DD, read from t's own wall
// clock. It never converts to UTC first.
func FormatDate(t time.Time) string {
	return Noon(t).Format(DateLayout)
}

// DisplayDate renders t's calendar day for humans.
func DisplayDate(t time.Time) string {
	return Noon(t).Format(DisplayLayout)
}

// DecodeRange converts a stored timeline column value into a ParentRange
// in loc. An absent, empty, null, or unreadable value is a MissingValue
// error.
func DecodeRange(raw *string, loc *time.Location) (ParentRange, error) {
	if raw == nil {
		return ParentRange{}, apperror.NewMissingValue("Parent timeline is empty")
	}
	s := strings.TrimSpace(*raw)
	if s == "" || s == "null" || s == "{}" {
		return ParentRange{}, apperror.NewMissingValue("Parent timeline is empty")
	}

	var v rangeValue
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return ParentRange{}, missingValue("Parent timeline value is unreadable", err)
	}
	if v.From == "" || v.To == "" {
		return ParentRange{}, apperror.NewMissingValue("Parent timeline is empty")
	}

	start, err := ParseDate(v.From, loc)
	if err != nil {
		return ParentRange{}, missingValue("Parent timeline start date is unreadable", err)
	}
	end, err := ParseDate(v.To, loc)
	if err != nil {
		return ParentRange{}, missingValue("Parent timeline end date is unreadable", err)
	}
	return ParentRange{Start: start, End: end}, nil
}

// EncodeRange converts a complete selection into the platform's timeline
// column value, e.g. {"from":"2024-01-10","to":"2024-01-15"}.
func EncodeRange(sel Selection) (string, error) {
	if !sel.Complete() {
		return "", apperror.NewValidation("Select both a start and an end date")
	}
	b, err := json.Marshal(rangeValue{
		From: FormatDate(*sel.Start),
		To:   FormatDate(*sel.End),
	})
	if err != nil {
		return "", fmt.Errorf("encoding timeline value: %w", err)
	}
	return string(b), nil
}

func missingValue(message string, cause error) *apperror.AppError {
	e := apperror.NewMissingValue(message)
	e.Internal = cause
	return e
}
