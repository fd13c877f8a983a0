// Package dates turns the dates guests write in chat into ISO calendar dates
// and decides whether a stay range can be queried.
package dates

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical ISO calendar date format.
const Layout = "2006-01-02"

var (
	ErrInvalidFormat           = errors.New("invalid date format")
	ErrCheckOutNotAfterCheckIn = errors.New("check-out must be after check-in")
	ErrDatesInPast             = errors.New("dates already passed")
)

var (
	isoPattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	spokenPattern  = regexp.MustCompile(`(\d{1,2})\s*[º°]?\s+de\s+(\p{L}+)(?:\s+de\s+(\d{4}))?`)
	numericPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)
)

var months = map[string]time.Month{
	"janeiro": time.January, "jan": time.January,
	"fevereiro": time.February, "fev": time.February,
	"março": time.March, "marco": time.March, "mar": time.March,
	"abril": time.April, "abr": time.April,
	"maio": time.May, "mai": time.May,
	"junho": time.June, "jun": time.June,
	"julho": time.July, "jul": time.July,
	"agosto": time.August, "ago": time.August,
	"setembro": time.September, "set": time.September,
	"outubro": time.October, "out": time.October,
	"novembro": time.November, "nov": time.November,
	"dezembro": time.December, "dez": time.December,
}

// Calendar normalizes and validates dates relative to "today" in the hotel's
// time zone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar returns a calendar for loc. A nil now uses the wall clock.
func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// Today returns the current calendar date at midnight in the calendar's zone.
func (c *Calendar) Today() time.Time {
	t := c.now().In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// Parse reads an ISO date in the calendar's zone.
func (c *Calendar) Parse(iso string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(iso), c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: expected YYYY-MM-DD, got %q", ErrInvalidFormat, iso)
	}
	return t, nil
}

// Normalize converts "15 de dezembro", "15/12" or an ISO date into an ISO
// date. Without an explicit year the next occurrence is used: this year,
// unless the day has already passed.
func (c *Calendar) Normalize(text string) (string, error) {
	raw := strings.TrimSpace(text)
	if isoPattern.MatchString(raw) {
		if _, err := c.Parse(raw); err != nil {
			return "", err
		}
		return raw, nil
	}

	lower := strings.ToLower(raw)
	var dayStr, monthStr, yearStr string
	var month time.Month

	if m := spokenPattern.FindStringSubmatch(lower); m != nil {
		dayStr, monthStr, yearStr = m[1], m[2], m[3]
		var ok bool
		if month, ok = months[monthStr]; !ok {
			return "", fmt.Errorf("%w: unknown month %q", ErrInvalidFormat, monthStr)
		}
	} else if m := numericPattern.FindStringSubmatch(lower); m != nil {
		dayStr, monthStr, yearStr = m[1], m[2], m[3]
		n, _ := strconv.Atoi(monthStr)
		if n < 1 || n > 12 {
			return "", fmt.Errorf("%w: unknown month %q", ErrInvalidFormat, monthStr)
		}
		month = time.Month(n)
	} else {
		return "", fmt.Errorf("%w: expected \"15 de dezembro\" or YYYY-MM-DD, got %q", ErrInvalidFormat, text)
	}

	day, _ := strconv.Atoi(dayStr)
	today := c.Today()

	year := today.Year()
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	} else if month < today.Month() || (month == today.Month() && day < today.Day()) {
		year++
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, c.loc)
	if date.Day() != day || date.Month() != month {
		return "", fmt.Errorf("%w: %d/%d does not exist", ErrInvalidFormat, day, month)
	}
	return date.Format(Layout), nil
}

// Status classifies a validation outcome.
type Status int

const (
	StatusValid Status = iota
	StatusInvalid
	StatusSuggestion
	StatusMalformed
)

// Validation is the result of checking a stay range.
type Validation struct {
	Status   Status
	Err      error
	Reason   string
	CheckIn  string
	CheckOut string
	// Suggested range when the given one lies in the past but the same dates
	// next year do not.
	SuggestedCheckIn  string
	SuggestedCheckOut string
}

func (v Validation) Valid() bool {
	return v.Status == StatusValid
}

// Validate checks a stay range given as ISO dates.
func (c *Calendar) Validate(checkIn, checkOut string) Validation {
	v := Validation{CheckIn: checkIn, CheckOut: checkOut}

	in, err := c.Parse(checkIn)
	if err == nil {
		var out time.Time
		out, err = c.Parse(checkOut)
		if err == nil {
			return c.validateRange(v, in, out)
		}
	}

	v.Status = StatusMalformed
	v.Err = err
	v.Reason = "Formato de data inválido. Use o formato YYYY-MM-DD (ex: 2024-12-25)."
	return v
}

func (c *Calendar) validateRange(v Validation, in, out time.Time) Validation {
	if !out.After(in) {
		v.Status = StatusInvalid
		v.Err = ErrCheckOutNotAfterCheckIn
		v.Reason = fmt.Sprintf("A data de check-out (%s) deve ser posterior à data de check-in (%s).", v.CheckOut, v.CheckIn)
		return v
	}

	today := c.Today()
	if in.Before(today) {
		nextIn := in.AddDate(1, 0, 0)
		nextOut := out.AddDate(1, 0, 0)
		if nextIn.Before(today) {
			v.Status = StatusInvalid
			v.Err = ErrDatesInPast
			v.Reason = fmt.Sprintf("As datas %s a %s já passaram. Por favor, informe datas futuras para consultar disponibilidade.", v.CheckIn, v.CheckOut)
			return v
		}

		v.Status = StatusSuggestion
		v.Err = ErrDatesInPast
		v.SuggestedCheckIn = nextIn.Format(Layout)
		v.SuggestedCheckOut = nextOut.Format(Layout)
		v.Reason = fmt.Sprintf("⚠️ As datas %s a %s já passaram. Você gostaria de consultar disponibilidade para %s a %s (próximo ano)?",
			v.CheckIn, v.CheckOut, v.SuggestedCheckIn, v.SuggestedCheckOut)
		return v
	}

	v.Status = StatusValid
	return v
}

// Nights counts the nights between two ISO dates; the result may be zero or
// negative.
func (c *Calendar) Nights(checkIn, checkOut string) (int, error) {
	in, err := c.Parse(checkIn)
	if err != nil {
		return 0, err
	}
	out, err := c.Parse(checkOut)
	if err != nil {
		return 0, err
	}
	// Rounding absorbs DST shifts between the two midnights.
	return int(math.Round(out.Sub(in).Hours() / 24)), nil
}
