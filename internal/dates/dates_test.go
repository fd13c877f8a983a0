package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedCalendar(y int, m time.Month, d int) *Calendar {
	return NewCalendar(time.UTC, func() time.Time {
		return time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
	})
}

func TestNormalize(t *testing.T) {
	cal := fixedCalendar(2026, time.October, 15)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"iso passes through", "2026-01-02", "2026-01-02"},
		{"later this year", "15 de dezembro", "2026-12-15"},
		{"same day stays this year", "15 de outubro", "2026-10-15"},
		{"earlier this month rolls over", "14 de outubro", "2027-10-14"},
		{"earlier month rolls over", "25 de janeiro", "2027-01-25"},
		{"accented month", "3 de março", "2027-03-03"},
		{"unaccented month", "3 de marco", "2027-03-03"},
		{"capitalized with surrounding text", "Dia 20 De Dezembro", "2026-12-20"},
		{"explicit year", "20 de janeiro de 2028", "2028-01-20"},
		{"abbreviated month", "2 de dez", "2026-12-02"},
		{"numeric day month", "20/12", "2026-12-20"},
		{"numeric with year", "05/01/2027", "2027-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	cal := fixedCalendar(2026, time.October, 15)

	for _, input := range []string{"amanhã", "15 de brumário", "31 de fevereiro", "2026-13-01", "40/12", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := cal.Normalize(input)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestValidate(t *testing.T) {
	cal := fixedCalendar(2026, time.October, 15)

	tests := []struct {
		name     string
		checkIn  string
		checkOut string
		status   Status
		err      error
	}{
		{"future range", "2026-12-15", "2026-12-20", StatusValid, nil},
		{"starts today", "2026-10-15", "2026-10-16", StatusValid, nil},
		{"checkout before checkin", "2026-12-20", "2026-12-15", StatusInvalid, ErrCheckOutNotAfterCheckIn},
		{"checkout equals checkin", "2026-12-20", "2026-12-20", StatusInvalid, ErrCheckOutNotAfterCheckIn},
		{"past ordering still wins", "2020-01-10", "2020-01-05", StatusInvalid, ErrCheckOutNotAfterCheckIn},
		{"stale even next year", "2025-01-10", "2025-01-12", StatusInvalid, ErrDatesInPast},
		{"past this year suggests next year", "2026-03-10", "2026-03-12", StatusSuggestion, ErrDatesInPast},
		{"malformed", "15/12/2026", "2026-12-20", StatusMalformed, ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cal.Validate(tt.checkIn, tt.checkOut)
			assert.Equal(t, tt.status, v.Status)
			if tt.err != nil {
				assert.ErrorIs(t, v.Err, tt.err)
				assert.NotEmpty(t, v.Reason)
			} else {
				assert.True(t, v.Valid())
			}
		})
	}
}

func TestValidateSuggestionShiftsBothDates(t *testing.T) {
	cal := fixedCalendar(2026, time.October, 15)

	v := cal.Validate("2026-03-10", "2026-03-12")

	require.Equal(t, StatusSuggestion, v.Status)
	assert.Equal(t, "2027-03-10", v.SuggestedCheckIn)
	assert.Equal(t, "2027-03-12", v.SuggestedCheckOut)
	assert.Contains(t, v.Reason, "2027-03-10 a 2027-03-12")
}

func TestValidateOrderingHoldsForAnyPair(t *testing.T) {
	cal := fixedCalendar(2026, time.October, 15)
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	for offset := 0; offset < 1500; offset += 37 {
		in := base.AddDate(0, 0, offset)
		for _, back := range []int{0, 1, 9} {
			out := in.AddDate(0, 0, -back)
			v := cal.Validate(in.Format(Layout), out.Format(Layout))
			assert.Equal(t, StatusInvalid, v.Status, "%s -> %s", in.Format(Layout), out.Format(Layout))
			assert.ErrorIs(t, v.Err, ErrCheckOutNotAfterCheckIn)
		}
	}
}

func TestValidateFutureRangesAreValid(t *testing.T) {
	cal := fixedCalendar(2026, time.October, 15)
	today := cal.Today()

	for offset := 0; offset < 800; offset += 23 {
		in := today.AddDate(0, 0, offset)
		out := in.AddDate(0, 0, 1+offset%7)
		v := cal.Validate(in.Format(Layout), out.Format(Layout))
		assert.True(t, v.Valid(), "%s -> %s", in.Format(Layout), out.Format(Layout))
	}
}

func TestNights(t *testing.T) {
	cal := NewCalendar(time.UTC, nil)

	n, err := cal.Nights("2026-12-15", "2026-12-20")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = cal.Nights("2026-12-20", "2026-12-15")
	require.NoError(t, err)
	assert.Equal(t, -5, n)

	_, err = cal.Nights("bad", "2026-12-15")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestNightsAcrossDaylightSavingChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	cal := NewCalendar(loc, nil)

	n, err := cal.Nights("2026-03-07", "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
