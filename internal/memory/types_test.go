package memory

import (
	"testing"
	"time"

	"github.com/avvvet/staybuddy/internal/models"
	"github.com/stretchr/testify/assert"
)

func decemberReport() *models.AvailabilityReport {
	return &models.AvailabilityReport{
		CheckIn:  "2026-12-15",
		CheckOut: "2026-12-20",
		Rooms: []models.Room{
			{ID: 1, Name: "Quarto Standard", DailyRate: 100, IsAvailable: false},
			{ID: 2, Name: "Suíte Luxo", DailyRate: 150, IsAvailable: true, AvailableCount: 2},
		},
	}
}

func TestSessionStateProgression(t *testing.T) {
	s := NewSession("lead")
	assert.Equal(t, StateNoDates, s.State())

	s.SetDates("2026-12-15", "")
	assert.Equal(t, StateNoDates, s.State())

	s.SetDates("", "2026-12-20")
	assert.Equal(t, StateDatesSet, s.State())

	assert.True(t, s.SetAvailability(decemberReport()))
	assert.Equal(t, StateAvailabilityKnown, s.State())

	s.SelectRoom("luxo", 2)
	assert.Equal(t, StateRoomSelected, s.State())

	s.SetCustomer("Maria Silva", "")
	assert.Equal(t, StatePersonalDataPending, s.State())
	assert.Equal(t, []string{"customer_email"}, s.MissingForBooking())

	s.SetCustomer("", "maria@example.com")
	assert.Equal(t, StateReadyToBook, s.State())
	assert.True(t, s.ReadyToBook())

	s.MarkBooked("bk-1", "https://pay.example.com/bk-1")
	assert.Equal(t, StateBooked, s.State())

	s.Escalate("hotel-1", time.Now())
	assert.Equal(t, StateHumanEscalated, s.State())
}

func TestSessionDateChangeInvalidatesAvailability(t *testing.T) {
	s := NewSession("lead")
	s.SetDates("2026-12-15", "2026-12-20")
	s.SetAvailability(decemberReport())
	s.TotalPrice = 750

	assert.False(t, s.SetDates("2026-12-15", "2026-12-20"))
	assert.NotNil(t, s.Availability)

	assert.True(t, s.SetDates("2026-12-16", ""))
	assert.Nil(t, s.Availability)
	assert.Zero(t, s.TotalPrice)

	s.InvalidateAvailability()
	assert.Nil(t, s.Availability)
	assert.Equal(t, "2026-12-16", s.CheckInDate)
	assert.Equal(t, "2026-12-20", s.CheckOutDate)
}

func TestSessionRejectsReportForOtherDates(t *testing.T) {
	s := NewSession("lead")
	s.SetDates("2026-12-16", "2026-12-20")

	assert.False(t, s.SetAvailability(decemberReport()))
	assert.False(t, s.HasAvailability())
	assert.False(t, s.SetAvailability(nil))
}

func TestSessionRepairDropsImpossibleStates(t *testing.T) {
	s := NewSession("lead")
	s.BookingCreated = true
	s.BookingID = "bk-1"
	s.CheckInDate = "2026-12-15"
	s.CheckOutDate = "2026-12-21"
	s.Availability = decemberReport()
	ts := time.Now()
	s.HumanAgentTimestamp = &ts

	s.repair()

	assert.False(t, s.BookingCreated, "booking without a room cannot be created")
	assert.Nil(t, s.Availability)
	assert.Nil(t, s.HumanAgentTimestamp)
	assert.Equal(t, StateDatesSet, s.Stage)
}

func TestSessionReactivateClearsEscalation(t *testing.T) {
	s := NewSession("lead")
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s.Escalate("hotel-1", at)

	assert.True(t, s.HumanAgentCalled)
	assert.Equal(t, at, *s.HumanAgentTimestamp)
	assert.Equal(t, "hotel-1", s.HotelID)

	s.Reactivate()
	assert.False(t, s.HumanAgentCalled)
	assert.Nil(t, s.HumanAgentTimestamp)
	assert.Equal(t, StateNoDates, s.State())
}
