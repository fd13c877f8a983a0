package gateway

import (
	"github.com/avvvet/staybuddy/internal/dates"
	"github.com/avvvet/staybuddy/internal/models"
)

// ComputeTotalPrice returns dailyRate * nights for a room of report. It
// reports false when the stay has no nights, the room is not in the report,
// or the room has no rate.
func ComputeTotalPrice(cal *dates.Calendar, checkIn, checkOut string, roomID int, report *models.AvailabilityReport) (float64, bool) {
	nights, err := cal.Nights(checkIn, checkOut)
	if err != nil || nights <= 0 {
		return 0, false
	}

	room, ok := report.Room(roomID)
	if !ok || room.DailyRate <= 0 {
		return 0, false
	}
	return room.DailyRate * float64(nights), true
}

