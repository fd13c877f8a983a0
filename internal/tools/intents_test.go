package tools

import (
	"encoding/json"
	"testing"

	"github.com/avvvet/staybuddy/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		call llm.ToolCall
		want Intent
	}{
		{
			name: "reservation",
			call: llm.ToolCall{Name: "extract_reservation_info", Arguments: json.RawMessage(`{"room_name": "Suíte", "check_in_date": "2026-12-15"}`)},
			want: ExtractReservation{RoomName: "Suíte", CheckIn: "2026-12-15"},
		},
		{
			name: "availability",
			call: llm.ToolCall{Name: "check_availability", Arguments: json.RawMessage(`{"check_in_date": "2026-12-15", "check_out_date": "2026-12-20"}`)},
			want: Availability{CheckIn: "2026-12-15", CheckOut: "2026-12-20"},
		},
		{
			name: "personal data",
			call: llm.ToolCall{Name: "extract_personal_data", Arguments: json.RawMessage(`{"customer_email": "maria@example.com"}`)},
			want: PersonalData{CustomerEmail: "maria@example.com"},
		},
		{
			name: "booking with numeric room",
			call: llm.ToolCall{Name: "create_booking_and_payment", Arguments: json.RawMessage(`{"room_type_id": 2}`)},
			want: CreateBooking{RoomID: 2},
		},
		{
			name: "booking with string room",
			call: llm.ToolCall{Name: "create_booking_and_payment", Arguments: json.RawMessage(`{"room_type_id": "3"}`)},
			want: CreateBooking{RoomID: 3},
		},
		{
			name: "human agent ignores arguments",
			call: llm.ToolCall{Name: "call_human_agent", Arguments: json.RawMessage(`{"reason": "x"}`)},
			want: HumanAgent{},
		},
		{
			name: "no arguments",
			call: llm.ToolCall{Name: "check_availability"},
			want: Availability{},
		},
		{
			name: "unknown tool",
			call: llm.ToolCall{Name: "delete_hotel"},
			want: Unrecognized{Tool: "delete_hotel"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.call)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejectsMalformedArguments(t *testing.T) {
	_, err := Decode(llm.ToolCall{Name: "check_availability", Arguments: json.RawMessage(`{"check_in_date": 15`)})
	assert.Error(t, err)

	_, err = Decode(llm.ToolCall{Name: "create_booking_and_payment", Arguments: json.RawMessage(`{"room_type_id": "suite"}`)})
	assert.Error(t, err)
}

func TestCallRoundTripsThroughDecode(t *testing.T) {
	call := Call("forced_1", ExtractReservation{CheckIn: "15 de dezembro", CheckOut: "20 de dezembro"})
	assert.Equal(t, "forced_1", call.ID)
	assert.Equal(t, "extract_reservation_info", call.Name)

	intent, err := Decode(call)
	require.NoError(t, err)
	assert.Equal(t, ExtractReservation{CheckIn: "15 de dezembro", CheckOut: "20 de dezembro"}, intent)
}

func TestSpecsDeclareEveryIntent(t *testing.T) {
	names := map[string]bool{}
	for _, spec := range Specs() {
		names[spec.Name] = true
		assert.NotEmpty(t, spec.Description)
		assert.Equal(t, "object", spec.Parameters["type"])
	}
	for _, name := range []Name{ExtractReservationInfo, CheckAvailability, ExtractPersonalData, CreateBookingAndPay, CallHumanAgent} {
		assert.True(t, names[string(name)], name)
	}
}
