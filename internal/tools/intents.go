// Package tools turns model tool calls into business actions against the
// session and the hotel gateway.
package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/avvvet/staybuddy/internal/llm"
)

// Name identifies one of the tool intents.
type Name string

const (
	ExtractReservationInfo Name = "extract_reservation_info"
	CheckAvailability      Name = "check_availability"
	ExtractPersonalData    Name = "extract_personal_data"
	CreateBookingAndPay    Name = "create_booking_and_payment"
	CallHumanAgent         Name = "call_human_agent"
)

// Intent is one of the known tool invocations, or Unrecognized.
type Intent interface {
	Name() Name
	isIntent()
}

// ExtractReservation carries a room and/or dates mentioned by the guest.
// Dates may be ISO or free text such as "15 de dezembro".
type ExtractReservation struct {
	RoomName string `json:"room_name"`
	CheckIn  string `json:"check_in_date"`
	CheckOut string `json:"check_out_date"`
}

// Availability asks for the rooms free in a stay range.
type Availability struct {
	CheckIn  string `json:"check_in_date"`
	CheckOut string `json:"check_out_date"`
}

// PersonalData carries the guest's name and/or e-mail.
type PersonalData struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// CreateBooking books a room. Empty fields fall back to the session.
type CreateBooking struct {
	RoomID        RoomID `json:"room_type_id"`
	CheckIn       string `json:"check_in_date"`
	CheckOut      string `json:"check_out_date"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// HumanAgent asks for staff to take over the conversation.
type HumanAgent struct{}

// Unrecognized is a tool name the dispatcher does not know.
type Unrecognized struct {
	Tool string
}

func (ExtractReservation) Name() Name { return ExtractReservationInfo }
func (Availability) Name() Name       { return CheckAvailability }
func (PersonalData) Name() Name       { return ExtractPersonalData }
func (CreateBooking) Name() Name      { return CreateBookingAndPay }
func (HumanAgent) Name() Name         { return CallHumanAgent }
func (u Unrecognized) Name() Name     { return Name(u.Tool) }

func (ExtractReservation) isIntent() {}
func (Availability) isIntent()       {}
func (PersonalData) isIntent()       {}
func (CreateBooking) isIntent()      {}
func (HumanAgent) isIntent()         {}
func (Unrecognized) isIntent()       {}

// RoomID accepts a room id sent either as a number or as a numeric string.
type RoomID int

func (r *RoomID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*r = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid room id %q", raw)
	}
	*r = RoomID(int(f))
	return nil
}

// Decode maps a tool call onto its intent. Unknown names decode to
// Unrecognized without error.
func Decode(call llm.ToolCall) (Intent, error) {
	var intent Intent
	switch Name(call.Name) {
	case ExtractReservationInfo:
		var args ExtractReservation
		if err := unmarshalArgs(call.Arguments, &args); err != nil {
			return nil, err
		}
		intent = args
	case CheckAvailability:
		var args Availability
		if err := unmarshalArgs(call.Arguments, &args); err != nil {
			return nil, err
		}
		intent = args
	case ExtractPersonalData:
		var args PersonalData
		if err := unmarshalArgs(call.Arguments, &args); err != nil {
			return nil, err
		}
		intent = args
	case CreateBookingAndPay:
		var args CreateBooking
		if err := unmarshalArgs(call.Arguments, &args); err != nil {
			return nil, err
		}
		intent = args
	case CallHumanAgent:
		intent = HumanAgent{}
	default:
		intent = Unrecognized{Tool: call.Name}
	}
	return intent, nil
}

func unmarshalArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	return nil
}

// Call encodes an intent as a tool call, for intents chosen by heuristics
// rather than by the model.
func Call(id string, intent Intent) llm.ToolCall {
	args, err := json.Marshal(intent)
	if err != nil {
		args = []byte("{}")
	}
	return llm.ToolCall{ID: id, Name: string(intent.Name()), Arguments: args}
}
