package memory

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/staybuddy/internal/models"
)

// DefaultTTL is the idle window after which a session expires.
const DefaultTTL = time.Hour

var ErrStoreUnavailable = errors.New("session store unavailable")

// State is the stage of the reservation workflow a session is in.
type State string

const (
	StateNoDates             State = "NO_DATES"
	StateDatesSet            State = "DATES_SET"
	StateAvailabilityKnown   State = "AVAILABILITY_KNOWN"
	StateRoomSelected        State = "ROOM_SELECTED"
	StatePersonalDataPending State = "PERSONAL_DATA_PENDING"
	StateReadyToBook         State = "READY_TO_BOOK"
	StateBooked              State = "BOOKED"
	StateHumanEscalated      State = "HUMAN_ESCALATED"
)

// Session is the per-identity conversation memory. Fields are only changed
// through its methods so that the availability report always matches the
// stored dates.
type Session struct {
	Identity string `json:"identity"`
	HotelID  string `json:"hotel_id,omitempty"`

	CheckInDate  string                     `json:"check_in_date,omitempty"`
	CheckOutDate string                     `json:"check_out_date,omitempty"`
	RoomName     string                     `json:"room_name,omitempty"`
	RoomID       int                        `json:"room_id,omitempty"`
	Availability *models.AvailabilityReport `json:"availability,omitempty"`
	TotalPrice   float64                    `json:"total_price,omitempty"`

	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`

	ExtractionCompleted   bool   `json:"extraction_completed,omitempty"`
	PersonalDataCompleted bool   `json:"personal_data_completed,omitempty"`
	BookingCreated        bool   `json:"booking_created,omitempty"`
	BookingID             string `json:"booking_id,omitempty"`
	PaymentLink           string `json:"payment_link,omitempty"`

	HumanAgentCalled    bool       `json:"human_agent_called,omitempty"`
	HumanAgentTimestamp *time.Time `json:"human_agent_timestamp,omitempty"`

	Stage     State     `json:"stage"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns an empty session for identity.
func NewSession(identity string) *Session {
	return &Session{Identity: identity, Stage: StateNoDates}
}

// State derives the workflow stage from the populated fields. Escalation
// preempts everything else.
func (s *Session) State() State {
	switch {
	case s.HumanAgentCalled:
		return StateHumanEscalated
	case s.BookingCreated && s.BookingID != "":
		return StateBooked
	case !s.HasDates():
		return StateNoDates
	case !s.Availability.Covers(s.CheckInDate, s.CheckOutDate):
		return StateDatesSet
	case s.RoomID == 0:
		return StateAvailabilityKnown
	case s.CustomerName == "" && s.CustomerEmail == "":
		return StateRoomSelected
	case s.CustomerName == "" || s.CustomerEmail == "":
		return StatePersonalDataPending
	default:
		return StateReadyToBook
	}
}

func (s *Session) HasDates() bool {
	return s.CheckInDate != "" && s.CheckOutDate != ""
}

// HasAvailability reports whether a report exists for the stored dates.
func (s *Session) HasAvailability() bool {
	return s.HasDates() && s.Availability.Covers(s.CheckInDate, s.CheckOutDate)
}

// SetDates stores the stay range. Changing either date drops the
// availability report and everything derived from it. Empty values keep the
// stored date. It reports whether anything changed.
func (s *Session) SetDates(checkIn, checkOut string) bool {
	if checkIn == "" {
		checkIn = s.CheckInDate
	}
	if checkOut == "" {
		checkOut = s.CheckOutDate
	}
	if checkIn == s.CheckInDate && checkOut == s.CheckOutDate {
		return false
	}

	s.CheckInDate = checkIn
	s.CheckOutDate = checkOut
	s.InvalidateAvailability()
	return true
}

// InvalidateAvailability clears the report and the price computed from it.
// Calling it on a session without a report is a no-op.
func (s *Session) InvalidateAvailability() {
	s.Availability = nil
	s.TotalPrice = 0
}

// SetAvailability stores a report; it is ignored unless it was fetched for
// the stored dates.
func (s *Session) SetAvailability(report *models.AvailabilityReport) bool {
	if report == nil || !report.Covers(s.CheckInDate, s.CheckOutDate) {
		return false
	}
	s.Availability = report
	return true
}

// SelectRoom records the mentioned room name and, when resolved, its id.
func (s *Session) SelectRoom(name string, id int) {
	if name != "" {
		s.RoomName = name
	}
	if id != s.RoomID {
		s.TotalPrice = 0
	}
	s.RoomID = id
}

// SetCustomer stores the non-empty parts of the guest's personal data.
func (s *Session) SetCustomer(name, email string) {
	if name != "" {
		s.CustomerName = name
	}
	if email != "" {
		s.CustomerEmail = email
	}
	s.PersonalDataCompleted = s.CustomerName != "" || s.CustomerEmail != ""
}

// MissingForBooking lists the fields still needed to create a booking.
func (s *Session) MissingForBooking() []string {
	var missing []string
	if s.RoomID == 0 {
		missing = append(missing, "room_id")
	}
	if s.CheckInDate == "" {
		missing = append(missing, "check_in_date")
	}
	if s.CheckOutDate == "" {
		missing = append(missing, "check_out_date")
	}
	if s.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if s.CustomerEmail == "" {
		missing = append(missing, "customer_email")
	}
	return missing
}

func (s *Session) ReadyToBook() bool {
	return len(s.MissingForBooking()) == 0
}

// MarkBooked records a created booking.
func (s *Session) MarkBooked(bookingID, paymentLink string) {
	s.BookingCreated = bookingID != ""
	s.BookingID = bookingID
	s.PaymentLink = paymentLink
}

// Escalate suspends automated handling.
func (s *Session) Escalate(hotelID string, at time.Time) {
	s.HumanAgentCalled = true
	s.HumanAgentTimestamp = &at
	if hotelID != "" {
		s.HotelID = hotelID
	}
}

// Reactivate resumes automated handling.
func (s *Session) Reactivate() {
	s.HumanAgentCalled = false
	s.HumanAgentTimestamp = nil
}

// repair drops field combinations that cannot occur in a valid workflow.
func (s *Session) repair() {
	if s.Availability != nil && !s.Availability.Covers(s.CheckInDate, s.CheckOutDate) {
		s.InvalidateAvailability()
	}
	if s.BookingCreated && (s.BookingID == "" || s.RoomID == 0) {
		s.BookingCreated = false
	}
	if !s.HumanAgentCalled {
		s.HumanAgentTimestamp = nil
	}
	s.Stage = s.State()
}

// Store persists sessions with a sliding expiry.
type Store interface {
	// Load returns the session, or nil when none exists.
	Load(ctx context.Context, identity string) (*Session, error)

	// Save replaces the session and resets its expiry.
	Save(ctx context.Context, session *Session) error

	// Merge applies update to the stored session (an empty one when absent)
	// atomically and resets its expiry.
	Merge(ctx context.Context, identity string, update func(*Session)) (*Session, error)

	// Delete erases the session.
	Delete(ctx context.Context, identity string) error
}
