package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/staybuddy/internal/dates"
	"github.com/avvvet/staybuddy/internal/gateway"
	"github.com/avvvet/staybuddy/internal/llm"
	"github.com/avvvet/staybuddy/internal/memory"
	"github.com/avvvet/staybuddy/internal/metrics"
	"github.com/avvvet/staybuddy/internal/models"
	"github.com/avvvet/staybuddy/internal/prompts"
	"go.uber.org/zap"
)

// Outcome classifies how an intent ended.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeValidation   Outcome = "validation"
	OutcomeSuggestion   Outcome = "suggestion"
	OutcomeGateway      Outcome = "gateway_error"
	OutcomeConflict     Outcome = "conflict"
	OutcomeIntegrity    Outcome = "integrity"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeFailed       Outcome = "failed"
)

// Result is what one dispatched intent produced. Final results are complete
// replies and go to the guest unchanged.
type Result struct {
	Intent  Name
	Outcome Outcome
	Message string
	Final   bool
}

// Gateway is the subset of the hotel gateway the dispatcher drives.
type Gateway interface {
	FetchAvailability(ctx context.Context, hotelID, checkIn, checkOut, leadID string) (*models.AvailabilityReport, error)
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error)
	CancelBooking(ctx context.Context, bookingID string) error
	CallHumanAgent(ctx context.Context, hotelID, leadID string) error
}

// Turn carries the identity being served and its current session. Session
// is replaced after every change.
type Turn struct {
	HotelID  string
	Identity string
	Session  *memory.Session
}

// Dispatcher executes intents. It is the only writer of session state.
type Dispatcher struct {
	sessions *memory.Manager
	gateway  Gateway
	calendar *dates.Calendar
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(sessions *memory.Manager, gw Gateway, calendar *dates.Calendar, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sessions: sessions,
		gateway:  gw,
		calendar: calendar,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// DispatchCall decodes and runs a model tool call.
func (d *Dispatcher) DispatchCall(ctx context.Context, turn *Turn, call llm.ToolCall) Result {
	intent, err := Decode(call)
	if err != nil {
		d.logger.Warn("tool call arguments rejected",
			zap.String("identity", turn.Identity),
			zap.String("tool", call.Name),
			zap.Error(err),
		)
		res := Result{Intent: Name(call.Name), Outcome: OutcomeValidation, Message: msgBadArguments}
		d.metrics.ObserveToolDispatch(string(res.Intent), string(res.Outcome))
		return res
	}
	return d.Dispatch(ctx, turn, intent)
}

// Dispatch runs one intent. Panics are recovered into an apology naming
// the failed action.
func (d *Dispatcher) Dispatch(ctx context.Context, turn *Turn, intent Intent) (res Result) {
	log := d.logger.With(
		zap.String("identity", turn.Identity),
		zap.String("intent", string(intent.Name())),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("intent panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = Result{Intent: intent.Name(), Outcome: OutcomeFailed, Message: failedMessage(intent.Name())}
		}
		d.metrics.ObserveToolDispatch(string(intent.Name()), string(res.Outcome))
		log.Info("🔧 intent dispatched", zap.String("outcome", string(res.Outcome)), zap.Bool("final", res.Final))
	}()

	if turn.Session == nil {
		turn.Session = d.sessions.Load(ctx, turn.Identity)
	}
	if turn.Session.HumanAgentCalled {
		return Result{Intent: intent.Name(), Outcome: OutcomeOK, Message: HandoffPendingReply, Final: true}
	}

	switch in := intent.(type) {
	case ExtractReservation:
		return d.extractReservation(ctx, turn, in)
	case Availability:
		return d.checkAvailability(ctx, turn, in)
	case PersonalData:
		return d.extractPersonalData(ctx, turn, in)
	case CreateBooking:
		return d.createBooking(ctx, turn, in, log)
	case HumanAgent:
		return d.callHumanAgent(ctx, turn, log)
	default:
		log.Warn("unrecognized tool requested")
		return Result{Intent: intent.Name(), Outcome: OutcomeUnrecognized, Message: msgUnrecognized}
	}
}

// Reactivate clears the escalation so automated handling resumes.
func (d *Dispatcher) Reactivate(ctx context.Context, turn *Turn) {
	d.update(ctx, turn, func(s *memory.Session) { s.Reactivate() })
	d.logger.Info("🤖 bot reactivated", zap.String("identity", turn.Identity))
}

func (d *Dispatcher) update(ctx context.Context, turn *Turn, fn func(*memory.Session)) {
	if turn.Session == nil {
		turn.Session = memory.NewSession(turn.Identity)
	}
	turn.Session = d.sessions.Update(ctx, turn.Session, func(s *memory.Session) {
		if turn.HotelID != "" {
			s.HotelID = turn.HotelID
		}
		fn(s)
	})
}

func (d *Dispatcher) extractReservation(ctx context.Context, turn *Turn, args ExtractReservation) Result {
	const name = ExtractReservationInfo

	in, out, bad := d.normalizeDates(name, args.CheckIn, args.CheckOut)
	if bad != nil {
		return *bad
	}
	if r := d.validateEffective(name, turn.Session, in, out); r != nil {
		return *r
	}

	mentioned := strings.TrimSpace(args.RoomName)
	d.update(ctx, turn, func(s *memory.Session) {
		s.SetDates(in, out)
		if mentioned != "" {
			roomName, roomID := mentioned, 0
			if s.HasAvailability() {
				if room, ok := s.Availability.MatchRoom(mentioned); ok {
					roomName, roomID = room.Name, room.ID
				}
			}
			s.SelectRoom(roomName, roomID)
		}
		s.ExtractionCompleted = true
	})

	var parts []string
	s := turn.Session
	// Having both dates means fetching availability; no separate confirmation.
	if s.HasDates() && !s.HasAvailability() {
		res := d.refreshAvailability(ctx, turn, name)
		if res.Outcome != OutcomeOK {
			return res
		}
		parts = append(parts, res.Message)
		s = turn.Session
	}

	if mentioned != "" {
		switch {
		case s.RoomID != 0 && s.HasAvailability():
			room, ok := s.Availability.Room(s.RoomID)
			if !ok {
				parts = append(parts, roomNotFoundMessage(mentioned, s.Availability.BookableRooms()))
				break
			}
			if !room.Bookable() {
				return Result{Intent: name, Outcome: OutcomeConflict, Message: unavailableMessage(room.Name, s.CheckInDate, s.CheckOutDate)}
			}
			parts = append(parts, fmt.Sprintf("✅ Quarto %s selecionado.", room.Name))
		case s.HasAvailability():
			parts = append(parts, roomNotFoundMessage(mentioned, s.Availability.BookableRooms()))
		default:
			parts = append(parts, fmt.Sprintf("Quarto %s anotado.", mentioned))
		}
	}
	if !s.HasDates() {
		parts = append(parts, msgAskDates)
	}
	if len(parts) == 0 {
		parts = append(parts, "✅ Informações da reserva registradas.")
	}
	return Result{Intent: name, Outcome: OutcomeOK, Message: strings.Join(parts, "\n\n")}
}

func (d *Dispatcher) checkAvailability(ctx context.Context, turn *Turn, args Availability) Result {
	const name = CheckAvailability

	in, out, bad := d.normalizeDates(name, args.CheckIn, args.CheckOut)
	if bad != nil {
		return *bad
	}
	if in == "" {
		in = turn.Session.CheckInDate
	}
	if out == "" {
		out = turn.Session.CheckOutDate
	}
	if in == "" || out == "" {
		return Result{Intent: name, Outcome: OutcomeValidation, Message: msgAskDates}
	}
	if r := validationResult(name, d.calendar.Validate(in, out)); r != nil {
		return *r
	}

	d.update(ctx, turn, func(s *memory.Session) { s.SetDates(in, out) })
	return d.refreshAvailability(ctx, turn, name)
}

// refreshAvailability fetches and stores the report for the session dates,
// resolving a room name that was mentioned before availability was known.
func (d *Dispatcher) refreshAvailability(ctx context.Context, turn *Turn, name Name) Result {
	s := turn.Session
	if r := validationResult(name, d.calendar.Validate(s.CheckInDate, s.CheckOutDate)); r != nil {
		return *r
	}

	report, err := d.gateway.FetchAvailability(ctx, turn.HotelID, s.CheckInDate, s.CheckOutDate, turn.Identity)
	if err != nil {
		var dateErr *gateway.DateError
		if errors.As(err, &dateErr) {
			if r := validationResult(name, dateErr.Validation); r != nil {
				return *r
			}
		}
		d.logger.Warn("availability lookup failed",
			zap.String("identity", turn.Identity),
			zap.String("hotel_id", turn.HotelID),
			zap.Error(err),
		)
		return Result{Intent: name, Outcome: OutcomeGateway, Message: msgAvailabilityError}
	}

	d.update(ctx, turn, func(s *memory.Session) {
		s.SetAvailability(report)
		if s.RoomName != "" && s.RoomID == 0 {
			if room, ok := report.MatchRoom(s.RoomName); ok {
				s.SelectRoom(room.Name, room.ID)
			}
		}
	})
	return Result{Intent: name, Outcome: OutcomeOK, Message: prompts.FormatAvailability(report)}
}

func (d *Dispatcher) extractPersonalData(ctx context.Context, turn *Turn, args PersonalData) Result {
	const name = ExtractPersonalData

	customerName := strings.TrimSpace(args.CustomerName)
	email := strings.ToLower(strings.TrimSpace(args.CustomerEmail))
	if customerName == "" && email == "" {
		return Result{Intent: name, Outcome: OutcomeValidation, Message: msgAskPersonalData}
	}

	emailRejected := email != "" && !validEmail(email)
	if emailRejected {
		email = ""
		if customerName == "" {
			return Result{Intent: name, Outcome: OutcomeValidation, Message: msgInvalidEmail}
		}
	}

	d.update(ctx, turn, func(s *memory.Session) { s.SetCustomer(customerName, email) })
	if emailRejected {
		return Result{Intent: name, Outcome: OutcomeValidation, Message: msgInvalidEmail}
	}

	s := turn.Session
	if s.ReadyToBook() {
		return d.createBooking(ctx, turn, CreateBooking{}, d.logger.With(
			zap.String("identity", turn.Identity),
			zap.String("intent", string(CreateBookingAndPay)),
		))
	}
	return Result{
		Intent:  name,
		Outcome: OutcomeOK,
		Message: personalDataMessage(s.CustomerName, s.CustomerEmail, missingLabels(s.MissingForBooking())),
	}
}

func (d *Dispatcher) createBooking(ctx context.Context, turn *Turn, args CreateBooking, log *zap.Logger) Result {
	const name = CreateBookingAndPay

	in, out, bad := d.normalizeDates(name, args.CheckIn, args.CheckOut)
	if bad != nil {
		return *bad
	}
	if r := d.validateEffective(name, turn.Session, in, out); r != nil {
		return *r
	}
	customerName := strings.TrimSpace(args.CustomerName)
	email := strings.ToLower(strings.TrimSpace(args.CustomerEmail))
	if email != "" && !validEmail(email) {
		return Result{Intent: name, Outcome: OutcomeValidation, Message: msgInvalidEmail}
	}

	d.update(ctx, turn, func(s *memory.Session) {
		s.SetDates(in, out)
		s.SetCustomer(customerName, email)
	})

	s := turn.Session
	if !s.HasDates() {
		return Result{Intent: name, Outcome: OutcomeValidation, Message: msgAskDates}
	}
	if !s.HasAvailability() {
		if res := d.refreshAvailability(ctx, turn, name); res.Outcome != OutcomeOK {
			return res
		}
		s = turn.Session
	}
	report := s.Availability

	// A requested room id is only a candidate; the session keeps it once the
	// report confirms the room exists.
	roomID := s.RoomID
	if args.RoomID > 0 {
		roomID = int(args.RoomID)
	}
	if roomID == 0 && s.RoomName != "" {
		if room, ok := report.MatchRoom(s.RoomName); ok {
			roomID = room.ID
		}
	}
	if roomID == 0 {
		bookable := report.BookableRooms()
		switch len(bookable) {
		case 0:
			return Result{Intent: name, Outcome: OutcomeConflict, Message: msgNoRoomsAvailable}
		case 1:
			roomID = bookable[0].ID
		default:
			return Result{Intent: name, Outcome: OutcomeValidation, Message: chooseRoomMessage(bookable)}
		}
	}

	room, ok := report.Room(roomID)
	if !ok {
		if roomID == s.RoomID {
			d.update(ctx, turn, func(s *memory.Session) { s.SelectRoom("", 0) })
		}
		return Result{Intent: name, Outcome: OutcomeValidation, Message: roomNotFoundMessage(fmt.Sprint(roomID), report.BookableRooms())}
	}
	if !room.Bookable() {
		return Result{Intent: name, Outcome: OutcomeConflict, Message: unavailableMessage(room.Name, s.CheckInDate, s.CheckOutDate), Final: true}
	}

	price, ok := gateway.ComputeTotalPrice(d.calendar, s.CheckInDate, s.CheckOutDate, room.ID, report)
	if !ok {
		return Result{Intent: name, Outcome: OutcomeValidation, Message: msgPriceUnavailable}
	}
	d.update(ctx, turn, func(s *memory.Session) {
		s.SelectRoom(room.Name, room.ID)
		s.TotalPrice = price
	})

	s = turn.Session
	if s.CustomerName == "" || s.CustomerEmail == "" {
		msg := msgAskPersonalData
		if s.CustomerName != "" || s.CustomerEmail != "" {
			msg = personalDataMessage(s.CustomerName, s.CustomerEmail, nil)
		}
		return Result{Intent: name, Outcome: OutcomeValidation, Message: msg}
	}

	req := models.BookingRequest{
		HotelID:       turn.HotelID,
		LeadID:        turn.Identity,
		RoomID:        room.ID,
		CheckIn:       s.CheckInDate,
		CheckOut:      s.CheckOutDate,
		TotalPrice:    price,
		CustomerName:  s.CustomerName,
		CustomerEmail: s.CustomerEmail,
	}

	result, err := d.gateway.CreateBooking(ctx, req)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			log.Warn("room taken before booking", zap.Int("room_id", room.ID), zap.Error(err))
			d.update(ctx, turn, func(s *memory.Session) { s.InvalidateAvailability() })
			return Result{Intent: name, Outcome: OutcomeConflict, Message: unavailableMessage(room.Name, req.CheckIn, req.CheckOut), Final: true}
		}
		log.Error("booking creation failed", zap.Error(err))
		return Result{Intent: name, Outcome: OutcomeGateway, Message: msgBookingError, Final: true}
	}

	// A booking nobody can pay for must not stay live.
	if !result.Payable() {
		log.Error("booking has no usable payment link, cancelling",
			zap.String("booking_id", result.BookingID),
			zap.Error(gateway.ErrPaymentLinkMissing),
		)
		if err := d.gateway.CancelBooking(ctx, result.BookingID); err != nil {
			log.Error("compensating cancellation failed", zap.String("booking_id", result.BookingID), zap.Error(err))
		}
		return Result{Intent: name, Outcome: OutcomeIntegrity, Message: msgPaymentLinkFailed, Final: true}
	}

	d.update(ctx, turn, func(s *memory.Session) { s.MarkBooked(result.BookingID, result.PaymentLink) })
	d.sessions.Clear(ctx, turn.Identity)
	turn.Session = memory.NewSession(turn.Identity)

	log.Info("🎉 booking completed", zap.String("booking_id", result.BookingID), zap.Float64("total_price", price))
	return Result{Intent: name, Outcome: OutcomeOK, Message: bookingSuccessMessage(room.Name, req, result.PaymentLink), Final: true}
}

func (d *Dispatcher) callHumanAgent(ctx context.Context, turn *Turn, log *zap.Logger) Result {
	const name = CallHumanAgent

	at := d.now().UTC()
	d.update(ctx, turn, func(s *memory.Session) { s.Escalate(turn.HotelID, at) })

	if err := d.gateway.CallHumanAgent(ctx, turn.HotelID, turn.Identity); err != nil {
		log.Error("human agent notification failed", zap.Error(err))
		d.update(ctx, turn, func(s *memory.Session) { s.Reactivate() })
		return Result{Intent: name, Outcome: OutcomeGateway, Message: msgHumanAgentError, Final: true}
	}
	return Result{Intent: name, Outcome: OutcomeOK, Message: HandoffPendingReply, Final: true}
}

// normalizeDates converts the given dates to ISO. Empty values stay empty.
// A year-less check-out that lands before a check-in rolled into next year
// is rolled too.
func (d *Dispatcher) normalizeDates(name Name, checkIn, checkOut string) (string, string, *Result) {
	in, out := strings.TrimSpace(checkIn), strings.TrimSpace(checkOut)
	var err error
	if in != "" {
		if in, err = d.calendar.Normalize(in); err != nil {
			return "", "", &Result{Intent: name, Outcome: OutcomeValidation, Message: invalidDateMessage(checkIn)}
		}
	}
	if out != "" {
		if out, err = d.calendar.Normalize(out); err != nil {
			return "", "", &Result{Intent: name, Outcome: OutcomeValidation, Message: invalidDateMessage(checkOut)}
		}
	}

	if in != "" && out != "" && out <= in && !hasExplicitYear(checkOut) {
		inDate, _ := d.calendar.Parse(in)
		outDate, _ := d.calendar.Parse(out)
		if inDate.Year() == outDate.Year()+1 {
			out = outDate.AddDate(1, 0, 0).Format(dates.Layout)
		}
	}
	return in, out, nil
}

// validateEffective checks the range the session would hold after applying
// the given dates, when both ends are known.
func (d *Dispatcher) validateEffective(name Name, s *memory.Session, in, out string) *Result {
	if in == "" && out == "" {
		return nil
	}
	if in == "" {
		in = s.CheckInDate
	}
	if out == "" {
		out = s.CheckOutDate
	}
	if in == "" || out == "" {
		return nil
	}
	return validationResult(name, d.calendar.Validate(in, out))
}

func validationResult(name Name, v dates.Validation) *Result {
	switch v.Status {
	case dates.StatusValid:
		return nil
	case dates.StatusSuggestion:
		return &Result{Intent: name, Outcome: OutcomeSuggestion, Message: v.Reason}
	default:
		return &Result{Intent: name, Outcome: OutcomeValidation, Message: v.Reason}
	}
}

func hasExplicitYear(text string) bool {
	digits := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits++
			if digits == 4 {
				return true
			}
			continue
		}
		digits = 0
	}
	return false
}

// validEmail is a minimal syntactic check: an '@' with a '.' after it.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at >= 0 && strings.Contains(email[at+1:], ".")
}

var fieldLabels = map[string]string{
	"room_id":        "o quarto",
	"check_in_date":  "a data de check-in",
	"check_out_date": "a data de check-out",
	"customer_name":  "seu nome completo",
	"customer_email": "seu e-mail",
}

func missingLabels(fields []string) []string {
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		if label, ok := fieldLabels[f]; ok {
			labels = append(labels, label)
		} else {
			labels = append(labels, f)
		}
	}
	return labels
}
