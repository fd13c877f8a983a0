package models

import "strings"

// Room is one entry of an availability report returned by the hotel gateway.
type Room struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	DailyRate      float64 `json:"dailyRate"`
	IsAvailable    bool    `json:"isAvailable"`
	AvailableCount int     `json:"availableCount"`
	Description    string  `json:"description,omitempty"`
}

// Bookable reports whether at least one unit of the room can be reserved.
func (r Room) Bookable() bool {
	return r.IsAvailable && r.AvailableCount > 0
}

// AvailabilityReport is a snapshot of room availability tagged with the
// date range it was fetched for.
type AvailabilityReport struct {
	Rooms    []Room `json:"rooms"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

// Covers reports whether the report was computed for the given range.
func (a *AvailabilityReport) Covers(checkIn, checkOut string) bool {
	return a != nil && a.CheckIn == checkIn && a.CheckOut == checkOut
}

// Room looks a room up by id.
func (a *AvailabilityReport) Room(id int) (Room, bool) {
	if a == nil {
		return Room{}, false
	}
	for _, room := range a.Rooms {
		if room.ID == id {
			return room, true
		}
	}
	return Room{}, false
}

// BookableRooms returns the rooms that can currently be reserved.
func (a *AvailabilityReport) BookableRooms() []Room {
	if a == nil {
		return nil
	}
	var rooms []Room
	for _, room := range a.Rooms {
		if room.Bookable() {
			rooms = append(rooms, room)
		}
	}
	return rooms
}

// MatchRoom resolves a user-mentioned room name to a room of the report.
// Matching is case-insensitive containment of the mentioned name inside the
// room name; the first match wins, available or not, so callers can explain
// why a matched room cannot be booked.
func (a *AvailabilityReport) MatchRoom(mentioned string) (Room, bool) {
	search := strings.ToLower(strings.TrimSpace(mentioned))
	if a == nil || search == "" {
		return Room{}, false
	}
	for _, room := range a.Rooms {
		if strings.Contains(strings.ToLower(room.Name), search) {
			return room, true
		}
	}
	return Room{}, false
}

// CatalogEntry describes a room type in the hotel catalog.
type CatalogEntry struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Capacity    int             `json:"capacity"`
	DailyRate   float64         `json:"daily_rate"`
	Amenities   map[string]bool `json:"amenities"`
	Photos      []string        `json:"photos"`
}

// BookingRequest is built from session fields on demand and sent to the gateway.
type BookingRequest struct {
	HotelID       string
	LeadID        string
	RoomID        int
	CheckIn       string
	CheckOut      string
	TotalPrice    float64
	CustomerName  string
	CustomerEmail string
}

// BookingResult is what the gateway returns for a created booking.
type BookingResult struct {
	BookingID   string `json:"bookingId"`
	PaymentLink string `json:"paymentUrl"`
}

// PlaceholderPaymentLink is sent by the gateway when no link could be issued.
const PlaceholderPaymentLink = "Link não disponível"

// Payable reports whether the result carries a link the guest can pay with.
func (r BookingResult) Payable() bool {
	link := strings.TrimSpace(r.PaymentLink)
	return link != "" && link != PlaceholderPaymentLink
}

// ChatMessage is one turn of the recent conversation history.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageRequest is the inbound message envelope accepted by the transports.
type MessageRequest struct {
	HotelID     string        `json:"user_id"`
	Identity    string        `json:"lead_whatsapp_number"`
	Message     string        `json:"message"`
	ChatHistory string        `json:"chat_history,omitempty"`
	History     []ChatMessage `json:"history,omitempty"`
}

// MessageResponse carries the reply for the channel adapter.
type MessageResponse struct {
	Identity string `json:"lead_whatsapp_number"`
	Response string `json:"response"`
}

// InvalidateRequest asks for a hotel's knowledge to be dropped from cache.
type InvalidateRequest struct {
	HotelID string `json:"user_id"`
}

// InvalidateResponse reports whether anything was evicted.
type InvalidateResponse struct {
	HotelID string `json:"user_id"`
	Found   bool   `json:"found"`
	Message string `json:"message"`
}

const (
	historyUserPrefix      = "Usuário: "
	historyAssistantPrefix = "Alfred: "
)

// ParseChatHistory converts the channel's line-oriented history string into
// messages. Lines without a known speaker prefix are skipped.
func ParseChatHistory(history string) []ChatMessage {
	history = strings.TrimSpace(history)
	if history == "" {
		return nil
	}

	var parsed []ChatMessage
	for _, line := range strings.Split(history, "\n") {
		switch {
		case strings.HasPrefix(line, historyUserPrefix):
			parsed = append(parsed, ChatMessage{
				Role:    RoleUser,
				Content: strings.TrimSpace(strings.TrimPrefix(line, historyUserPrefix)),
			})
		case strings.HasPrefix(line, historyAssistantPrefix):
			parsed = append(parsed, ChatMessage{
				Role:    RoleAssistant,
				Content: strings.TrimSpace(strings.TrimPrefix(line, historyAssistantPrefix)),
			})
		}
	}
	return parsed
}

// Messages returns the request history, preferring the structured form.
func (r *MessageRequest) Messages() []ChatMessage {
	if len(r.History) > 0 {
		return r.History
	}
	return ParseChatHistory(r.ChatHistory)
}
