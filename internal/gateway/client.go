// Package gateway talks to the hotel-management backend: availability,
// bookings, human handoff, the room catalog and document search.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avvvet/staybuddy/internal/dates"
	"github.com/avvvet/staybuddy/internal/metrics"
	"github.com/avvvet/staybuddy/internal/models"
	"go.uber.org/zap"
)

const (
	headerAPIKey = "x-api-key"
	headerUserID = "x-user-id"

	// unavailableMarker is how the backend tags a booking conflict inside a 500.
	unavailableMarker = "INDISPONIBILIDADE"
)

// Client is the hotel gateway client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	calendar   *dates.Calendar
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewClient creates a new gateway client. metrics may be nil.
func NewClient(baseURL, apiKey string, timeout time.Duration, calendar *dates.Calendar, m *metrics.Metrics, logger *zap.Logger) *Client {
	if calendar == nil {
		calendar = dates.NewCalendar(time.UTC, nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		calendar: calendar,
		metrics:  m,
		logger:   logger,
	}
}

type availabilityRequest struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
	LeadID   string `json:"leadWhatsappNumber"`
}

// FetchAvailability returns the availability report for a stay. The range is
// validated first; a rejected range returns a *DateError without calling the
// backend.
func (c *Client) FetchAvailability(ctx context.Context, hotelID, checkIn, checkOut, leadID string) (*models.AvailabilityReport, error) {
	if v := c.calendar.Validate(checkIn, checkOut); !v.Valid() {
		return nil, &DateError{Validation: v}
	}

	path := fmt.Sprintf("/bookings/%s/availability-report", url.PathEscape(hotelID))
	body := availabilityRequest{CheckIn: checkIn, CheckOut: checkOut, LeadID: leadID}

	var raw json.RawMessage
	if err := c.do(ctx, "availability", http.MethodGet, path, nil, body, &raw); err != nil {
		return nil, err
	}

	rooms, err := decodeRooms(raw)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidResponse, Op: "availability", Message: err.Error()}
	}

	c.logger.Debug("availability fetched",
		zap.String("hotel_id", hotelID),
		zap.String("check_in", checkIn),
		zap.String("check_out", checkOut),
		zap.Int("rooms", len(rooms)),
	)
	return &models.AvailabilityReport{Rooms: rooms, CheckIn: checkIn, CheckOut: checkOut}, nil
}

// decodeRooms accepts a bare list or a list wrapped in {"data": [...]}.
func decodeRooms(raw json.RawMessage) ([]models.Room, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var rooms []models.Room
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &rooms); err != nil {
			return nil, err
		}
		return rooms, nil
	}

	var envelope struct {
		Data []models.Room `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

type createBookingRequest struct {
	HotelID       string  `json:"user_id"`
	LeadID        string  `json:"lead_whatsapp_number"`
	RoomID        int     `json:"room_type_id"`
	CheckIn       string  `json:"check_in_date"`
	CheckOut      string  `json:"check_out_date"`
	TotalPrice    float64 `json:"total_price"`
	CustomerEmail string  `json:"customer_email"`
	CustomerName  string  `json:"customer_name"`
}

type createBookingResponse struct {
	BookingID  json.RawMessage `json:"bookingId"`
	PaymentURL string          `json:"paymentUrl"`
}

// CreateBooking creates a reservation. A result is returned even when it
// carries no usable payment link; callers check BookingResult.Payable.
func (c *Client) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingResult, error) {
	body := createBookingRequest{
		HotelID:       req.HotelID,
		LeadID:        req.LeadID,
		RoomID:        req.RoomID,
		CheckIn:       req.CheckIn,
		CheckOut:      req.CheckOut,
		TotalPrice:    req.TotalPrice,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
	}

	var resp createBookingResponse
	if err := c.do(ctx, "create_booking", http.MethodPost, "/bookings/create", nil, body, &resp); err != nil {
		return nil, err
	}

	id := strings.Trim(string(bytes.TrimSpace(resp.BookingID)), `"`)
	if id == "" || id == "null" {
		return nil, &Error{Kind: ErrInvalidResponse, Op: "create_booking", Message: "response has no bookingId"}
	}

	result := &models.BookingResult{BookingID: id, PaymentLink: strings.TrimSpace(resp.PaymentURL)}
	c.logger.Info("📅 booking created",
		zap.String("booking_id", result.BookingID),
		zap.Int("room_id", req.RoomID),
		zap.Bool("payable", result.Payable()),
	)
	return result, nil
}

// CancelBooking releases a reservation.
func (c *Client) CancelBooking(ctx context.Context, bookingID string) error {
	path := "/bookings/cancel/" + url.PathEscape(bookingID)
	if err := c.do(ctx, "cancel_booking", http.MethodDelete, path, nil, nil, nil); err != nil {
		return err
	}
	c.logger.Info("🗑️ booking cancelled", zap.String("booking_id", bookingID))
	return nil
}

type humanAgentRequest struct {
	HotelID string `json:"hotel_id"`
	LeadID  string `json:"lead_whatsapp_number"`
}

// CallHumanAgent notifies hotel staff that the lead asked for a person.
func (c *Client) CallHumanAgent(ctx context.Context, hotelID, leadID string) error {
	body := humanAgentRequest{HotelID: hotelID, LeadID: leadID}
	return c.do(ctx, "call_human_agent", http.MethodPost, "/bookings/call-human-agent", nil, body, nil)
}

// GetCatalog returns the hotel's room catalog.
func (c *Client) GetCatalog(ctx context.Context, hotelID string) ([]models.CatalogEntry, error) {
	var resp struct {
		Data []models.CatalogEntry `json:"data"`
	}
	headers := map[string]string{headerUserID: hotelID}
	if err := c.do(ctx, "catalog", http.MethodPost, "/rooms/get-catalog", headers, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type findChunksRequest struct {
	HotelID   string    `json:"user_id"`
	Embedding []float32 `json:"query_embedding"`
	TopK      int       `json:"top_k"`
}

// FindRelevantChunks returns the document passages closest to a query
// embedding.
func (c *Client) FindRelevantChunks(ctx context.Context, hotelID string, embedding []float32, topK int) ([]string, error) {
	var resp struct {
		Data []string `json:"data"`
	}
	headers := map[string]string{headerUserID: hotelID}
	body := findChunksRequest{HotelID: hotelID, Embedding: embedding, TopK: topK}
	if err := c.do(ctx, "find_chunks", http.MethodPost, "/document-chunks/find-relevant", headers, body, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// do performs one authenticated JSON call. out may be nil.
func (c *Client) do(ctx context.Context, op, method, path string, headers map[string]string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveGatewayRequest(op, resultLabel(err), time.Since(start))
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: ErrTransport, Op: op, Message: fmt.Sprintf("failed to encode request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: ErrTransport, Op: op, Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, c.apiKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("gateway request failed", zap.String("op", op), zap.Error(err))
		return &Error{Kind: ErrTransport, Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: ErrTransport, Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := classify(op, resp.StatusCode, data)
		c.logger.Warn("gateway returned an error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", gwErr.Message),
		)
		return gwErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: ErrInvalidResponse, Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

// classify maps an error response to an *Error. The backend reports booking
// conflicts as a 500 whose message carries unavailableMarker.
func classify(op string, status int, body []byte) *Error {
	message := strings.TrimSpace(string(body))
	var envelope struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		message = envelope.Message
	}

	kind := ErrServer
	if status == http.StatusInternalServerError && strings.Contains(message, unavailableMarker) {
		kind = ErrUnavailable
	}
	return &Error{Kind: kind, Op: op, Status: status, Message: message}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	default:
		return "server_error"
	}
}
