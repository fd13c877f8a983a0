package prompts

import (
	"testing"
	"time"

	"github.com/avvvet/staybuddy/internal/memory"
	"github.com/avvvet/staybuddy/internal/models"
	"github.com/stretchr/testify/assert"
)

func december() *models.AvailabilityReport {
	return &models.AvailabilityReport{
		CheckIn:  "2026-12-15",
		CheckOut: "2026-12-20",
		Rooms: []models.Room{
			{ID: 1, Name: "Standard", DailyRate: 100},
			{ID: 2, Name: "Suíte Luxo", DailyRate: 150, IsAvailable: true, AvailableCount: 2, Description: "Vista mar"},
		},
	}
}

func TestBuildTurnContext(t *testing.T) {
	session := memory.NewSession("5511999990000")
	session.SetDates("2026-12-15", "2026-12-20")
	session.SetAvailability(december())

	prompt := BuildTurnContext(TurnContext{
		Today:     time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		HotelID:   "hotel-1",
		Identity:  "5511999990000",
		Knowledge: "**Catálogo**",
		Session:   session,
		Message:   "quero a suíte",
	})

	assert.Contains(t, prompt, "DATA ATUAL: 2026-10-15")
	assert.Contains(t, prompt, "**Catálogo**")
	assert.Contains(t, prompt, noRetrievedContext)
	assert.Contains(t, prompt, `"check_in_date": "2026-12-15"`)
	assert.Contains(t, prompt, `"stage": "AVAILABILITY_KNOWN"`)
	assert.Contains(t, prompt, "Campos faltando: room_id, customer_name, customer_email")
	assert.Contains(t, prompt, "Suíte Luxo (ID 2): R$ 150.00/noite")
	assert.Contains(t, prompt, memory.EmptyHistory)
	assert.Contains(t, prompt, "MENSAGEM DO USUÁRIO: quero a suíte")
}

func TestBuildTurnContextWithoutSession(t *testing.T) {
	prompt := BuildTurnContext(TurnContext{Message: "oi"})
	assert.Contains(t, prompt, "DADOS DA SESSÃO:\n{}")
	assert.NotContains(t, prompt, "DISPONIBILIDADE CONSULTADA")
}

func TestBookingStatusReady(t *testing.T) {
	s := memory.NewSession("lead")
	s.SetDates("2026-12-15", "2026-12-20")
	s.SelectRoom("Suíte", 2)
	s.SetCustomer("Maria", "maria@example.com")

	assert.Contains(t, BookingStatus(s), "Pronto para criar a reserva: SIM")
	assert.NotContains(t, BookingStatus(s), "faltando")
}

func TestFormatAvailability(t *testing.T) {
	text := FormatAvailability(december())

	assert.Contains(t, text, "Período: 2026-12-15 a 2026-12-20")
	assert.Contains(t, text, "- Suíte Luxo (ID 2): R$ 150.00/noite, 2 disponível(is) - Vista mar")
	assert.Contains(t, text, "⛔ Quartos indisponíveis:\n- Standard (ID 1)")

	none := FormatAvailability(&models.AvailabilityReport{Rooms: []models.Room{{ID: 1, Name: "Standard"}}})
	assert.Contains(t, none, "Nenhum quarto disponível")

	assert.Contains(t, FormatAvailability(nil), "Nenhum quarto encontrado")
}
