package tools

import "github.com/avvvet/staybuddy/internal/llm"

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// Specs declares the tools offered to the model. Hotel and guest identity
// come from the request, never from the model.
func Specs() []llm.ToolSpec {
	return []llm.ToolSpec{
		{
			Name:        string(CheckAvailability),
			Description: "Consulta a disponibilidade de quartos do hotel para um período de datas.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"check_in_date":  stringParam("Data de check-in no formato YYYY-MM-DD"),
					"check_out_date": stringParam("Data de check-out no formato YYYY-MM-DD"),
				},
				"required": []string{"check_in_date", "check_out_date"},
			},
		},
		{
			Name:        string(ExtractReservationInfo),
			Description: "Registra na sessão o quarto escolhido e/ou as datas mencionadas pelo usuário.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"room_name":      stringParam("Nome do quarto desejado"),
					"check_in_date":  stringParam("Data de check-in no formato YYYY-MM-DD"),
					"check_out_date": stringParam("Data de check-out no formato YYYY-MM-DD"),
				},
			},
		},
		{
			Name:        string(ExtractPersonalData),
			Description: "Registra na sessão o nome e/ou o e-mail do cliente. Um deles sozinho também é aceito.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"customer_name":  stringParam("Nome completo do cliente"),
					"customer_email": stringParam("E-mail do cliente"),
				},
			},
		},
		{
			Name:        string(CreateBookingAndPay),
			Description: "Cria a reserva e gera o link de pagamento. Campos omitidos são lidos da sessão.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"room_type_id":   map[string]any{"type": "integer", "description": "ID do tipo de quarto"},
					"check_in_date":  stringParam("Data de check-in no formato YYYY-MM-DD"),
					"check_out_date": stringParam("Data de check-out no formato YYYY-MM-DD"),
					"customer_name":  stringParam("Nome completo do cliente"),
					"customer_email": stringParam("E-mail do cliente"),
				},
			},
		},
		{
			Name:        string(CallHumanAgent),
			Description: "Chama um atendente humano do hotel para continuar a conversa.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}
