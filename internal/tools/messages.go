package tools

import (
	"fmt"
	"strings"

	"github.com/avvvet/staybuddy/internal/models"
)

const (
	// HandoffPendingReply answers the escalating message and every message
	// after it until the guest reactivates the bot.
	HandoffPendingReply = "👋 Um de nossos atendentes humanos já foi notificado e entrará em contato com você em breve. Por favor, aguarde o contato direto. Obrigado!"

	// ReactivatedReply confirms that automated handling resumed.
	ReactivatedReply = "🤖 Bot reativado! Como posso ajudar você hoje?"

	msgPaymentLinkFailed = "❌ Erro ao gerar link de pagamento. A reserva foi cancelada automaticamente. Tente novamente em alguns instantes."
	msgAskDates          = "Por favor, informe as datas de check-in e check-out."
	msgAskPersonalData   = "Por favor, informe seu nome completo e e-mail."
	msgInvalidEmail      = "O e-mail informado parece inválido. Pode verificar e enviar novamente?"
	msgAvailabilityError = "Desculpe, não consegui verificar a disponibilidade agora. Tente novamente em alguns instantes."
	msgBookingError      = "❌ **Erro no Sistema**\n\nNão foi possível criar a reserva agora.\n\n🔄 Tente novamente em alguns instantes ou chame um atendente."
	msgHumanAgentError   = "❌ Erro ao chamar atendente. Tente novamente mais tarde."
	msgNoRoomsAvailable  = "❌ Nenhum quarto está disponível para o período informado. Gostaria de tentar outras datas?"
	msgPriceUnavailable  = "Não consegui calcular o valor da estadia para esse quarto. Pode confirmar o quarto e as datas?"
	msgUnrecognized      = "Desculpe, não reconheço essa ação."
	msgBadArguments      = "Desculpe, não consegui entender os dados informados. Pode repetir?"
)

var actionLabels = map[Name]string{
	ExtractReservationInfo: "registrar os dados da reserva",
	CheckAvailability:      "verificar a disponibilidade",
	ExtractPersonalData:    "registrar seus dados pessoais",
	CreateBookingAndPay:    "criar a reserva",
	CallHumanAgent:         "chamar um atendente",
}

func failedMessage(name Name) string {
	label, ok := actionLabels[name]
	if !ok {
		label = "processar sua solicitação"
	}
	return fmt.Sprintf("Desculpe, ocorreu um erro ao %s. Por favor, tente novamente.", label)
}

func invalidDateMessage(text string) string {
	return fmt.Sprintf("Não consegui entender a data \"%s\". Pode informar como \"15 de dezembro\"?", text)
}

func unavailableMessage(roomName, checkIn, checkOut string) string {
	return fmt.Sprintf("❌ **Quarto Indisponível**\n\nO quarto %s não está disponível de %s a %s.\n\n"+
		"💡 **Sugestões:**\n• Tente datas diferentes\n• Verifique outros quartos disponíveis", roomName, checkIn, checkOut)
}

func chooseRoomMessage(rooms []models.Room) string {
	var b strings.Builder
	b.WriteString("Temos mais de um quarto disponível para o período. Qual você prefere?\n")
	for _, room := range rooms {
		fmt.Fprintf(&b, "• %s - R$ %.2f/noite\n", room.Name, room.DailyRate)
	}
	return strings.TrimRight(b.String(), "\n")
}

func roomNotFoundMessage(name string, rooms []models.Room) string {
	var names []string
	for _, room := range rooms {
		names = append(names, room.Name)
	}
	if len(names) == 0 {
		return fmt.Sprintf("Não encontrei o quarto \"%s\".", name)
	}
	return fmt.Sprintf("Não encontrei o quarto \"%s\". Os quartos disponíveis são: %s.", name, strings.Join(names, ", "))
}

func bookingSuccessMessage(roomName string, req models.BookingRequest, link string) string {
	return fmt.Sprintf("🎉 Reserva criada com sucesso!\n\n"+
		"🏨 Quarto: %s\n"+
		"💰 Preço total: R$ %.2f\n"+
		"📅 Check-in: %s\n"+
		"📅 Check-out: %s\n"+
		"🔗 Link para pagamento: %s\n\n"+
		"⚠️ O link e a pré-reserva ficam disponíveis por 30 minutos. Após esse prazo o quarto é liberado.",
		roomName, req.TotalPrice, req.CheckIn, req.CheckOut, link)
}

func personalDataMessage(name, email string, missing []string) string {
	switch {
	case name != "" && email == "":
		return fmt.Sprintf("Obrigado, %s! Agora, por favor, me informe seu e-mail.", name)
	case name == "" && email != "":
		return "Obrigado! Agora, por favor, me informe seu nome completo."
	case len(missing) > 0:
		return fmt.Sprintf("✅ Dados pessoais registrados. Ainda falta: %s.", strings.Join(missing, ", "))
	default:
		return "✅ Dados pessoais registrados."
	}
}
