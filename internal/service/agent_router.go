package service

import (
	"fmt"
	"regexp"
	"strings"

	"support-chat/internal/domain"
)

var referencePattern = regexp.MustCompile(`(?i)\b(ORD|INV|REF)-\d+\b`)

var (
	orderKeywords   = []string{"order", "ship", "deliver", "tracking", "package"}
	billingKeywords = []string{"invoice", "refund", "billing", "payment", "charge", "bill"}
)

// AgentRouter imita la orquestacion del backend: elige un agente por palabras
// clave y arma la secuencia de eventos de la respuesta.
type AgentRouter struct{}

// Route devuelve el agente responsable del mensaje.
func (AgentRouter) Route(message string) string {
	lower := strings.ToLower(message)
	if ref := reference(message); ref != "" {
		switch ref[:3] {
		case "ORD":
			return domain.AgentOrder
		case "INV", "REF":
			return domain.AgentBilling
		}
	}
	if containsAny(lower, orderKeywords) {
		return domain.AgentOrder
	}
	if containsAny(lower, billingKeywords) {
		return domain.AgentBilling
	}
	return domain.AgentSupport
}

// Reply arma el texto final del agente.
func (r AgentRouter) Reply(agent, message string) string {
	ref := reference(message)
	lower := strings.ToLower(message)
	switch agent {
	case domain.AgentOrder:
		if ref == "" {
			return "I can help with your order. Could you share the order number (for example ORD-001)?"
		}
		return fmt.Sprintf("Order %s has shipped and should arrive tomorrow.", ref)
	case domain.AgentBilling:
		switch {
		case strings.HasPrefix(ref, "REF"), strings.Contains(lower, "refund"):
			if ref == "" {
				ref = "request"
			}
			return fmt.Sprintf("Refund %s was approved and will post to your account in 3-5 business days.", ref)
		case ref != "":
			return fmt.Sprintf("Invoice %s is paid in full. No balance remains.", ref)
		}
		return "I can look into billing questions. Which invoice or refund number should I check?"
	}
	if strings.Contains(lower, "password") {
		return "To reset your password, open **Settings > Security** and choose *Reset password*. We will email you a link."
	}
	return "Thanks for reaching out. A support specialist will follow up shortly."
}

// Script produce los eventos de un turno completo en orden de envio.
func (r AgentRouter) Script(conversationID, message string) []domain.Event {
	agent := r.Route(message)
	events := []domain.Event{
		{Type: domain.EventConversationID, Data: conversationID},
		{Type: domain.EventReasoning, Data: "Analyzing your request"},
		{Type: domain.EventAgent, Data: agent},
		{Type: domain.EventReasoning, Data: fmt.Sprintf("Consulting %s agent", strings.ToLower(agent))},
	}
	for _, fragment := range strings.SplitAfter(r.Reply(agent, message), " ") {
		events = append(events, domain.Event{Type: domain.EventText, Data: fragment})
	}
	return append(events, domain.Event{Type: domain.EventDone})
}

func reference(message string) string {
	return strings.ToUpper(referencePattern.FindString(message))
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
