package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message es una entrada del transcript. Content solo crece mientras el
// mensaje esta abierto; Agent y Timestamp no cambian una vez asignados.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Agent     string    `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ApologyContent se muestra cuando un turno falla a nivel de transporte.
const ApologyContent = "Sorry, there was an error processing your request."

// InitialReasoning es el caption inicial mientras el backend no envia uno propio.
const InitialReasoning = "Processing..."
