package domain

// EventType etiqueta cada linea del stream de respuesta.
type EventType string

const (
	EventConversationID EventType = "conversation_id"
	EventAgent          EventType = "agent"
	EventReasoning      EventType = "reasoning"
	EventText           EventType = "text"
	EventDone           EventType = "done"
)

// CarriesData indica si el payload data es significativo para el tipo.
func (t EventType) CarriesData() bool {
	switch t {
	case EventConversationID, EventAgent, EventReasoning, EventText:
		return true
	}
	return false
}

// Known devuelve false para tipos desconocidos, que se ignoran.
func (t EventType) Known() bool {
	return t.CarriesData() || t == EventDone
}

type Event struct {
	Type EventType `json:"type"`
	Data string    `json:"data,omitempty"`
}
