package service

import (
	"time"

	"github.com/google/uuid"

	"support-chat/internal/domain"
)

// Conversation mantiene el estado de una sesion de chat y aplica eventos del
// stream sobre el. No es seguro para uso concurrente; ChatSession lo protege.
//
// A lo sumo un mensaje esta abierto (recibiendo deltas) y se referencia por
// indice explicito, nunca por posicion.
type Conversation struct {
	transcript     []domain.Message
	conversationID string
	activeAgent    string
	caption        string
	pending        bool
	streaming      bool

	open      int
	turnAgent string

	newID func() string
	now   func() time.Time
}

func NewConversation() *Conversation {
	return &Conversation{
		open:  -1,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// BeginTurn agrega el mensaje del usuario y marca el turno como pendiente.
func (c *Conversation) BeginTurn(text string) domain.Message {
	msg := domain.Message{
		ID:        c.newID(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: c.now(),
	}
	c.transcript = append(c.transcript, msg)
	c.pending = true
	c.streaming = true
	c.caption = domain.InitialReasoning
	c.turnAgent = ""
	return msg
}

// Apply aplica un evento y devuelve true si cambio el estado observable.
// Los tipos desconocidos se ignoran.
func (c *Conversation) Apply(ev domain.Event) bool {
	switch ev.Type {
	case domain.EventConversationID:
		if c.conversationID != "" || ev.Data == "" {
			return false
		}
		c.conversationID = ev.Data
	case domain.EventAgent:
		c.activeAgent = ev.Data
		c.turnAgent = ev.Data
	case domain.EventReasoning:
		c.caption = ev.Data
	case domain.EventText:
		c.appendText(ev.Data)
	case domain.EventDone:
		c.finalize()
		c.caption = ""
		c.streaming = false
	default:
		return false
	}
	return true
}

func (c *Conversation) appendText(fragment string) {
	if c.open >= 0 {
		c.transcript[c.open].Content += fragment
		return
	}
	c.transcript = append(c.transcript, domain.Message{
		ID:        c.newID(),
		Role:      domain.RoleAssistant,
		Content:   fragment,
		Agent:     c.turnAgent,
		Timestamp: c.now(),
	})
	c.open = len(c.transcript) - 1
}

// finalize cierra el mensaje abierto y le asigna un id definitivo.
func (c *Conversation) finalize() bool {
	if c.open < 0 {
		return false
	}
	c.transcript[c.open].ID = c.newID()
	c.open = -1
	return true
}

func (c *Conversation) clearTurn() {
	c.pending = false
	c.streaming = false
	c.caption = ""
}

// EndTurn cierra el turno al terminar el stream, haya llegado done o no.
func (c *Conversation) EndTurn() {
	c.finalize()
	c.clearTurn()
}

// FailTurn cierra el turno tras un error de transporte. El contenido parcial
// queda como estaba y se agrega el mensaje de disculpa.
func (c *Conversation) FailTurn() {
	c.finalize()
	c.transcript = append(c.transcript, domain.Message{
		ID:        c.newID(),
		Role:      domain.RoleAssistant,
		Content:   domain.ApologyContent,
		Timestamp: c.now(),
	})
	c.clearTurn()
}

// AbandonTurn suelta el turno sin finalizar nada (cancelacion del consumidor).
func (c *Conversation) AbandonTurn() {
	c.open = -1
	c.clearTurn()
}

func (c *Conversation) Pending() bool {
	return c.pending
}

func (c *Conversation) ConversationID() string {
	return c.conversationID
}

// Snapshot devuelve una copia del estado; el transcript no comparte memoria.
func (c *Conversation) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Transcript:       append([]domain.Message(nil), c.transcript...),
		ConversationID:   c.conversationID,
		ActiveAgent:      c.activeAgent,
		ReasoningCaption: c.caption,
		Pending:          c.pending,
		Streaming:        c.streaming,
	}
	if c.open >= 0 {
		snap.OpenMessageID = c.transcript[c.open].ID
	}
	return snap
}
