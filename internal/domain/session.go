package domain

// TurnRequest es el cuerpo de POST /api/chat/messages.
type TurnRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message" binding:"required"`
	UserID         string `json:"userId" binding:"required"`
}

// Snapshot es la vista observable del estado de una conversacion.
type Snapshot struct {
	Transcript       []Message `json:"transcript"`
	ConversationID   string    `json:"conversation_id,omitempty"`
	ActiveAgent      string    `json:"active_agent,omitempty"`
	ReasoningCaption string    `json:"reasoning_caption,omitempty"`
	Pending          bool      `json:"pending"`
	Streaming        bool      `json:"streaming"`
	OpenMessageID    string    `json:"open_message_id,omitempty"`
}

// Open devuelve el mensaje abierto, si existe.
func (s Snapshot) Open() (Message, bool) {
	if s.OpenMessageID == "" || len(s.Transcript) == 0 {
		return Message{}, false
	}
	last := s.Transcript[len(s.Transcript)-1]
	if last.ID != s.OpenMessageID {
		return Message{}, false
	}
	return last, true
}
