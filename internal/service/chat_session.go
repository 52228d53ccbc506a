package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"support-chat/internal/domain"
	"support-chat/internal/stream"
)

var (
	ErrSessionNotConfigured = errors.New("chat session not configured")
	ErrTurnInFlight         = errors.New("a turn is already in flight")
	ErrEmptyMessage         = errors.New("message is empty")
)

const maxLoggedLine = 200

// Transport abre el stream de respuesta para un turno.
type Transport interface {
	OpenStream(ctx context.Context, req domain.TurnRequest) (io.ReadCloser, error)
}

type observer struct {
	id int
	fn func(domain.Snapshot)
}

// ChatSession conduce los turnos de una conversacion: agrega el mensaje del
// usuario, abre el stream y aplica cada linea en orden de llegada. Los errores
// de transporte terminan en un mensaje de disculpa, nunca en un error.
type ChatSession struct {
	logger    *zap.Logger
	transport Transport
	userID    string

	mu        sync.RWMutex
	conv      *Conversation
	observers []observer
	nextObsID int
}

func NewChatSession(logger *zap.Logger, transport Transport, userID string) *ChatSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatSession{
		logger:    logger,
		transport: transport,
		userID:    userID,
		conv:      NewConversation(),
	}
}

// Subscribe registra un observador que recibe el snapshot tras cada cambio.
// Se invoca en la goroutine que aplica los eventos.
func (s *ChatSession) Subscribe(fn func(domain.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObsID
	s.nextObsID++
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *ChatSession) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.Snapshot()
}

// Submit ejecuta un turno completo y bloquea hasta que el stream termina.
// Solo devuelve error si el turno se rechaza o si ctx se cancela.
func (s *ChatSession) Submit(ctx context.Context, text string) error {
	if s == nil || s.transport == nil {
		return ErrSessionNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.conv.Pending() {
		s.mu.Unlock()
		return ErrTurnInFlight
	}
	s.conv.BeginTurn(text)
	req := domain.TurnRequest{
		ConversationID: s.conv.ConversationID(),
		Message:        text,
		UserID:         s.userID,
	}
	s.mu.Unlock()
	s.notify()

	body, err := s.transport.OpenStream(ctx, req)
	if err != nil {
		return s.fail(ctx, err)
	}
	defer body.Close()

	for line, err := range stream.Lines(ctx, body) {
		if err != nil {
			return s.fail(ctx, err)
		}
		s.foldLine(line)
	}

	s.update(func(c *Conversation) bool {
		c.EndTurn()
		return true
	})
	s.logger.Debug("turn finished", zap.String("conversation_id", req.ConversationID))
	return nil
}

func (s *ChatSession) foldLine(line string) {
	ev, err := stream.ParseEvent(line)
	if err != nil {
		s.logger.Warn("dropping event line", zap.Error(err), zap.String("line", truncate(line, maxLoggedLine)))
		return
	}
	if !ev.Type.Known() {
		s.logger.Debug("ignoring unknown event", zap.String("type", string(ev.Type)))
		return
	}
	s.update(func(c *Conversation) bool {
		return c.Apply(ev)
	})
}

func (s *ChatSession) fail(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		s.logger.Info("turn canceled", zap.Error(err))
		s.update(func(c *Conversation) bool {
			c.AbandonTurn()
			return true
		})
		return ctx.Err()
	}
	s.logger.Error("turn failed", zap.Error(err))
	s.update(func(c *Conversation) bool {
		c.FailTurn()
		return true
	})
	return nil
}

func (s *ChatSession) update(fn func(*Conversation) bool) {
	s.mu.Lock()
	changed := fn(s.conv)
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *ChatSession) notify() {
	s.mu.RLock()
	snap := s.conv.Snapshot()
	observers := append([]observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range observers {
		o.fn(snap)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
