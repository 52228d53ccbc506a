package service

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"support-chat/internal/domain"
)

// chunkReader entrega cada chunk en una llamada a Read distinta.
type chunkReader struct {
	chunks []string
	err    error
	closed bool
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error {
	r.closed = true
	return nil
}

type mockTransport struct {
	mu       sync.Mutex
	requests []domain.TurnRequest
	bodies   []*chunkReader
	openErr  error
	block    chan struct{}
}

func (m *mockTransport) OpenStream(ctx context.Context, req domain.TurnRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bodies) == 0 {
		return &chunkReader{}, nil
	}
	body := m.bodies[0]
	m.bodies = m.bodies[1:]
	return body, nil
}

func newTestSession(logger *zap.Logger, transport Transport) *ChatSession {
	s := NewChatSession(logger, transport, "user-1")
	s.conv = newTestConversation()
	return s
}

func lines(events ...string) string {
	return strings.Join(events, "\n") + "\n"
}

func TestChatSessionReassemblesSplitChunks(t *testing.T) {
	body := &chunkReader{chunks: []string{`{"type":"te`, `xt","data":"ok"}` + "\n"}}
	transport := &mockTransport{bodies: []*chunkReader{body}}
	s := newTestSession(nil, transport)

	if err := s.Submit(context.Background(), "hola"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Transcript) != 2 || snap.Transcript[1].Content != "ok" {
		t.Fatalf("expected one assistant delta, got %+v", snap.Transcript)
	}
	if !body.closed {
		t.Fatalf("expected body closed after the turn")
	}
	if snap.Pending || snap.Streaming || snap.OpenMessageID != "" {
		t.Fatalf("expected turn closed, got %+v", snap)
	}
}

func TestChatSessionDropsMalformedLines(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	valid := []string{
		`{"type":"agent","data":"SUPPORT"}`,
		`{"type":"text","data":"Hola "}`,
		`{"type":"text","data":"mundo"}`,
		`{"type":"done"}`,
	}
	withBad := append([]string{}, valid[:2]...)
	withBad = append(withBad, "not valid json", `{"type":"text","data":1}`)
	withBad = append(withBad, valid[2:]...)

	clean := newTestSession(nil, &mockTransport{bodies: []*chunkReader{{chunks: []string{lines(valid...)}}}})
	noisy := newTestSession(zap.New(core), &mockTransport{bodies: []*chunkReader{{chunks: []string{lines(withBad...)}}}})

	if err := clean.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("clean submit: %v", err)
	}
	if err := noisy.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("noisy submit: %v", err)
	}

	if !reflect.DeepEqual(clean.Snapshot(), noisy.Snapshot()) {
		t.Fatalf("malformed lines must not change the result\nclean=%+v\nnoisy=%+v", clean.Snapshot(), noisy.Snapshot())
	}
	if got := noisy.Snapshot().Transcript[1].Content; got != "Hola mundo" {
		t.Fatalf("expected both deltas applied, got %q", got)
	}
	if n := logs.FilterMessage("dropping event line").Len(); n != 2 {
		t.Fatalf("expected 2 warnings, got %d", n)
	}
}

func TestChatSessionOpenErrorAppendsApology(t *testing.T) {
	transport := &mockTransport{openErr: errors.New("connection refused")}
	s := newTestSession(nil, transport)

	if err := s.Submit(context.Background(), "hola"); err != nil {
		t.Fatalf("transport failures must not surface, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Transcript) != 2 || snap.Transcript[1].Content != domain.ApologyContent {
		t.Fatalf("expected apology appended, got %+v", snap.Transcript)
	}
	if snap.Pending || snap.ReasoningCaption != "" || snap.Streaming {
		t.Fatalf("expected flags cleared, got %+v", snap)
	}
}

func TestChatSessionReadErrorMidStream(t *testing.T) {
	body := &chunkReader{
		chunks: []string{lines(`{"type":"text","data":"parcial"}`)},
		err:    errors.New("unexpected EOF"),
	}
	s := newTestSession(nil, &mockTransport{bodies: []*chunkReader{body}})

	if err := s.Submit(context.Background(), "hola"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Transcript) != 3 {
		t.Fatalf("expected user, partial, apology; got %+v", snap.Transcript)
	}
	if snap.Transcript[1].Content != "parcial" || snap.Transcript[2].Content != domain.ApologyContent {
		t.Fatalf("unexpected transcript: %+v", snap.Transcript)
	}
	if snap.OpenMessageID != "" || snap.Pending {
		t.Fatalf("expected closed turn, got %+v", snap)
	}
}

func TestChatSessionEarlyEndFinalizesPartial(t *testing.T) {
	body := &chunkReader{chunks: []string{
		lines(`{"type":"conversation_id","data":"conv-7"}`, `{"type":"text","data":"Hi"}`),
		`{"type":"text","data":"lost`,
	}}
	s := newTestSession(nil, &mockTransport{bodies: []*chunkReader{body}})

	if err := s.Submit(context.Background(), "hola"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	snap := s.Snapshot()
	if snap.ConversationID != "conv-7" {
		t.Fatalf("expected conversation id, got %q", snap.ConversationID)
	}
	if len(snap.Transcript) != 2 || snap.Transcript[1].Content != "Hi" {
		t.Fatalf("expected finalized partial message, got %+v", snap.Transcript)
	}
	if snap.Pending || snap.OpenMessageID != "" {
		t.Fatalf("expected closed turn, got %+v", snap)
	}
}

func TestChatSessionReusesConversationID(t *testing.T) {
	transport := &mockTransport{bodies: []*chunkReader{
		{chunks: []string{lines(`{"type":"conversation_id","data":"conv-1"}`, `{"type":"done"}`)}},
		{chunks: []string{lines(`{"type":"conversation_id","data":"conv-2"}`, `{"type":"done"}`)}},
	}}
	s := newTestSession(nil, transport)

	for _, text := range []string{"uno", "dos"} {
		if err := s.Submit(context.Background(), text); err != nil {
			t.Fatalf("submit %q: %v", text, err)
		}
	}
	if transport.requests[0].ConversationID != "" {
		t.Fatalf("first turn must not carry a conversation id, got %q", transport.requests[0].ConversationID)
	}
	second := transport.requests[1]
	if second.ConversationID != "conv-1" || second.Message != "dos" || second.UserID != "user-1" {
		t.Fatalf("unexpected second request: %+v", second)
	}
	if s.Snapshot().ConversationID != "conv-1" {
		t.Fatalf("conversation id must not change within the session")
	}
}

func TestChatSessionRejectsConcurrentTurn(t *testing.T) {
	transport := &mockTransport{block: make(chan struct{})}
	s := newTestSession(nil, transport)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "uno") }()

	deadline := time.After(2 * time.Second)
	for !s.Snapshot().Pending {
		select {
		case <-deadline:
			t.Fatalf("first turn never became pending")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := s.Submit(context.Background(), "dos"); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("expected ErrTurnInFlight, got %v", err)
	}
	close(transport.block)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}
	if n := len(s.Snapshot().Transcript); n != 1 {
		t.Fatalf("rejected turn must not touch the transcript, got %d messages", n)
	}
}

func TestChatSessionCancellationDoesNotApologize(t *testing.T) {
	transport := &mockTransport{block: make(chan struct{})}
	s := newTestSession(nil, transport)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Submit(ctx, "uno") }()
	for !s.Snapshot().Pending {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Transcript) != 1 || snap.Pending {
		t.Fatalf("expected only the user message and no pending turn, got %+v", snap)
	}
}

func TestChatSessionObserversSeeEveryChange(t *testing.T) {
	body := &chunkReader{chunks: []string{lines(
		`{"type":"reasoning","data":"Looking up order"}`,
		`{"type":"text","data":"a"}`,
		`{"type":"unknown"}`,
		`{"type":"done"}`,
	)}}
	s := newTestSession(nil, &mockTransport{bodies: []*chunkReader{body}})

	var seen []domain.Snapshot
	unsubscribe := s.Subscribe(func(snap domain.Snapshot) { seen = append(seen, snap) })

	if err := s.Submit(context.Background(), "q"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// submit, reasoning, text, done, fin de stream
	if len(seen) != 5 {
		t.Fatalf("expected 5 notifications, got %d", len(seen))
	}
	if !seen[0].Pending || seen[0].ReasoningCaption != domain.InitialReasoning {
		t.Fatalf("first notification must show the pending turn, got %+v", seen[0])
	}
	if seen[1].ReasoningCaption != "Looking up order" {
		t.Fatalf("expected caption update, got %+v", seen[1])
	}
	if seen[4].Pending {
		t.Fatalf("last notification must show the closed turn")
	}

	unsubscribe()
	_ = s.Submit(context.Background(), "otra")
	if len(seen) != 5 {
		t.Fatalf("expected no notifications after unsubscribe, got %d", len(seen))
	}
}

func TestChatSessionRejectsInvalidInput(t *testing.T) {
	var nilSession *ChatSession
	if err := nilSession.Submit(context.Background(), "x"); !errors.Is(err, ErrSessionNotConfigured) {
		t.Fatalf("expected ErrSessionNotConfigured, got %v", err)
	}
	if err := NewChatSession(nil, nil, "u").Submit(context.Background(), "x"); !errors.Is(err, ErrSessionNotConfigured) {
		t.Fatalf("expected ErrSessionNotConfigured for nil transport, got %v", err)
	}

	s := newTestSession(nil, &mockTransport{})
	if err := s.Submit(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if len(s.Snapshot().Transcript) != 0 {
		t.Fatalf("rejected submission must not change the transcript")
	}
}
