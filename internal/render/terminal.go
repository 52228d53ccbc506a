package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"support-chat/internal/domain"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

var agentColors = map[string]string{
	domain.AgentOrder:   "\033[34m",
	domain.AgentBilling: "\033[32m",
	domain.AgentSupport: "\033[35m",
}

// Terminal dibuja los snapshots de una sesion en una terminal. Escribe el
// texto a medida que llega y, al finalizar un mensaje con markdown, lo vuelve
// a mostrar renderizado.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	markdown *glamour.TermRenderer
	color    bool

	rendered    int
	partial     int
	lastAgent   string
	lastCaption string
}

// NewTerminal crea el renderer. wrap <= 0 desactiva el render de markdown.
func NewTerminal(out io.Writer, wrap int, color bool) *Terminal {
	t := &Terminal{out: out, color: color}
	if wrap > 0 {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap)); err == nil {
			t.markdown = r
		}
	}
	return t
}

func (t *Terminal) paint(color, s string) string {
	if !t.color {
		return s
	}
	return color + s + colorReset
}

// PrintWelcome muestra las acciones rapidas disponibles.
func (t *Terminal) PrintWelcome(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.paint(colorBold+colorCyan, "AI Support Assistant"))
	fmt.Fprintf(t.out, "%s\n\n", t.paint(colorGray, "Usuario: "+userID+" · comandos: /history /salir"))
	fmt.Fprintln(t.out, "Acciones rapidas:")
	for i, a := range domain.QuickActions {
		fmt.Fprintf(t.out, "  /%d  %s\n", i+1, a.Label)
	}
}

// OnSnapshot se registra con ChatSession.Subscribe.
func (t *Terminal) OnSnapshot(snap domain.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if snap.ActiveAgent != "" && snap.ActiveAgent != t.lastAgent {
		t.lastAgent = snap.ActiveAgent
		t.endPartialLine()
		fmt.Fprintln(t.out, t.paint(colorDim, "● "+AgentStatus(snap.ActiveAgent)))
	}
	if snap.ReasoningCaption != t.lastCaption {
		t.lastCaption = snap.ReasoningCaption
		if snap.ReasoningCaption != "" && t.partial == 0 {
			fmt.Fprintln(t.out, t.paint(colorDim, "… "+snap.ReasoningCaption))
		}
	}

	for t.rendered < len(snap.Transcript) {
		msg := snap.Transcript[t.rendered]
		if msg.Role == domain.RoleUser {
			t.rendered++
			continue
		}
		if t.partial == 0 {
			fmt.Fprintf(t.out, "%s ", t.paint(colorBold+agentColors[msg.Agent], speaker(msg)))
		}
		if len(msg.Content) > t.partial {
			fmt.Fprint(t.out, msg.Content[t.partial:])
			t.partial = len(msg.Content)
		}
		if msg.ID == snap.OpenMessageID {
			return
		}
		fmt.Fprintln(t.out)
		t.renderMarkdown(msg.Content)
		t.rendered++
		t.partial = 0
	}
}

func (t *Terminal) endPartialLine() {
	if t.partial > 0 {
		fmt.Fprintln(t.out)
	}
}

func (t *Terminal) renderMarkdown(content string) {
	if t.markdown == nil || !looksLikeMarkdown(content) {
		return
	}
	out, err := t.markdown.Render(content)
	if err != nil {
		return
	}
	fmt.Fprint(t.out, out)
}

// PrintHistory imprime el transcript completo.
func (t *Terminal) PrintHistory(snap domain.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, t.paint(colorGray, fmt.Sprintf("%d mensajes", len(snap.Transcript))))
	for _, msg := range snap.Transcript {
		fmt.Fprintf(t.out, "[%s] %s %s\n", msg.Timestamp.Local().Format("15:04:05"), speaker(msg), msg.Content)
	}
}

// PrintPrompt muestra el prompt de entrada.
func (t *Terminal) PrintPrompt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.out, "\n"+t.paint(colorBold+colorGreen, "Tu > "))
}

// AgentStatus describe el agente activo.
func AgentStatus(agent string) string {
	return agent + " Agent Active"
}

func speaker(msg domain.Message) string {
	if msg.Role == domain.RoleUser {
		return "Tu >"
	}
	if msg.Agent == "" {
		return "Asistente >"
	}
	return msg.Agent + " >"
}

func looksLikeMarkdown(s string) bool {
	for _, marker := range []string{"**", "`", "# ", "\n- ", "\n* ", "](", "*"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
