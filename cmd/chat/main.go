package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/term"

	"support-chat/internal/agentapi"
	"support-chat/internal/config"
	"support-chat/internal/domain"
	"support-chat/internal/logging"
	"support-chat/internal/render"
	"support-chat/internal/service"
)

const defaultWrap = 80

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadClientConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	wrap := 0
	if cfg.RenderMarkdown {
		wrap = terminalWidth()
	}
	out := render.NewTerminal(os.Stdout, wrap, tty)

	client := agentapi.NewHTTPClient(cfg.APIBaseURL, cfg.RequestTimeout, logger)
	session := service.NewChatSession(logger, client, cfg.UserID)
	unsubscribe := session.Subscribe(out.OnSnapshot)
	defer unsubscribe()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out.PrintWelcome(cfg.UserID)
	reader := bufio.NewReader(os.Stdin)
	for {
		out.PrintPrompt()
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		input := strings.TrimSpace(line)

		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "salir"), strings.EqualFold(input, "exit"), input == "/salir":
			return
		case input == "/history":
			out.PrintHistory(session.Snapshot())
			continue
		}

		text, ok := resolveQuickAction(input, len(session.Snapshot().Transcript))
		if !ok {
			fmt.Println("Las acciones rapidas solo estan disponibles al iniciar la conversacion.")
			continue
		}

		if err := session.Submit(ctx, text); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("submit failed", zap.Error(err))
			fmt.Printf("No se pudo enviar el mensaje: %v\n", err)
		}
	}
}

// resolveQuickAction traduce /1../N a la consulta predefinida. Solo aplica
// con el transcript vacio.
func resolveQuickAction(input string, transcriptLen int) (string, bool) {
	if !strings.HasPrefix(input, "/") {
		return input, true
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(input, "/"))
	if err != nil || idx < 1 || idx > len(domain.QuickActions) {
		return input, true
	}
	if transcriptLen > 0 {
		return "", false
	}
	return domain.QuickActions[idx-1].Query, true
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return defaultWrap
	}
	if width > 120 {
		return 120
	}
	return width
}
