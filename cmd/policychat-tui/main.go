package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/liliang-cn/policychat/internal/backend"
	"github.com/liliang-cn/policychat/internal/config"
	"github.com/liliang-cn/policychat/internal/metrics"
	"github.com/liliang-cn/policychat/internal/session"
	"github.com/liliang-cn/policychat/internal/tui"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	plain      = flag.Bool("plain", false, "Disable markdown rendering")
)

func main() {
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs go to a file or nowhere
	logger := zap.NewNop()
	if cfg.Log.File != "" {
		logger, err = cfg.NewLogger()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	answerer := backend.NewHTTPClient(backend.Config{
		URL:     cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
		Headers: cfg.Backend.Headers,
	}, backend.WithLogger(logger.Named("backend")))

	ctrl := session.NewController(answerer, session.Options{
		Greeting:      cfg.Widget.WelcomeMessage,
		MaxInputRunes: cfg.Widget.MaxInputRunes,
		Logger:        logger.Named("session"),
	})

	recorder := metrics.NewRecorder()
	ctrl.Subscribe(recorder.Observe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []tui.Option{
		tui.WithRecorder(recorder),
		tui.WithLogger(logger.Named("tui")),
		tui.WithContext(ctx),
	}
	if *plain {
		opts = append(opts, tui.WithPlainText())
	}

	p := tea.NewProgram(
		tui.New(ctrl, cfg.Widget, opts...),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
