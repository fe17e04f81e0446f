// naochat is the conversational backend for a NAO social robot: it holds the
// chat sessions, talks to the LLM provider, enforces the structured response
// contract and transcribes voice clips through a local Vosk server.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naosocial/go-naochat/internal/config"
	"github.com/naosocial/go-naochat/internal/log"
	"github.com/naosocial/go-naochat/pkg/actions"
	"github.com/naosocial/go-naochat/pkg/animation"
	"github.com/naosocial/go-naochat/pkg/chat"
	"github.com/naosocial/go-naochat/pkg/chatlog"
	"github.com/naosocial/go-naochat/pkg/contract"
	"github.com/naosocial/go-naochat/pkg/inference"
	"github.com/naosocial/go-naochat/pkg/persona"
	"github.com/naosocial/go-naochat/pkg/stt"
	"github.com/naosocial/go-naochat/pkg/web"
)

func main() {
	envPath := flag.String("env", ".env", "path to the .env file")
	flag.Parse()

	cfg := config.Load(*envPath)
	log.Init(cfg.LogLevel)

	clog, err := chatlog.New(cfg.LogsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot open chat log directory %s: %v\n", cfg.LogsDir, err)
		os.Exit(1)
	}
	defer clog.Close()

	table, err := actions.Load(cfg.ActionsFile)
	if err != nil {
		log.Warn("action table unavailable, continuing without actions", "error", err)
	}
	log.Info("action table loaded", "actions", table.Len())

	movements, err := animation.LoadCatalog(cfg.MovementsFile)
	if err != nil {
		log.Warn("movement catalog unavailable, continuing without movement hints", "error", err)
	}
	log.Info("movement catalog loaded", "movements", len(movements))

	technical := persona.RenderTechnical(table.Keys(), movements)
	registry := persona.NewRegistry(cfg.PromptsDir, cfg.DefaultPersona, technical)
	log.Info("persona registry ready", "personas", len(registry.List()), "default", cfg.DefaultPersona)

	ring := inference.NewKeyRing(cfg.APIKeys)
	if ring.Len() == 0 {
		log.Warn("no API keys configured, provider calls will go out without credentials")
	} else {
		log.Info("credential ring loaded", "keys", ring.Len())
	}

	provider, err := inference.NewGemini(
		inference.WithKeyRing(ring),
		inference.WithModel(cfg.Model),
		inference.WithMaxTokens(cfg.MaxOutputTokens),
		inference.WithTemperature(cfg.Temperature),
		inference.WithTopP(cfg.TopP),
		inference.WithTopK(cfg.TopK),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "provider setup failed: %v\n", err)
		os.Exit(1)
	}
	defer provider.Close()

	parser := contract.NewParser(
		animation.NewResolver(rand.NewSource(time.Now().UnixNano())),
		table,
		clog,
	)

	chatAPI := chat.New(provider, registry, parser, clog, cfg.ContextWindow)

	engine := stt.NewVosk(cfg.VoskURL)
	if !engine.Available() {
		log.Warn("vosk server unreachable, speech endpoints degraded", "url", cfg.VoskURL)
	}

	server := web.NewServer(cfg.Port, chatAPI, engine)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	clog.Info("SERVER_STARTED")
	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
	clog.Info("SERVER_STOPPED")
}
