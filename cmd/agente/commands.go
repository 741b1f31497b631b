package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/agente/internal/agent"
	"github.com/kalambet/agente/internal/api"
	"github.com/kalambet/agente/internal/auth"
	"github.com/kalambet/agente/internal/calendar"
	"github.com/kalambet/agente/internal/config"
	"github.com/kalambet/agente/internal/intent"
	"github.com/kalambet/agente/internal/llm"
	"github.com/kalambet/agente/internal/notify"
	"github.com/kalambet/agente/internal/store"
	"github.com/kalambet/agente/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agent server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "agente version %s\n", version)

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := store.New()

	var backend llm.Backend
	switch cfg.LLM.Provider {
	case "apifreellm":
		backend = llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
		slog.Info("LLM backend ready", "provider", "apifreellm", "model", cfg.LLM.Model)
	default:
		backend = llm.Sim{}
		slog.Info("LLM backend ready", "provider", "sim")
	}
	svc := llm.NewService(backend, cfg.LLM.ChunkSize)

	var cal calendar.Client
	switch cfg.Calendar.Provider {
	case "http":
		cal = calendar.NewHTTPClient(cfg.Calendar.BaseURL, cfg.Calendar.Token)
		slog.Info("calendar client ready", "provider", "http", "base_url", cfg.Calendar.BaseURL)
	default:
		cal = calendar.NewMemoryClient()
		slog.Info("calendar client ready", "provider", "memory")
	}

	loc, err := time.LoadLocation(cfg.Calendar.Timezone)
	if err != nil {
		slog.Warn("invalid timezone, using UTC", "timezone", cfg.Calendar.Timezone, "error", err)
		loc = time.UTC
	}
	parser := intent.NewParser(svc, cal, loc)

	registry := tools.NewRegistry()
	registry.Register(tools.NewPDFTool(s))
	registry.Register(calendar.NewTool(cal))

	tracker := agent.NewTracker(s)
	hub := notify.NewHub()
	sender := agent.NewSender(s, svc, registry, parser, tracker, agent.Config{
		MaxHistoryMessages: cfg.Agent.MaxHistoryMessages,
	})

	authSvc := auth.NewService(nil)
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	handler := api.NewHandler(api.Deps{
		Store:    s,
		Auth:     authSvc,
		Tokens:   tokens,
		LLM:      svc,
		Calendar: cal,
		Sender:   sender,
		Tracker:  tracker,
		Hub:      hub,
		Logger:   slog.Default(),

		NotifyOnComplete: cfg.Agent.NotifyOnComplete,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{Store: s, Calendar: cal})
	stdioSrv := mcpserver.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("agente listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func showStatus() error {
	cfg := config.Load()

	client := &http.Client{Timeout: 2 * time.Second}
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("LLM provider", "%s", cfg.LLM.Provider)
	printStatus("Calendar provider", "%s", cfg.Calendar.Provider)
	printStatus("Timezone", "%s", cfg.Calendar.Timezone)
	return nil
}
