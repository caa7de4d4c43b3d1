// File: cmd/serve.go
package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmosier/campusnav/internal/agent"
	"github.com/jmosier/campusnav/internal/canvas"
	"github.com/jmosier/campusnav/internal/config"
	"github.com/jmosier/campusnav/internal/llmclient"
	"github.com/jmosier/campusnav/internal/navigator"
	"github.com/jmosier/campusnav/internal/observability"
	"github.com/jmosier/campusnav/internal/server"
	"github.com/jmosier/campusnav/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API: chat, portal navigation, LMS queries, and profiles.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cfg *config.Config) error {
	logger := observability.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nav := navigator.New(logger, cfg)
	defer func() {
		if err := nav.Sessions().Shutdown(); err != nil {
			logger.Warn("Browser session shutdown failed", zap.Error(err))
		}
	}()

	deps := server.Deps{
		Navigator: nav,
		NotFound:  store.ErrNotFound,
	}

	// LMS access and chat are optional capabilities: each comes up only when
	// its credential is configured, and the API degrades gracefully without.
	var lms *canvas.Client
	if cfg.Canvas.Token != "" {
		lms = canvas.NewClient(logger, cfg.Canvas)
		deps.LMS = lms
	} else {
		logger.Warn("CANVAS_API_KEY not set; LMS endpoints disabled")
	}

	if cfg.LLM.APIKey != "" {
		llm, err := llmclient.NewGeminiClient(cfg.LLM, logger)
		if err != nil {
			return err
		}
		chat := agent.New(logger, llm, cfg.LLM.MaxToolRounds)
		if lms != nil {
			agent.RegisterDefaultTools(chat, lms, nav)
		} else {
			agent.RegisterDefaultTools(chat, nil, nav)
		}
		deps.Agent = chat
	} else {
		logger.Warn("GEMINI_API_KEY not set; chat endpoint disabled")
	}

	profiles, err := store.New(ctx, cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	defer profiles.Close()
	deps.Store = profiles

	srv := server.New(logger, cfg.Server, deps)
	return srv.Run(ctx)
}
