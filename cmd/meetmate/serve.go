package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ineffablesam/cf-ai-meetmate/internal/ai"
	"github.com/ineffablesam/cf-ai-meetmate/internal/capture"
	"github.com/ineffablesam/cf-ai-meetmate/internal/config"
	"github.com/ineffablesam/cf-ai-meetmate/internal/ledger"
	"github.com/ineffablesam/cf-ai-meetmate/internal/notify"
	"github.com/ineffablesam/cf-ai-meetmate/internal/session"
	"github.com/ineffablesam/cf-ai-meetmate/internal/storage"
	"github.com/ineffablesam/cf-ai-meetmate/internal/web"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MeetMate HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			store, err := storage.NewStore(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening session store: %w", err)
			}
			defer store.Close()

			statusLedger := ledger.New(store)
			defer statusLedger.Close()

			aiCfg := ai.Config{
				BaseURL:   cfg.AI.BaseURL,
				APIKey:    cfg.AI.APIKey,
				Model:     cfg.AI.Model,
				TimeoutMS: cfg.AI.TimeoutMS,
			}
			transcriber := ai.NewTranscriber(aiCfg)
			summarizer := ai.NewSummarizer(aiCfg)

			recorder := capture.NewRecorder(capture.Options{
				InputFormat:  cfg.Capture.InputFormat,
				SystemDevice: cfg.Capture.SystemDevice,
				MicDevice:    cfg.Capture.MicDevice,
				WorkDir:      cfg.Capture.WorkDir,
			})

			state := session.NewStateStore(cfg.State.Path)
			pipeline := session.NewPipeline(store, transcriber, summarizer, statusLedger)
			controller := session.NewController(store, statusLedger, recorder, pipeline, state, storage.IDGenerator{})

			server := web.NewServer(controller, store, transcriber, notify.NewNotifier())

			fmt.Printf("Starting MeetMate server at http://localhost%s\n", cfg.Server.Addr)
			return server.Run(cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}
