package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ineffablesam/cf-ai-meetmate/internal/capture"
	"github.com/ineffablesam/cf-ai-meetmate/internal/config"
	"github.com/ineffablesam/cf-ai-meetmate/internal/storage"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check MeetMate prerequisites and storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			fmt.Println("MeetMate Status")
			fmt.Println("===============")

			if err := capture.CheckFFmpeg(); err != nil {
				fmt.Printf("ffmpeg:   MISSING (%v)\n", err)
			} else {
				fmt.Println("ffmpeg:   ok")
			}

			if cfg.AI.APIKey == "" {
				fmt.Println("AI key:   not set (set OPENAI_API_KEY or ai.api_key)")
			} else {
				fmt.Println("AI key:   set")
			}

			store, err := storage.NewStore(cfg.Database.Path)
			if err != nil {
				fmt.Printf("database: FAILED (%v)\n", err)
				return nil
			}
			defer store.Close()
			fmt.Printf("database: ok (%s)\n", cfg.Database.Path)

			return nil
		},
	}
}
