package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ineffablesam/cf-ai-meetmate/internal/config"
	"github.com/ineffablesam/cf-ai-meetmate/internal/storage"
)

func sessionsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sessions [ownerId]",
		Short: "List recorded sessions for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := storage.NewStore(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("opening session store: %w", err)
			}
			defer store.Close()

			sessions, err := store.ListSessions(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sessions)
			}

			if len(sessions) == 0 {
				fmt.Println("No sessions found")
				return nil
			}
			for _, sess := range sessions {
				line := fmt.Sprintf("%s  %-10s  %s", sess.ID, sess.Status, sess.Name)
				if secs := sess.ProcessingTimeSeconds(); secs != "" {
					line += fmt.Sprintf("  (%ss)", secs)
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}
