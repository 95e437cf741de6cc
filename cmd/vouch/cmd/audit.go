package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/narthex/vouch/auth"
	bboltstore "github.com/narthex/vouch/store/bbolt"
)

var (
	auditDataDir   string
	auditRequestID string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit trail inspection tools",
	Long:  `Commands for reading the append-only authentication audit trail.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print audit entries, newest first, as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := bboltstore.NewFromFile(auditDataDir+"/vouch.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer st.Close()

		trail := auth.NewTrail(st, slog.New(slog.NewTextHandler(io.Discard, nil)))
		entries, err := trail.List(auditRequestID)
		if err != nil {
			return fmt.Errorf("failed to read audit trail: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		for _, entry := range entries {
			if err := enc.Encode(entry); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditListCmd.PersistentFlags().StringVar(&auditDataDir, "data-dir", "./data", "Directory holding the BBolt database")
	auditListCmd.PersistentFlags().StringVar(&auditRequestID, "request-id", "", "Filter entries by request id")
}
