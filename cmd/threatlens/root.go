package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for threatlens.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threatlens",
		Short: "Scam and phishing analysis for URLs and messages",
		Long: `threatlens analyzes URLs and messages for scams, phishing and fraud.

Targets are sent to Google Gemini when GEMINI_API_KEY is set; otherwise an
offline keyword heuristic is used. Whatever the provider answers is normalized
into a complete threat report, falling back to a cautious default when the
answer cannot be parsed.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .threatlens in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewNormalizeCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
