package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/threatlens/internal/model"
	"github.com/nao1215/threatlens/internal/normalize"
)

// errFallbackUsed is returned by normalize --strict when the input could not be parsed.
var errFallbackUsed = errors.New("input could not be parsed; fallback report used")

// NewNormalizeCmd creates the normalize command.
func NewNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize [file]",
		Short: "Normalize a raw model answer into a threat report",
		Long: `Normalize reads a raw model answer from a file (or stdin) and prints the
complete threat report it normalizes to, as JSON. No provider is called.

Code fences, a leading "json" token and any prose around the JSON object are
ignored. Missing or malformed fields take documented defaults, and input that
contains no usable JSON object yields the cautious fallback report.

Examples:
  # Normalize a saved answer for a URL scan
  threatlens normalize answer.txt

  # Normalize a message answer from stdin and fail if it could not be parsed
  pbpaste | threatlens normalize --kind message --strict`,
		Args: cobra.MaximumNArgs(1),
		RunE: runNormalizeCmd,
	}

	cmd.Flags().StringP("kind", "k", string(model.KindURL), "Report kind: url or message")
	cmd.Flags().Bool("strict", false, "Exit with an error when the fallback report is used")
	cmd.Flags().Bool("compact", false, "Print compact JSON")

	return cmd
}

// runNormalizeCmd executes the normalize command.
func runNormalizeCmd(cmd *cobra.Command, args []string) error {
	kindFlag, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	kind, err := model.ParseKind(kindFlag)
	if err != nil {
		return err
	}
	strict, err := cmd.Flags().GetBool("strict")
	if err != nil {
		return err
	}
	compact, err := cmd.Flags().GetBool("compact")
	if err != nil {
		return err
	}

	var raw []byte
	if len(args) == 1 && args[0] != "-" {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	logger := setupLogger(getVerboseFlag(cmd))
	report, outcome := normalize.New(normalize.WithLogger(logger)).Parse(string(raw), kind)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	if !compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if strict && outcome == normalize.OutcomeFallback {
		return errFallbackUsed
	}
	return nil
}
