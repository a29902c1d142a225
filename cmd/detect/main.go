// Command detect runs treasurer detection and facility extraction from the
// command line and prints JSON results.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"officer-intel/backend/internal/config"
	"officer-intel/backend/internal/logging"
)

var (
	// Global flags
	scoringConfig string
	vocabPath     string
	verbose       bool

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "detect",
	Short: "Officer intelligence from the command line",
	Long: `detect finds the treasurer of a company from public web text and
extracts credit facilities and notes from SEC filings.

Configuration is read from the same environment variables as the server.
Results are printed to stdout as JSON; logs go to stderr.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv().Logging
		if verbose {
			cfg.Level = "debug"
		}
		logCloser = logging.Setup(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&scoringConfig, "scoring-config", "", "YAML scoring calibration (overrides SCORING_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&vocabPath, "vocab", "", "name vocabulary JSON (overrides NAMES_VOCAB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(detectCmd, analyzeCmd, facilitiesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the global flag overrides to the environment config.
func loadConfig() config.Config {
	cfg := config.FromEnv()
	if scoringConfig != "" {
		cfg.ScoringConfig = scoringConfig
	}
	if vocabPath != "" {
		cfg.VocabularyPath = vocabPath
	}
	return cfg
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
