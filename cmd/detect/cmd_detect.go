package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/scoring"
	"officer-intel/backend/internal/util"
)

var (
	legacyOutput   bool
	blobsPath      string
	analyzeCompany string
)

// detectionOutput is the JSON printed by detect and analyze.
type detectionOutput struct {
	Company          string                  `json:"company"`
	Legacy           string                  `json:"legacy"`
	ProcessingTimeMs int64                   `json:"processing_time_ms"`
	Result           scoring.DetectionResult `json:"result"`
}

var detectCmd = &cobra.Command{
	Use:   "detect <company>",
	Short: "Gather public text for a company and detect its treasurer",
	Long: `Searches the web for the company's treasurer, scores every candidate
name and prints the decision. Requires SERPAPI_API_KEY.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score previously gathered text blobs without network access",
	Long: `Reads a JSON array of {"channel": ..., "text": ...} blobs and runs
extraction, scoring and the decision rules over them.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	detectCmd.Flags().BoolVar(&legacyOutput, "legacy", false, "print only the one-line answer")

	analyzeCmd.Flags().StringVar(&blobsPath, "blobs", "", "path to the blobs JSON file ('-' for stdin)")
	analyzeCmd.Flags().StringVar(&analyzeCompany, "company", "", "company the blobs describe")
	_ = analyzeCmd.MarkFlagRequired("blobs")
	_ = analyzeCmd.MarkFlagRequired("company")
}

func runDetect(cmd *cobra.Command, args []string) error {
	company := strings.Join(args, " ")
	cfg := loadConfig()

	engine, closeEngine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer closeEngine()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DetectTimeout)
	defer cancel()

	sw := util.StartStopwatch()
	res, err := engine.Detect(ctx, company)
	if err != nil {
		return fmt.Errorf("detect %q: %w", company, err)
	}
	logrus.WithFields(logrus.Fields{
		"company":    company,
		"status":     res.Status,
		"elapsed_ms": sw.ElapsedMs(),
	}).Debug("detection finished")

	if legacyOutput {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), scoring.LegacyFormat(res))
		return err
	}
	return printJSON(cmd.OutOrStdout(), detectionOutput{
		Company:          company,
		Legacy:           scoring.LegacyFormat(res),
		ProcessingTimeMs: sw.ElapsedMs(),
		Result:           res,
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	blobs, err := readBlobs(cmd, blobsPath)
	if err != nil {
		return err
	}

	engine, closeEngine, err := loadConfig().Engine()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer closeEngine()

	sw := util.StartStopwatch()
	res := engine.Analyze(analyzeCompany, blobs)
	return printJSON(cmd.OutOrStdout(), detectionOutput{
		Company:          analyzeCompany,
		Legacy:           scoring.LegacyFormat(res),
		ProcessingTimeMs: sw.ElapsedMs(),
		Result:           res,
	})
}

func readBlobs(cmd *cobra.Command, path string) ([]candidate.Blob, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = readAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read blobs: %w", err)
	}

	var blobs []candidate.Blob
	if err := json.Unmarshal(data, &blobs); err != nil {
		return nil, fmt.Errorf("decode blobs: %w", err)
	}
	for i, blob := range blobs {
		ch, ok := candidate.ParseChannel(string(blob.Channel))
		if !ok {
			return nil, fmt.Errorf("blob %d: unknown channel %q", i, blob.Channel)
		}
		blobs[i].Channel = ch
	}
	return blobs, nil
}
