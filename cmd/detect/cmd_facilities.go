package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"officer-intel/backend/internal/facility"
)

var (
	facilitiesTicker    string
	facilitiesForm      string
	facilitiesSummarize bool
)

type facilitiesOutput struct {
	Ticker       string              `json:"ticker,omitempty"`
	FilingURL    string              `json:"filing_url,omitempty"`
	Facilities   []facility.Facility `json:"facilities"`
	Notes        []facility.Facility `json:"notes"`
	Lines        []string            `json:"lines"`
	Summary      string              `json:"summary,omitempty"`
	SummaryError string              `json:"summary_error,omitempty"`
}

var facilitiesCmd = &cobra.Command{
	Use:   "facilities [file]",
	Short: "Extract credit facilities and notes from a filing",
	Long: `Extracts credit facilities and notes from a filing. The text comes
from the given file ('-' for stdin) or, with --ticker, from the latest
EDGAR filing of that company.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFacilities,
}

func init() {
	facilitiesCmd.Flags().StringVar(&facilitiesTicker, "ticker", "", "fetch the latest filing of this ticker from EDGAR")
	facilitiesCmd.Flags().StringVar(&facilitiesForm, "form", "", "filing form type (default FILING_FORM or 10-Q)")
	facilitiesCmd.Flags().BoolVar(&facilitiesSummarize, "summarize", false, "also produce an AI-formatted summary")
}

func runFacilities(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ticker := strings.ToUpper(strings.TrimSpace(facilitiesTicker))
	if len(args) == 0 && ticker == "" {
		return errors.New("a file or --ticker is required")
	}

	out := facilitiesOutput{Ticker: ticker}
	var text string
	if len(args) == 1 {
		var err error
		if args[0] == "-" {
			text, err = readText(cmd.InOrStdin())
		} else {
			var data []byte
			data, err = os.ReadFile(filepath.Clean(args[0]))
			text = string(data)
		}
		if err != nil {
			return fmt.Errorf("read filing: %w", err)
		}
	} else {
		form := facilitiesForm
		if form == "" {
			form = cfg.FilingForm
		}
		doc, url, err := cfg.Filings().LatestDocument(cmd.Context(), ticker, form)
		if err != nil {
			return fmt.Errorf("fetch %s %s: %w", ticker, form, err)
		}
		text = doc
		out.FilingURL = url
	}

	extractor, err := cfg.Facilities()
	if err != nil {
		return err
	}
	res := extractor.Extract(text)
	out.Facilities = res.Facilities
	out.Notes = res.Notes
	out.Lines = facility.Lines(res)

	if facilitiesSummarize {
		summary, err := facility.FormatWithCompleter(cmd.Context(), cfg.Completer(), res)
		if err != nil {
			logrus.WithError(err).Warn("facility summary unavailable")
			out.SummaryError = err.Error()
		} else {
			out.Summary = summary
		}
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func readText(r io.Reader) (string, error) {
	data, err := readAll(r)
	return string(data), err
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, 64<<20))
}
