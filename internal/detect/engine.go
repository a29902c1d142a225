package detect

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"officer-intel/backend/internal/aggregate"
	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/extract"
	"officer-intel/backend/internal/names"
	"officer-intel/backend/internal/scoring"
	"officer-intel/backend/internal/util"
)

// BlobSource gathers the per-channel text for a company.
type BlobSource interface {
	Gather(ctx context.Context, company string) []candidate.Blob
}

// Options wires an Engine. Zero values select the bundled defaults.
type Options struct {
	Vocabulary *names.Vocabulary
	Matchers   []names.Matcher
	Rules      []extract.Rule
	Weights    *scoring.Weights
	Recognizer extract.Recognizer
	Source     BlobSource
}

// Engine runs the treasurer detection pipeline.
type Engine struct {
	recognizer extract.Recognizer
	scorer     *scoring.Scorer
	weights    scoring.Weights
	source     BlobSource
}

// ErrNoSource is returned by Detect when the engine was built without a blob source.
var ErrNoSource = errors.New("detection engine has no blob source")

// NewEngine builds an engine from options.
func NewEngine(opts Options) (*Engine, error) {
	vocab := opts.Vocabulary
	if vocab == nil {
		var err error
		vocab, err = names.DefaultVocabulary()
		if err != nil {
			return nil, err
		}
	}

	weights := scoring.DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	recognizer := opts.Recognizer
	if recognizer == nil {
		validator, err := names.NewValidator(vocab, opts.Matchers...)
		if err != nil {
			return nil, err
		}
		recognizer = extract.NewExtractor(validator, opts.Rules)
	}

	return &Engine{
		recognizer: recognizer,
		scorer:     scoring.NewScorer(vocab, weights),
		weights:    weights,
		source:     opts.Source,
	}, nil
}

// Weights returns the calibration the engine scores and decides with.
func (e *Engine) Weights() scoring.Weights {
	return e.weights
}

// HasSource reports whether Detect can gather evidence.
func (e *Engine) HasSource() bool {
	return e.source != nil
}

// Detect gathers evidence for company and analyzes it.
func (e *Engine) Detect(ctx context.Context, company string) (scoring.DetectionResult, error) {
	if e.source == nil {
		return scoring.DetectionResult{}, ErrNoSource
	}
	company = strings.TrimSpace(company)
	sw := util.StartStopwatch()

	blobs := e.source.Gather(ctx, company)
	sw.Lap("gather")
	if err := ctx.Err(); err != nil {
		return scoring.DetectionResult{}, err
	}

	res := e.Analyze(company, blobs)
	sw.Lap("analyze")

	laps := sw.Laps()
	logrus.WithFields(logrus.Fields{
		"company":    company,
		"status":     res.Status,
		"candidates": len(res.Candidates),
		"gather_ms":  laps["gather"],
		"analyze_ms": laps["analyze"],
	}).Info("treasurer detection completed")
	return res, nil
}

// Analyze turns gathered blobs into a decision. It performs no I/O and returns
// the same result for the same input.
func (e *Engine) Analyze(company string, blobs []candidate.Blob) scoring.DetectionResult {
	company = strings.TrimSpace(company)
	minConfidence := e.weights.Thresholds.MinConfidence

	combined := false
	lists := make([][]candidate.Candidate, 0, len(blobs))
	for _, blob := range blobs {
		if strings.TrimSpace(blob.Text) == "" {
			continue
		}
		if aggregate.IsDefinitiveDualRole(blob.Text) {
			logrus.WithFields(logrus.Fields{
				"company": company,
				"channel": blob.Channel,
			}).Debug("blob states a combined CFO and treasurer role")
			combined = true
			continue
		}
		lists = append(lists, e.candidates(company, blob, minConfidence))
	}

	// A combined-role statement only zeroes its own blob; it decides the
	// result when no other channel produced a candidate.
	merged := aggregate.Merge(lists...)
	return scoring.Decide(scoring.DecisionInput{
		Company:         company,
		Candidates:      merged,
		RoleCombination: combined && len(merged) == 0,
	}, e.weights.Thresholds)
}

func (e *Engine) candidates(company string, blob candidate.Blob, minConfidence float64) []candidate.Candidate {
	var out []candidate.Candidate
	for _, m := range e.recognizer.Extract(blob.Text, company) {
		confidence, issues := e.scorer.Score(m.Name, m.Context, blob.Channel)
		if confidence < minConfidence {
			logrus.WithFields(logrus.Fields{
				"name":       m.Name,
				"channel":    blob.Channel,
				"confidence": confidence,
			}).Debug("dropping low confidence candidate")
			continue
		}
		out = append(out, candidate.Candidate{
			Name:        m.Name,
			Confidence:  confidence,
			Source:      blob.Channel,
			Evidence:    candidate.Excerpt(m.Context),
			Issues:      issues,
			LinkedInURL: extract.LinkedInURL(m.Name, blob.Text),
		})
	}
	return out
}
