package store

import (
	"encoding/json"
	"strings"
	"time"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/facility"
	"officer-intel/backend/internal/scoring"
)

// DetectionRun is one archived treasurer detection.
type DetectionRun struct {
	ID                string `gorm:"primaryKey;size:64"`
	Company           string `gorm:"size:255"`
	CompanyNormalized string `gorm:"size:255;index"`
	Status            string `gorm:"size:32;index"`
	PrimaryName       string `gorm:"size:255"`
	ConfidenceLevel   string `gorm:"size:16"`
	Recommendation    string `gorm:"type:text"`
	EmailStrategy     string `gorm:"size:32"`
	LegacyAnswer      string `gorm:"size:255"`
	JobID             string `gorm:"size:64;index"`
	ProcessingTimeMs  int64
	Candidates        []CandidateRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CandidateRecord is one ranked candidate of a run. Position 1 is the top
// candidate.
type CandidateRecord struct {
	ID          uint   `gorm:"primaryKey"`
	RunID       string `gorm:"size:64;index"`
	Position    int
	Name        string `gorm:"size:255;index"`
	Confidence  float64
	Source      string `gorm:"size:64"`
	Evidence    string `gorm:"type:text"`
	IssuesJSON  string `gorm:"type:text"`
	LinkedInURL string `gorm:"size:512"`
	CreatedAt   time.Time
}

// SetIssues stores the issue tags as JSON.
func (r *CandidateRecord) SetIssues(issues candidate.Issues) {
	if issues == nil {
		r.IssuesJSON = "[]"
		return
	}
	payload, _ := json.Marshal(issues)
	r.IssuesJSON = string(payload)
}

// Issues decodes the stored issue tags.
func (r *CandidateRecord) Issues() candidate.Issues {
	if strings.TrimSpace(r.IssuesJSON) == "" {
		return nil
	}
	var out candidate.Issues
	if err := json.Unmarshal([]byte(r.IssuesJSON), &out); err != nil {
		return nil
	}
	return out
}

// FacilityRecord is one archived debt instrument.
type FacilityRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Ticker       string `gorm:"size:16;index"`
	FilingURL    string `gorm:"size:512"`
	Name         string `gorm:"size:255"`
	Kind         string `gorm:"size:32"`
	IsNote       bool   `gorm:"index"`
	MaxAmount    float64
	Currency     string `gorm:"size:8"`
	InterestRate string `gorm:"size:128"`
	Maturity     string `gorm:"size:32"`
	MaturityYear int
	LeadEntity   string `gorm:"size:255"`
	Confidence   float64
	SourceText   string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// JobState persists batch job metadata so a restarted server can report the
// last known status.
type JobState struct {
	JobID         string `gorm:"primaryKey;size:64"`
	Status        string `gorm:"size:32;index"`
	Message       string `gorm:"size:255"`
	Processed     int
	Total         int
	LastEventJSON string `gorm:"type:text"`
	UpdatedAt     time.Time
	CreatedAt     time.Time
}

// NewDetectionRun converts a detection result into an archive row. An empty id
// is filled in by SaveDetection.
func NewDetectionRun(id string, res scoring.DetectionResult, elapsedMs int64) *DetectionRun {
	run := &DetectionRun{
		ID:               id,
		Company:          res.Company,
		Status:           string(res.Status),
		PrimaryName:      res.PrimaryName,
		ConfidenceLevel:  string(res.ConfidenceLevel),
		Recommendation:   res.Recommendation,
		EmailStrategy:    string(res.EmailStrategy),
		LegacyAnswer:     scoring.LegacyFormat(res),
		ProcessingTimeMs: elapsedMs,
	}
	for i, c := range res.Candidates {
		rec := CandidateRecord{
			Position:    i + 1,
			Name:        c.Name,
			Confidence:  c.Confidence,
			Source:      string(c.Source),
			Evidence:    c.Evidence,
			LinkedInURL: c.LinkedInURL,
		}
		rec.SetIssues(c.Issues)
		run.Candidates = append(run.Candidates, rec)
	}
	return run
}

// Result rebuilds the detection result from the archived row. Candidates must
// be loaded.
func (r *DetectionRun) Result() scoring.DetectionResult {
	res := scoring.DetectionResult{
		Company:         r.Company,
		Status:          scoring.Status(r.Status),
		PrimaryName:     r.PrimaryName,
		ConfidenceLevel: scoring.ConfidenceLevel(r.ConfidenceLevel),
		Recommendation:  r.Recommendation,
		EmailStrategy:   scoring.EmailStrategy(r.EmailStrategy),
		Candidates:      make([]candidate.Candidate, 0, len(r.Candidates)),
	}
	for _, rec := range r.Candidates {
		res.Candidates = append(res.Candidates, candidate.Candidate{
			Name:        rec.Name,
			Confidence:  rec.Confidence,
			Source:      candidate.Channel(rec.Source),
			Evidence:    rec.Evidence,
			Issues:      rec.Issues(),
			LinkedInURL: rec.LinkedInURL,
		})
	}
	if r.PrimaryName != "" && r.PrimaryName != scoring.SameAsCFO {
		for i := range res.Candidates {
			if res.Candidates[i].Name == r.PrimaryName {
				primary := res.Candidates[i]
				res.Primary = &primary
				break
			}
		}
	}
	return res
}

// NewFacilityRecords flattens an extraction result for archiving.
func NewFacilityRecords(ticker, filingURL string, res facility.Result) []FacilityRecord {
	out := make([]FacilityRecord, 0, len(res.Facilities)+len(res.Notes))
	add := func(f facility.Facility) {
		out = append(out, FacilityRecord{
			Ticker:       strings.ToUpper(strings.TrimSpace(ticker)),
			FilingURL:    filingURL,
			Name:         f.Name,
			Kind:         string(f.Kind),
			IsNote:       f.Kind.IsNote(),
			MaxAmount:    f.MaxAmount,
			Currency:     f.Currency,
			InterestRate: f.InterestRate,
			Maturity:     f.Maturity,
			MaturityYear: f.MaturityYear,
			LeadEntity:   f.LeadEntity,
			Confidence:   f.Confidence,
			SourceText:   f.SourceText,
		})
	}
	for _, f := range res.Facilities {
		add(f)
	}
	for _, f := range res.Notes {
		add(f)
	}
	return out
}

// Facility converts the record back to the extraction type.
func (r FacilityRecord) Facility() facility.Facility {
	return facility.Facility{
		Name:         r.Name,
		Kind:         facility.Kind(r.Kind),
		MaxAmount:    r.MaxAmount,
		Currency:     r.Currency,
		InterestRate: r.InterestRate,
		Maturity:     r.Maturity,
		MaturityYear: r.MaturityYear,
		LeadEntity:   r.LeadEntity,
		SourceText:   r.SourceText,
		Confidence:   r.Confidence,
	}
}
