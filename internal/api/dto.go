package api

import (
	"strings"
	"time"

	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/email"
	"officer-intel/backend/internal/facility"
	"officer-intel/backend/internal/scoring"
	"officer-intel/backend/internal/store"
)

// DetectRequest asks for a live detection of one company. Domain, officer
// names and EmailSamples are optional; a domain or an officer name enables the
// email plan.
type DetectRequest struct {
	Company      string   `json:"company"`
	Domain       string   `json:"domain"`
	CFOName      string   `json:"cfo_name"`
	CEOName      string   `json:"ceo_name"`
	EmailSamples []string `json:"email_samples"`
}

// AnalyzeRequest runs the offline pipeline over supplied blobs.
type AnalyzeRequest struct {
	Company string           `json:"company"`
	Blobs   []candidate.Blob `json:"blobs"`
	Save    bool             `json:"save"`
}

// DetectionDTO is the API representation of an archived run.
type DetectionDTO struct {
	ID               string                   `json:"id"`
	Company          string                   `json:"company"`
	Status           string                   `json:"status"`
	PrimaryName      string                   `json:"primary_name"`
	ConfidenceLevel  string                   `json:"confidence_level"`
	Recommendation   string                   `json:"recommendation"`
	EmailStrategy    string                   `json:"email_strategy"`
	Legacy           string                   `json:"legacy"`
	JobID            string                   `json:"job_id,omitempty"`
	ProcessingTimeMs int64                    `json:"processing_time_ms"`
	CreatedAt        time.Time                `json:"created_at"`
	Result           *scoring.DetectionResult `json:"result,omitempty"`
}

// DetectResponse is returned by the detect and analyze endpoints.
type DetectResponse struct {
	Detection DetectionDTO  `json:"detection"`
	Email     *EmailPlanDTO `json:"email,omitempty"`
}

// EmailPlanDTO is the outreach plan plus how the format was chosen.
type EmailPlanDTO struct {
	email.Addresses
	FormatSource     email.Source `json:"format_source"`
	DomainDiscovered bool         `json:"domain_discovered"`
	Samples          []string     `json:"samples,omitempty"`
}

// EmailPlanRequest builds an outreach plan for an archived run. Domain and
// Samples may be left out when the server can discover them.
type EmailPlanRequest struct {
	DetectionID string   `json:"detection_id"`
	Domain      string   `json:"domain"`
	CFOName     string   `json:"cfo_name"`
	CEOName     string   `json:"ceo_name"`
	Samples     []string `json:"samples"`
	Format      string   `json:"format"`
}

// DetectionListResponse holds a page of runs and the unpaginated total.
type DetectionListResponse struct {
	Items []DetectionDTO `json:"items"`
	Total int64          `json:"total"`
}

// BatchRequest lists the companies of a batch job.
type BatchRequest struct {
	Companies []string `json:"companies"`
}

// StartBatchResponse describes the asynchronous batch kickoff payload.
type StartBatchResponse struct {
	JobID     string    `json:"job_id"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at"`
}

// BatchStatusResponse reports the active or most recent batch job.
type BatchStatusResponse struct {
	Running       bool          `json:"running"`
	JobID         string        `json:"job_id,omitempty"`
	State         string        `json:"state,omitempty"`
	Message       string        `json:"message,omitempty"`
	Total         int           `json:"total"`
	Processed     int           `json:"processed"`
	Failed        int           `json:"failed"`
	LastDetection *DetectionDTO `json:"last_detection,omitempty"`
}

// FacilitiesRequest extracts instruments from pasted text or from the latest
// filing of a ticker.
type FacilitiesRequest struct {
	Ticker    string `json:"ticker"`
	Text      string `json:"text"`
	Form      string `json:"form"`
	Summarize bool   `json:"summarize"`
	Save      bool   `json:"save"`
}

// FacilitiesResponse is the extraction result with one-line renderings.
type FacilitiesResponse struct {
	Ticker       string              `json:"ticker,omitempty"`
	FilingURL    string              `json:"filing_url,omitempty"`
	Facilities   []facility.Facility `json:"facilities"`
	Notes        []facility.Facility `json:"notes"`
	Lines        []string            `json:"lines"`
	Summary      string              `json:"summary,omitempty"`
	SummaryError string              `json:"summary_error,omitempty"`
}

// FromRun converts an archived run. The full result is attached only when
// candidates were loaded.
func FromRun(run store.DetectionRun, withResult bool) DetectionDTO {
	dto := DetectionDTO{
		ID:               run.ID,
		Company:          run.Company,
		Status:           run.Status,
		PrimaryName:      run.PrimaryName,
		ConfidenceLevel:  run.ConfidenceLevel,
		Recommendation:   run.Recommendation,
		EmailStrategy:    run.EmailStrategy,
		Legacy:           run.LegacyAnswer,
		JobID:            run.JobID,
		ProcessingTimeMs: run.ProcessingTimeMs,
		CreatedAt:        run.CreatedAt,
	}
	if withResult {
		res := run.Result()
		dto.Result = &res
	}
	return dto
}

// FromFacilityRecords regroups archived rows into facilities and notes.
func FromFacilityRecords(ticker string, rows []store.FacilityRecord) FacilitiesResponse {
	list := make([]facility.Facility, 0, len(rows))
	filingURL := ""
	for _, row := range rows {
		list = append(list, row.Facility())
		if filingURL == "" {
			filingURL = row.FilingURL
		}
	}
	res := facility.Split(list)
	return FacilitiesResponse{
		Ticker:     strings.ToUpper(strings.TrimSpace(ticker)),
		FilingURL:  filingURL,
		Facilities: res.Facilities,
		Notes:      res.Notes,
		Lines:      facility.Lines(res),
	}
}

func uniqueCompanies(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.Join(strings.Fields(value), " ")
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
