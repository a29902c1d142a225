package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"officer-intel/backend/internal/ai"
	"officer-intel/backend/internal/candidate"
	"officer-intel/backend/internal/detect"
	"officer-intel/backend/internal/email"
	"officer-intel/backend/internal/facility"
	"officer-intel/backend/internal/filing"
	"officer-intel/backend/internal/scoring"
	"officer-intel/backend/internal/store"
	"officer-intel/backend/internal/util"
)

// FilingSource downloads the text of a company's latest filing.
type FilingSource interface {
	LatestDocument(ctx context.Context, ticker, form string) (string, string, error)
}

// Config defines server dependencies.
type Config struct {
	DBPath         string
	SilentDB       bool
	AllowedOrigins []string
	Engine         *detect.Engine
	Facilities     *facility.Extractor
	Filings        FilingSource
	Completer      ai.Completer
	// Searcher, when set, finds email domains and sample addresses that a
	// request leaves out.
	Searcher email.Searcher
	// FilingForm is the form type read when a facilities request names a ticker.
	FilingForm    string
	DetectTimeout time.Duration
}

// Server wires HTTP handlers with persistence and the detection pipeline.
type Server struct {
	db             *store.Database
	engine         *detect.Engine
	facilities     *facility.Extractor
	filings        FilingSource
	completer      ai.Completer
	resolver       *email.Resolver
	discovery      *email.Discovery
	allowedOrigins []string
	filingForm     string
	detectTimeout  time.Duration
	notifier       *DetectionNotifier
	jobMu          sync.Mutex
	activeJob      *batchJob
	jobWG          sync.WaitGroup
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("detection engine required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	extractor := cfg.Facilities
	if extractor == nil {
		extractor = facility.NewExtractor(facility.DefaultWeights())
	}
	form := strings.TrimSpace(cfg.FilingForm)
	if form == "" {
		form = "10-Q"
	}
	timeout := cfg.DetectTimeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if cfg.Completer == nil || !cfg.Completer.Enabled() {
		logrus.Info("completer disabled; email formats fall back to samples or the default")
	}

	return &Server{
		db:             db,
		engine:         cfg.Engine,
		facilities:     extractor,
		filings:        cfg.Filings,
		completer:      cfg.Completer,
		resolver:       email.NewResolver(cfg.Completer),
		discovery:      email.NewDiscovery(cfg.Searcher, email.DiscoveryConfig{}),
		allowedOrigins: cfg.AllowedOrigins,
		filingForm:     form,
		detectTimeout:  timeout,
		notifier:       NewDetectionNotifier(),
	}, nil
}

// Close cancels any running batch job, waits for it and closes the database.
func (s *Server) Close() error {
	s.jobMu.Lock()
	if s.activeJob != nil {
		s.activeJob.cancel()
	}
	s.jobMu.Unlock()
	s.jobWG.Wait()
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/detect", s.handleDetect)
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/detections", s.handleListDetections)
		api.GET("/detections/:id", s.handleGetDetection)
		api.DELETE("/detections/:id", s.handleDeleteDetection)
		api.POST("/detect/batch", s.handleStartBatch)
		api.GET("/detect/batch/status", s.handleBatchStatus)
		api.DELETE("/detect/batch/:jobID", s.handleCancelBatch)
		api.GET("/detect/stream", s.handleDetectStream)
		api.POST("/facilities", s.handleFacilities)
		api.GET("/facilities/:ticker", s.handleListFacilities)
		api.POST("/email/plan", s.handleEmailPlan)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	channels := make([]string, 0, len(candidate.Channels))
	for _, ch := range candidate.Channels {
		channels = append(channels, string(ch))
	}
	weights := s.engine.Weights()
	c.JSON(http.StatusOK, gin.H{
		"channels":          channels,
		"thresholds":        weights.Thresholds,
		"channel_weights":   weights.Channels,
		"live_detection":    s.engine.HasSource(),
		"filings_enabled":   s.filings != nil,
		"completer_enabled": s.completer != nil && s.completer.Enabled(),
		"filing_form":       s.filingForm,
		"email_formats":     email.Formats,
	})
}

func (s *Server) handleDetect(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	company := strings.TrimSpace(req.Company)
	if company == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("company is required"))
		return
	}
	if !s.engine.HasSource() {
		s.renderError(c, http.StatusServiceUnavailable, detect.ErrNoSource)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.detectTimeout)
	defer cancel()

	sw := util.StartStopwatch()
	res, err := s.engine.Detect(ctx, company)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		s.renderError(c, status, fmt.Errorf("detect %s: %w", company, err))
		return
	}

	run := store.NewDetectionRun("", res, sw.ElapsedMs())
	if err := s.db.SaveDetection(run); err != nil {
		s.renderError(c, http.StatusInternalServerError, fmt.Errorf("save detection: %w", err))
		return
	}

	resp := DetectResponse{Detection: FromRun(*run, true)}
	officers := email.Officers{CFO: req.CFOName, CEO: req.CEOName}
	if strings.TrimSpace(req.Domain) != "" || officers != (email.Officers{}) {
		plan, err := s.emailPlan(ctx, res, emailPlanInput{
			domain:   req.Domain,
			samples:  req.EmailSamples,
			officers: officers,
		})
		switch {
		case errors.Is(err, errNoDomain):
			logrus.WithField("company", company).Info("no email domain found; skipping email plan")
		case err != nil:
			s.renderError(c, http.StatusGatewayTimeout, err)
			return
		default:
			resp.Email = &plan
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	company := strings.TrimSpace(req.Company)
	if company == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("company is required"))
		return
	}
	for i, blob := range req.Blobs {
		ch, ok := candidate.ParseChannel(string(blob.Channel))
		if !ok {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("blob %d: unknown channel %q", i, blob.Channel))
			return
		}
		req.Blobs[i].Channel = ch
	}

	sw := util.StartStopwatch()
	res := s.engine.Analyze(company, req.Blobs)
	run := store.NewDetectionRun("", res, sw.ElapsedMs())
	if req.Save {
		if err := s.db.SaveDetection(run); err != nil {
			s.renderError(c, http.StatusInternalServerError, fmt.Errorf("save detection: %w", err))
			return
		}
	}
	c.JSON(http.StatusOK, DetectResponse{Detection: FromRun(*run, true)})
}

func (s *Server) handleListDetections(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.db.ListDetections(store.DetectionQuery{
		Company:        c.Query("company"),
		Status:         c.Query("status"),
		JobID:          firstNonEmpty(c.Query("job_id"), c.Query("jobId")),
		Sort:           c.Query("sort"),
		Offset:         offset,
		Limit:          limit,
		WithCandidates: c.Query("full") == "true",
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]DetectionDTO, 0, len(runs))
	for _, run := range runs {
		items = append(items, FromRun(run, c.Query("full") == "true"))
	}
	c.JSON(http.StatusOK, DetectionListResponse{Items: items, Total: total})
}

func (s *Server) handleGetDetection(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	run, err := s.db.GetDetection(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("detection %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.JSON(http.StatusOK, FromRun(*run, true))
}

func (s *Server) handleDeleteDetection(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.db.DeleteDetection(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("detection %s not found", id))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStartBatch(c *gin.Context) {
	var req BatchRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
	}
	companies := uniqueCompanies(req.Companies)
	if len(companies) == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("companies is required"))
		return
	}
	if len(companies) > maxBatchCompanies {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("at most %d companies per batch", maxBatchCompanies))
		return
	}
	if !s.engine.HasSource() {
		s.renderError(c, http.StatusServiceUnavailable, detect.ErrNoSource)
		return
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.activeJob != nil {
		s.renderError(c, http.StatusConflict, errors.New("batch detection already running"))
		return
	}
	job, err := s.startBatch(companies)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusAccepted, StartBatchResponse{
		JobID:     job.id,
		Total:     job.total,
		StartedAt: job.startedAt,
	})
}

func (s *Server) handleCancelBatch(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("jobID"))
	if jobID == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("job id required"))
		return
	}

	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.activeJob == nil {
		s.renderError(c, http.StatusNotFound, errors.New("no batch detection running"))
		return
	}
	if s.activeJob.id != jobID {
		s.renderError(c, http.StatusNotFound, errors.New("job not found"))
		return
	}

	s.activeJob.cancel()
	logrus.WithField("job", jobID).Info("batch cancellation requested")
	c.JSON(http.StatusAccepted, gin.H{"status": "cancelling"})
}

func (s *Server) handleBatchStatus(c *gin.Context) {
	s.jobMu.Lock()
	job := s.activeJob
	s.jobMu.Unlock()

	resp := BatchStatusResponse{Running: job != nil}
	if job != nil {
		resp.JobID = job.id
		resp.Total = job.total
	}

	status := s.notifier.LastStatus()
	if status == nil && job == nil {
		if state, err := s.db.LatestJobState(); err == nil {
			resp.JobID = state.JobID
			resp.State = state.Status
			resp.Message = state.Message
			resp.Processed = state.Processed
			resp.Total = state.Total
		}
	}
	if status != nil {
		resp.JobID = status.JobID
		resp.State = status.Type
		resp.Message = status.Message
		resp.Processed = status.Processed
		resp.Failed = status.Failed
		if status.Total != 0 {
			resp.Total = status.Total
		}
		if status.Detection != nil {
			last := *status.Detection
			resp.LastDetection = &last
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDetectStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout: 5 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("detection websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("detection websocket closed")
			} else {
				logrus.WithError(err).Warn("detection websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) handleFacilities(c *gin.Context) {
	var req FacilitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	text := req.Text
	if strings.TrimSpace(text) == "" && ticker == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("ticker or text is required"))
		return
	}

	ctx := c.Request.Context()
	resp := FacilitiesResponse{Ticker: ticker}
	if strings.TrimSpace(text) == "" {
		if s.filings == nil {
			s.renderError(c, http.StatusServiceUnavailable, errors.New("filing lookup is not configured"))
			return
		}
		form := strings.TrimSpace(req.Form)
		if form == "" {
			form = s.filingForm
		}
		doc, url, err := s.filings.LatestDocument(ctx, ticker, form)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, filing.ErrUnknownTicker) || errors.Is(err, filing.ErrNoFiling) {
				status = http.StatusNotFound
			}
			s.renderError(c, status, err)
			return
		}
		text = doc
		resp.FilingURL = url
	}

	sw := util.StartStopwatch()
	res := s.facilities.Extract(text)
	resp.Facilities = res.Facilities
	resp.Notes = res.Notes
	resp.Lines = facility.Lines(res)
	logrus.WithFields(logrus.Fields{
		"ticker":     ticker,
		"facilities": len(res.Facilities),
		"notes":      len(res.Notes),
		"elapsed_ms": sw.ElapsedMs(),
	}).Info("facility extraction completed")

	if req.Summarize {
		summary, err := facility.FormatWithCompleter(ctx, s.completer, res)
		if err != nil {
			resp.SummaryError = err.Error()
		} else {
			resp.Summary = summary
		}
	}

	if req.Save {
		if ticker == "" {
			s.renderError(c, http.StatusBadRequest, errors.New("ticker is required to save facilities"))
			return
		}
		if err := s.db.SaveFacilities(ticker, store.NewFacilityRecords(ticker, resp.FilingURL, res)); err != nil {
			s.renderError(c, http.StatusInternalServerError, fmt.Errorf("save facilities: %w", err))
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListFacilities(c *gin.Context) {
	ticker := strings.TrimSpace(c.Param("ticker"))
	rows, err := s.db.ListFacilities(ticker)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	if len(rows) == 0 {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("no facilities stored for %s", strings.ToUpper(ticker)))
		return
	}
	c.JSON(http.StatusOK, FromFacilityRecords(ticker, rows))
}

func (s *Server) handleEmailPlan(c *gin.Context) {
	var req EmailPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.DetectionID) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("detection_id is required"))
		return
	}
	run, err := s.db.GetDetection(req.DetectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusNotFound, fmt.Errorf("detection %s not found", req.DetectionID))
		} else {
			s.renderError(c, http.StatusInternalServerError, err)
		}
		return
	}
	plan, err := s.emailPlan(c.Request.Context(), run.Result(), emailPlanInput{
		domain:   req.Domain,
		samples:  req.Samples,
		forced:   req.Format,
		officers: email.Officers{CFO: req.CFOName, CEO: req.CEOName},
	})
	if err != nil {
		if errors.Is(err, errUnknownFormat) || errors.Is(err, errNoDomain) {
			s.renderError(c, http.StatusBadRequest, err)
		} else {
			s.renderError(c, http.StatusGatewayTimeout, err)
		}
		return
	}
	c.JSON(http.StatusOK, plan)
}

var (
	errUnknownFormat = errors.New("unknown email format")
	errNoDomain      = errors.New("email domain is required and could not be discovered")
)

type emailPlanInput struct {
	domain   string
	samples  []string
	forced   string
	officers email.Officers
}

// emailPlan fills a missing domain and samples through discovery, resolves the
// format unless one is forced, and builds the plan.
func (s *Server) emailPlan(ctx context.Context, res scoring.DetectionResult, in emailPlanInput) (EmailPlanDTO, error) {
	var forced email.Format
	if strings.TrimSpace(in.forced) != "" {
		f, ok := email.ParseFormat(in.forced)
		if !ok {
			return EmailPlanDTO{}, fmt.Errorf("%w: %s", errUnknownFormat, in.forced)
		}
		forced = f
	}

	domain := email.NormalizeDomain(in.domain)
	discovered := false
	if domain == "" {
		found, err := s.discovery.FindDomain(ctx, res.Company)
		if err != nil {
			return EmailPlanDTO{}, fmt.Errorf("discover email domain: %w", err)
		}
		if found == "" {
			return EmailPlanDTO{}, errNoDomain
		}
		domain, discovered = found, true
	}

	if forced != "" {
		return EmailPlanDTO{
			Addresses:        email.Plan(res, domain, forced, in.officers),
			FormatSource:     email.SourceRequested,
			DomainDiscovered: discovered,
		}, nil
	}

	known := make([]string, 0, len(res.Candidates)+2)
	for _, name := range []string{in.officers.CFO, in.officers.CEO} {
		if strings.TrimSpace(name) != "" {
			known = append(known, name)
		}
	}
	for _, cand := range res.Candidates {
		known = append(known, cand.Name)
	}

	samples := in.samples
	if len(samples) == 0 {
		people := []string{in.officers.CFO, in.officers.CEO}
		if guidance := scoring.Guidance(res); guidance.Strategy == scoring.UseTreasurer {
			people = append(people, guidance.TreasurerName)
		}
		harvested, err := s.discovery.HarvestSamples(ctx, res.Company, domain, people...)
		if err != nil {
			return EmailPlanDTO{}, fmt.Errorf("harvest email samples: %w", err)
		}
		samples = harvested
	}

	resolution, err := s.resolver.Resolve(ctx, res.Company, domain, samples, known...)
	if err != nil {
		return EmailPlanDTO{}, fmt.Errorf("resolve email format: %w", err)
	}
	return EmailPlanDTO{
		Addresses:        email.Plan(res, domain, resolution.Format, in.officers),
		FormatSource:     resolution.Source,
		DomainDiscovered: discovered,
		Samples:          samples,
	}, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", key, value)
	}
	return parsed, nil
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
