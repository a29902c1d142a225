package api

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"officer-intel/backend/internal/scoring"
	"officer-intel/backend/internal/store"
	"officer-intel/backend/internal/util"
)

const (
	batchThrottle     = 500 * time.Millisecond
	maxBatchCompanies = 1000
)

// batchJob tracks the state of a running batch detection.
type batchJob struct {
	id        string
	cancel    context.CancelFunc
	startedAt time.Time
	total     int
}

type companyResult struct {
	Company   string
	Result    scoring.DetectionResult
	ElapsedMs int64
	Err       error
}

// startBatch launches a new asynchronous batch job. The caller must hold
// s.jobMu.
func (s *Server) startBatch(companies []string) (*batchJob, error) {
	if s.activeJob != nil {
		return nil, errors.New("batch detection already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	job := &batchJob{
		id:        uuid.NewString(),
		cancel:    cancel,
		startedAt: time.Now().UTC(),
		total:     len(companies),
	}
	s.activeJob = job
	s.jobWG.Add(1)
	go func() {
		defer s.jobWG.Done()
		s.runBatch(ctx, job, companies)
	}()
	return job, nil
}

func (s *Server) runBatch(ctx context.Context, job *batchJob, companies []string) {
	processed, failed := 0, 0
	defer func() {
		job.cancel()
		s.jobMu.Lock()
		s.activeJob = nil
		s.jobMu.Unlock()
	}()

	workerCount := determineWorkerCount()
	if workerCount > len(companies) {
		workerCount = len(companies)
	}
	logrus.WithFields(logrus.Fields{
		"job":     job.id,
		"total":   job.total,
		"workers": workerCount,
	}).Info("batch detection started")

	started := DetectionEvent{
		Type:    EventStarted,
		JobID:   job.id,
		Total:   job.total,
		Message: "batch detection started",
	}
	s.notifier.Broadcast(started)
	s.persistJob(job, "running", started.Message, 0, started)

	taskCh := make(chan string)
	resultCh := make(chan companyResult, workerCount)

	var workerWG sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for company := range taskCh {
				if ctx.Err() != nil {
					return
				}
				res := s.detectCompany(ctx, company)
				select {
				case resultCh <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		workerWG.Wait()
		close(resultCh)
	}()
	go func() {
		defer close(taskCh)
		for _, company := range companies {
			select {
			case taskCh <- company:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		lastEmit     time.Time
		hasPending   bool
		pendingEvent DetectionEvent
	)
	flush := func(force bool) {
		if !hasPending {
			return
		}
		if !force && !lastEmit.IsZero() && time.Since(lastEmit) < batchThrottle {
			return
		}
		s.notifier.Broadcast(pendingEvent)
		lastEmit = time.Now()
		hasPending = false
	}

	for res := range resultCh {
		if res.Err != nil {
			if errors.Is(res.Err, context.Canceled) && ctx.Err() != nil {
				continue
			}
			failed++
			logrus.WithError(res.Err).WithFields(logrus.Fields{
				"job":     job.id,
				"company": res.Company,
			}).Warn("batch detection failed for company")
			s.notifier.Broadcast(DetectionEvent{
				Type:    EventError,
				JobID:   job.id,
				Company: res.Company,
				Message: res.Err.Error(),
			})
		} else {
			run := store.NewDetectionRun("", res.Result, res.ElapsedMs)
			run.JobID = job.id
			if err := s.db.SaveDetection(run); err != nil {
				failed++
				logrus.WithError(err).WithField("company", res.Company).Error("save detection")
				s.notifier.Broadcast(DetectionEvent{
					Type:    EventError,
					JobID:   job.id,
					Company: res.Company,
					Message: fmt.Sprintf("save detection: %v", err),
				})
			} else {
				processed++
				dto := FromRun(*run, true)
				s.notifier.Broadcast(DetectionEvent{
					Type:      EventDetection,
					JobID:     job.id,
					Company:   res.Company,
					Total:     job.total,
					Processed: processed,
					Failed:    failed,
					Detection: &dto,
				})
			}
		}

		pendingEvent = DetectionEvent{
			Type:      EventProgress,
			JobID:     job.id,
			Total:     job.total,
			Processed: processed,
			Failed:    failed,
		}
		hasPending = true
		flush(false)
	}
	flush(true)

	duration := time.Since(job.startedAt).Round(time.Millisecond)
	if processed+failed < job.total && ctx.Err() != nil {
		cancelled := DetectionEvent{
			Type:      EventCancelled,
			JobID:     job.id,
			Total:     job.total,
			Processed: processed,
			Failed:    failed,
			Message:   "batch detection cancelled",
		}
		s.notifier.Broadcast(cancelled)
		s.persistJob(job, "cancelled", cancelled.Message, processed, cancelled)
		logrus.WithField("job", job.id).Warn("batch detection cancelled via context")
		return
	}

	completed := DetectionEvent{
		Type:      EventCompleted,
		JobID:     job.id,
		Total:     job.total,
		Processed: processed,
		Failed:    failed,
		Message:   fmt.Sprintf("batch detection finished in %s", duration),
	}
	s.notifier.Broadcast(completed)
	s.persistJob(job, "completed", completed.Message, processed, completed)
	logrus.WithFields(logrus.Fields{
		"job":       job.id,
		"processed": processed,
		"failed":    failed,
		"duration":  duration,
	}).Info("batch detection completed")
}

func (s *Server) detectCompany(ctx context.Context, company string) companyResult {
	sw := util.StartStopwatch()
	res, err := s.engine.Detect(ctx, company)
	return companyResult{
		Company:   company,
		Result:    res,
		ElapsedMs: sw.ElapsedMs(),
		Err:       err,
	}
}

func (s *Server) persistJob(job *batchJob, status, message string, processed int, event DetectionEvent) {
	state := &store.JobState{
		JobID:     job.id,
		Status:    status,
		Message:   message,
		Processed: processed,
		Total:     job.total,
	}
	if err := s.db.SaveJobState(state, event); err != nil {
		logrus.WithError(err).WithField("job", job.id).Warn("persist job state")
	}
}

func determineWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 8 {
		workers = 8
	}
	return workers
}
