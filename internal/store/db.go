package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed run archive at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&DetectionRun{}, &CandidateRecord{}, &FacilityRecord{}, &JobState{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveDetection inserts the run, or replaces it when the id already exists.
// Candidate rows are rewritten with the run.
func (d *Database) SaveDetection(run *DetectionRun) error {
	if run == nil {
		return errors.New("detection run is nil")
	}
	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	run.Company = strings.TrimSpace(run.Company)
	run.CompanyNormalized = normalizeCompanyKey(run.Company)
	for i := range run.Candidates {
		run.Candidates[i].ID = 0
		run.Candidates[i].RunID = run.ID
		if run.Candidates[i].IssuesJSON == "" {
			run.Candidates[i].IssuesJSON = "[]"
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		columns := []string{
			"company",
			"company_normalized",
			"status",
			"primary_name",
			"confidence_level",
			"recommendation",
			"email_strategy",
			"legacy_answer",
			"job_id",
			"processing_time_ms",
			"updated_at",
		}
		if err := tx.Omit("Candidates").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).Create(run).Error; err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		if err := tx.Where("run_id = ?", run.ID).Delete(&CandidateRecord{}).Error; err != nil {
			return fmt.Errorf("clear candidates: %w", err)
		}
		if len(run.Candidates) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(run.Candidates, 250).Error; err != nil {
			return fmt.Errorf("save candidates: %w", err)
		}
		return nil
	})
}

// GetDetection loads one run with its candidates in rank order. It returns
// gorm.ErrRecordNotFound when the id is unknown.
func (d *Database) GetDetection(id string) (*DetectionRun, error) {
	var run DetectionRun
	err := d.gorm.
		Preload("Candidates", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&run, "id = ?", strings.TrimSpace(id)).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteDetection removes a run and its candidates.
func (d *Database) DeleteDetection(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&CandidateRecord{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&DetectionRun{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DetectionQuery encapsulates filters and pagination for listing runs.
type DetectionQuery struct {
	Company        string
	Status         string
	JobID          string
	Sort           string
	Offset         int
	Limit          int
	WithCandidates bool
}

// ListDetections returns paginated runs applying optional filters, along with
// the total count before pagination.
func (d *Database) ListDetections(opts DetectionQuery) ([]DetectionRun, int64, error) {
	base := d.gorm.Model(&DetectionRun{})
	if company := normalizeCompanyKey(opts.Company); company != "" {
		base = base.Where("company_normalized LIKE ?", fmt.Sprintf("%%%s%%", company))
	}
	if status := strings.TrimSpace(opts.Status); status != "" {
		base = base.Where("status = ?", strings.ToLower(status))
	}
	if job := strings.TrimSpace(opts.JobID); job != "" {
		base = base.Where("job_id = ?", job)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.WithCandidates {
		q = q.Preload("Candidates", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
	}
	var runs []DetectionRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// LatestDetection returns the most recent run for a company.
func (d *Database) LatestDetection(company string) (*DetectionRun, error) {
	var run DetectionRun
	err := d.gorm.
		Preload("Candidates", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("company_normalized = ?", normalizeCompanyKey(company)).
		Order("created_at DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "company_asc":
		return "detection_runs.company_normalized ASC, detection_runs.created_at DESC"
	case "company_desc":
		return "detection_runs.company_normalized DESC, detection_runs.created_at DESC"
	case "created_asc":
		return "detection_runs.created_at ASC"
	case "status":
		return "detection_runs.status ASC, detection_runs.created_at DESC"
	default:
		return "detection_runs.created_at DESC, detection_runs.id ASC"
	}
}

// SaveFacilities swaps the stored instruments for a ticker with the provided
// slice.
func (d *Database) SaveFacilities(ticker string, records []FacilityRecord) error {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return errors.New("ticker is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("ticker = ?", ticker).Delete(&FacilityRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		for i := range records {
			records[i].ID = 0
			records[i].Ticker = ticker
		}
		return tx.CreateInBatches(records, 250).Error
	})
}

// ListFacilities returns the stored instruments for a ticker, facilities
// before notes, each ordered by maturity.
func (d *Database) ListFacilities(ticker string) ([]FacilityRecord, error) {
	var rows []FacilityRecord
	err := d.gorm.
		Where("ticker = ?", strings.ToUpper(strings.TrimSpace(ticker))).
		Order("is_note ASC").
		Order("CASE WHEN maturity_year = 0 THEN 1 ELSE 0 END, maturity_year ASC, name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveJobState upserts the status of a batch job. The event payload is stored
// as JSON when present.
func (d *Database) SaveJobState(state *JobState, lastEvent any) error {
	if state == nil {
		return errors.New("job state is nil")
	}
	if lastEvent != nil {
		payload, err := json.Marshal(lastEvent)
		if err != nil {
			return fmt.Errorf("encode job event: %w", err)
		}
		state.LastEventJSON = string(payload)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "message", "processed", "total", "last_event_json", "updated_at"}),
	}).Create(state).Error
}

// LatestJobState returns the most recently updated job.
func (d *Database) LatestJobState() (*JobState, error) {
	var state JobState
	if err := d.gorm.Order("updated_at DESC").First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

func normalizeCompanyKey(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"UPDATE detection_runs SET company_normalized = LOWER(company) WHERE company IS NOT NULL AND (company_normalized IS NULL OR company_normalized = '')",
		"CREATE INDEX IF NOT EXISTS idx_detection_runs_company_created ON detection_runs(company_normalized, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_candidate_records_run_position ON candidate_records(run_id, position)",
		"CREATE INDEX IF NOT EXISTS idx_facility_records_ticker_note ON facility_records(ticker, is_note)",
		"CREATE INDEX IF NOT EXISTS idx_job_states_status_updated ON job_states(status, updated_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
