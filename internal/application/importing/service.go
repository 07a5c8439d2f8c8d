package importapp

import (
	"context"
	"sync"
	"time"

	"github.com/fincore/backend/internal/domain/importing"
	"github.com/fincore/backend/internal/domain/ledger"
	"github.com/fincore/backend/internal/domain/shared"
	"github.com/fincore/backend/internal/infrastructure/batch"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the import pipeline settings
type Config struct {
	BatchSize      int
	Concurrency    int
	RetryCount     int
	RetryDelay     time.Duration
	PageSize       int
	FingerprintTTL time.Duration
	DedupEnabled   bool
}

// DefaultConfig returns the default import pipeline configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:      50,
		Concurrency:    5,
		RetryCount:     3,
		RetryDelay:     time.Second,
		PageSize:       100,
		FingerprintTTL: 30 * 24 * time.Hour,
		DedupEnabled:   true,
	}
}

// ItemStatus classifies the outcome of one imported record
type ItemStatus string

const (
	ItemImported ItemStatus = "IMPORTED"
	ItemSkipped  ItemStatus = "SKIPPED"
)

// ItemOutcome is the per-record result the batch executor reports back
type ItemOutcome struct {
	Status ItemStatus
	Reason string
}

// ImportService orchestrates import jobs: it pulls records from the external
// source page by page, runs them through the batch executor, and keeps the
// job aggregate's counters and status current.
type ImportService struct {
	jobRepo        importing.ImportJobRepository
	txnRepo        ledger.TransactionRepository
	saleRepo       ledger.SaleRepository
	predictionRepo ledger.PredictionRepository
	source         ledger.ExternalSalesSource
	fingerprints   shared.FingerprintStore
	notifier       importing.NotificationSink
	cfg            Config
	logger         *zap.Logger

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

// NewImportService creates a new ImportService
func NewImportService(
	jobRepo importing.ImportJobRepository,
	txnRepo ledger.TransactionRepository,
	saleRepo ledger.SaleRepository,
	predictionRepo ledger.PredictionRepository,
	source ledger.ExternalSalesSource,
	fingerprints shared.FingerprintStore,
	notifier importing.NotificationSink,
	cfg Config,
	logger *zap.Logger,
) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		jobRepo:        jobRepo,
		txnRepo:        txnRepo,
		saleRepo:       saleRepo,
		predictionRepo: predictionRepo,
		source:         source,
		fingerprints:   fingerprints,
		notifier:       notifier,
		cfg:            cfg,
		logger:         logger,
		running:        make(map[uuid.UUID]context.CancelFunc),
	}
}

// CreateJob creates a new import job in PENDING state
func (s *ImportService) CreateJob(ctx context.Context, userID uuid.UUID, source importing.ImportSource, walletID *uuid.UUID) (*importing.ImportJob, error) {
	job, err := importing.NewImportJob(userID, source, walletID)
	if err != nil {
		return nil, err
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Run executes a PENDING import job over the given date window. It returns
// once the job reaches a terminal status. Counters accumulated before a
// mid-run failure are preserved on the FAILED job.
func (s *ImportService) Run(ctx context.Context, userID, jobID uuid.UUID, window ledger.Window) (*importing.ImportJob, error) {
	job, err := s.jobRepo.FindByID(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	// The run context outlives any single executor run, so a cancel request
	// arriving while a page fetch is in flight still lands
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	if err := s.registerRun(jobID, cancelRun); err != nil {
		return nil, err
	}
	defer s.unregisterRun(jobID)

	executor := batch.NewExecutor[ledger.ExternalRecord, ItemOutcome](batch.Options{
		BatchSize:   s.cfg.BatchSize,
		Concurrency: s.cfg.Concurrency,
		RetryCount:  s.cfg.RetryCount,
		RetryDelay:  s.cfg.RetryDelay,
	}, s.logger)

	page := 1
	resp, err := s.fetchPage(runCtx, job, window, page)
	if err != nil {
		if runCtx.Err() != nil {
			return s.finishJob(ctx, job, job.Cancel)
		}
		return s.failJob(ctx, job, err)
	}

	if err := job.Start(len(resp.Records)); err != nil {
		return nil, err
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("import job started",
		zap.String("job_id", job.ID.String()),
		zap.String("source", string(job.Source)),
		zap.Int("first_page_records", len(resp.Records)),
	)

	for {
		summary, runErr := executor.Run(runCtx, resp.Records, s.processRecord(job), s.jobHooks(ctx, job))
		if runErr != nil {
			return s.failJob(ctx, job, runErr)
		}
		if summary.Cancelled {
			return s.finishJob(ctx, job, job.Cancel)
		}

		if !resp.HasMore {
			break
		}
		page = resp.NextPage
		resp, err = s.fetchPage(runCtx, job, window, page)
		if err != nil {
			if runCtx.Err() != nil {
				return s.finishJob(ctx, job, job.Cancel)
			}
			return s.failJob(ctx, job, err)
		}
		if err := job.AddToTotal(len(resp.Records)); err != nil {
			return nil, err
		}
		if err := s.jobRepo.Save(ctx, job); err != nil {
			return nil, err
		}
	}

	return s.finishJob(ctx, job, job.Complete)
}

// CancelJob requests cancellation of a job. A running job stops at the next
// chunk or page boundary and settles itself as CANCELLED; a PENDING job is
// cancelled directly.
func (s *ImportService) CancelJob(ctx context.Context, userID, jobID uuid.UUID) error {
	s.mu.Lock()
	cancelRun, isRunning := s.running[jobID]
	s.mu.Unlock()

	if isRunning {
		cancelRun()
		return nil
	}

	job, err := s.jobRepo.FindByID(ctx, userID, jobID)
	if err != nil {
		return err
	}
	if err := job.Cancel(); err != nil {
		return err
	}
	return s.jobRepo.Save(ctx, job)
}

// UpdateJobStatus applies an externally requested status change. Only
// transitions the job aggregate itself allows will succeed; anything else
// returns an INVALID_STATE error.
func (s *ImportService) UpdateJobStatus(ctx context.Context, userID, jobID uuid.UUID, status importing.JobStatus) (*importing.ImportJob, error) {
	if status == importing.JobStatusCancelled {
		if err := s.CancelJob(ctx, userID, jobID); err != nil {
			return nil, err
		}
		return s.jobRepo.FindByID(ctx, userID, jobID)
	}

	job, err := s.jobRepo.FindByID(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}

	switch status {
	case importing.JobStatusFailed:
		err = job.Fail()
	case importing.JobStatusCompleted:
		err = job.Complete()
	default:
		err = shared.ErrInvalidState
	}
	if err != nil {
		return nil, err
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob returns a single job
func (s *ImportService) GetJob(ctx context.Context, userID, jobID uuid.UUID) (*importing.ImportJob, error) {
	return s.jobRepo.FindByID(ctx, userID, jobID)
}

// ListJobs returns the user's jobs with pagination and filtering
func (s *ImportService) ListJobs(ctx context.Context, userID uuid.UUID, filter importing.JobFilter, page, pageSize int) (*importing.JobListResult, error) {
	return s.jobRepo.FindAll(ctx, userID, filter, page, pageSize)
}

// registerRun guards against two concurrent runs of the same job and exposes
// the run's cancel function to CancelJob
func (s *ImportService) registerRun(jobID uuid.UUID, cancelRun context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.running[jobID]; exists {
		return shared.ErrAlreadyRunning
	}
	s.running[jobID] = cancelRun
	return nil
}

func (s *ImportService) unregisterRun(jobID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, jobID)
}

// fetchPage pulls one page from the external source. Any fetch error is
// treated as source unavailability.
func (s *ImportService) fetchPage(ctx context.Context, job *importing.ImportJob, window ledger.Window, page int) (*ledger.FetchResponse, error) {
	resp, err := s.source.FetchRecords(ctx, ledger.FetchRequest{
		UserID:   job.UserID,
		Start:    window.Start,
		End:      window.End,
		Page:     page,
		PageSize: s.cfg.PageSize,
	})
	if err != nil {
		s.logger.Warn("external source fetch failed",
			zap.String("job_id", job.ID.String()),
			zap.Int("page", page),
			zap.Error(err),
		)
		return nil, shared.ErrSourceUnavailable
	}
	return resp, nil
}

// jobHooks wires executor callbacks to the job's counters. Hook calls are
// serialized by the executor, so counter updates need no extra locking.
func (s *ImportService) jobHooks(ctx context.Context, job *importing.ImportJob) batch.Hooks[ledger.ExternalRecord, ItemOutcome] {
	return batch.Hooks[ledger.ExternalRecord, ItemOutcome]{
		OnItemDone: func(record ledger.ExternalRecord, outcome ItemOutcome) {
			if outcome.Status == ItemSkipped {
				_ = job.AddSkipped(1)
				s.logger.Debug("record skipped",
					zap.String("external_id", record.ExternalID),
					zap.String("reason", outcome.Reason),
				)
				return
			}
			_ = job.AddImported(1)
		},
		OnItemError: func(record ledger.ExternalRecord, err error) {
			_ = job.AddErrored(1)
			s.logger.Warn("record failed after retries",
				zap.String("external_id", record.ExternalID),
				zap.Error(err),
			)
		},
		OnBatchDone: func(batchIndex, processed int) {
			// Persist counters so observers see progress between batches
			if err := s.jobRepo.Save(ctx, job); err != nil {
				s.logger.Warn("failed to persist job progress", zap.Error(err))
			}
		},
	}
}

// processRecord returns the executor's per-item processor for a job:
// validate, fingerprint, dedup, persist, expand.
func (s *ImportService) processRecord(job *importing.ImportJob) batch.Processor[ledger.ExternalRecord, ItemOutcome] {
	return func(ctx context.Context, record ledger.ExternalRecord) (ItemOutcome, error) {
		if err := record.Validate(); err != nil {
			// Malformed input is settled, not retryable
			return ItemOutcome{Status: ItemSkipped, Reason: err.Error()}, nil
		}

		fingerprint := ledger.Fingerprint(record.Amount, record.Date, record.DedupKey())

		if s.cfg.DedupEnabled && s.fingerprints != nil {
			seen, err := s.fingerprints.IsSeen(ctx, fingerprint)
			if err != nil {
				// Cache trouble never blocks the import; the database
				// constraint still dedups
				s.logger.Warn("fingerprint store unavailable", zap.Error(err))
			} else if seen {
				return ItemOutcome{Status: ItemSkipped, Reason: "duplicate fingerprint"}, nil
			}
		}

		var outcome ItemOutcome
		var err error
		switch record.Kind {
		case ledger.RecordKindSale:
			outcome, err = s.importSale(ctx, job, record, fingerprint)
		default:
			outcome, err = s.importTransaction(ctx, job, record, fingerprint)
		}
		if err != nil {
			return outcome, err
		}

		s.rememberFingerprint(ctx, fingerprint)
		return outcome, nil
	}
}

// rememberFingerprint records a fingerprint once the record's outcome is
// settled. Marking before the persist would misclassify a brand-new record
// as a duplicate when a transient save failure gets retried.
func (s *ImportService) rememberFingerprint(ctx context.Context, fingerprint string) {
	if !s.cfg.DedupEnabled || s.fingerprints == nil {
		return
	}
	if _, err := s.fingerprints.MarkSeen(ctx, fingerprint, s.cfg.FingerprintTTL); err != nil {
		s.logger.Warn("fingerprint store unavailable", zap.Error(err))
	}
}

// importTransaction persists one ledger transaction
func (s *ImportService) importTransaction(ctx context.Context, job *importing.ImportJob, record ledger.ExternalRecord, fingerprint string) (ItemOutcome, error) {
	exists, err := s.txnRepo.ExistsByFingerprint(ctx, job.UserID, fingerprint)
	if err != nil {
		return ItemOutcome{}, err
	}
	if exists {
		return ItemOutcome{Status: ItemSkipped, Reason: "already imported"}, nil
	}

	txn, err := ledger.NewLedgerTransaction(job.UserID, job.WalletID, record.Amount, record.Date, record.Description, fingerprint)
	if err != nil {
		return ItemOutcome{Status: ItemSkipped, Reason: err.Error()}, nil
	}

	if err := s.txnRepo.Save(ctx, txn); err != nil {
		if err == shared.ErrDuplicateRecord {
			// Lost the race against a concurrent import of the same record
			return ItemOutcome{Status: ItemSkipped, Reason: "already imported"}, nil
		}
		return ItemOutcome{}, err
	}
	return ItemOutcome{Status: ItemImported}, nil
}

// importSale persists one sale and expands its installment schedule into
// cash-flow predictions
func (s *ImportService) importSale(ctx context.Context, job *importing.ImportJob, record ledger.ExternalRecord, fingerprint string) (ItemOutcome, error) {
	if existing, err := s.saleRepo.FindByExternalID(ctx, job.UserID, record.ExternalID); err == nil && existing != nil {
		if existing.TotalAmount.Equals(record.Amount) {
			return ItemOutcome{Status: ItemSkipped, Reason: "already imported"}, nil
		}
		// A corrected sale carries a new fingerprint and imports as a new
		// record; the old one is superseded manually
	} else if err != nil && err != shared.ErrNotFound {
		return ItemOutcome{}, err
	}

	sale, err := s.buildSale(job.UserID, record)
	if err != nil {
		return ItemOutcome{Status: ItemSkipped, Reason: err.Error()}, nil
	}
	sale.WalletID = job.WalletID

	if err := s.saleRepo.Save(ctx, sale); err != nil {
		if err == shared.ErrDuplicateRecord {
			return ItemOutcome{Status: ItemSkipped, Reason: "already imported"}, nil
		}
		return ItemOutcome{}, err
	}

	entries, err := ledger.ExpandSchedule(sale)
	if err != nil {
		return ItemOutcome{Status: ItemSkipped, Reason: err.Error()}, nil
	}
	if err := s.predictionRepo.SaveAll(ctx, entries); err != nil {
		return ItemOutcome{}, err
	}

	return ItemOutcome{Status: ItemImported}, nil
}

// buildSale maps an external record to a SaleRecord aggregate
func (s *ImportService) buildSale(userID uuid.UUID, record ledger.ExternalRecord) (*ledger.SaleRecord, error) {
	if len(record.Installments) > 0 {
		installments := make([]ledger.Installment, len(record.Installments))
		for i, inst := range record.Installments {
			installments[i] = ledger.Installment{
				ID:         uuid.New(),
				Number:     inst.Number,
				TotalCount: len(record.Installments),
				Amount:     inst.Amount,
				DueDate:    inst.DueDate,
				Status:     ledger.InstallmentPending,
			}
		}
		return ledger.NewSaleRecord(userID, record.ExternalID, record.Customer, record.Amount, record.Date, installments)
	}

	count := record.InstallmentCount
	if count <= 0 {
		count = 1
	}
	return ledger.NewSaleRecordWithCount(userID, record.ExternalID, record.Customer, record.Amount, record.Date, count)
}

// failJob moves the job to FAILED, keeping whatever counters it accumulated
func (s *ImportService) failJob(ctx context.Context, job *importing.ImportJob, cause error) (*importing.ImportJob, error) {
	if _, err := s.finishJob(ctx, job, job.Fail); err != nil {
		return nil, err
	}
	return job, cause
}

// finishJob applies a terminal transition, persists it and notifies the user
func (s *ImportService) finishJob(ctx context.Context, job *importing.ImportJob, transition func() error) (*importing.ImportJob, error) {
	if err := transition(); err != nil {
		return nil, err
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info("import job finished",
		zap.String("job_id", job.ID.String()),
		zap.String("status", string(job.Status)),
		zap.String("summary", job.Summary()),
	)

	if s.notifier != nil {
		// Fire and forget: notification failures never fail the job
		go s.notifier.NotifyJobFinished(context.WithoutCancel(ctx), job)
	}
	return job, nil
}
