package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Delta Sync Job Types
// ---------------------------------------------------------------------------

// DeltaSyncJobStatus represents the status of a delta sync job
type DeltaSyncJobStatus string

const (
	DeltaSyncJobStatusPending   DeltaSyncJobStatus = "PENDING"
	DeltaSyncJobStatusRunning   DeltaSyncJobStatus = "RUNNING"
	DeltaSyncJobStatusSuccess   DeltaSyncJobStatus = "SUCCESS"
	DeltaSyncJobStatusPartial   DeltaSyncJobStatus = "PARTIAL"
	DeltaSyncJobStatusFailed    DeltaSyncJobStatus = "FAILED"
	DeltaSyncJobStatusCancelled DeltaSyncJobStatus = "CANCELLED"
)

// DeltaSyncJob represents one scheduled delta sync run for a tenant/provider pair
type DeltaSyncJob struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ProviderID  string
	Status      DeltaSyncJobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	// Sync results
	TotalRecords    int
	SuccessCount    int
	FailedCount     int
	EscalatedCount  int
	FailedRecordIDs []string
}

// NewDeltaSyncJob creates a new delta sync job
func NewDeltaSyncJob(tenantID uuid.UUID, providerID string, maxRetries int) *DeltaSyncJob {
	return &DeltaSyncJob{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ProviderID: providerID,
		Status:     DeltaSyncJobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *DeltaSyncJob) Start() {
	now := time.Now()
	j.Status = DeltaSyncJobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as finished with the batch results
func (j *DeltaSyncJob) Complete(totalRecords, successCount, failedCount, escalatedCount int) {
	now := time.Now()
	j.TotalRecords = totalRecords
	j.SuccessCount = successCount
	j.FailedCount = failedCount
	j.EscalatedCount = escalatedCount
	j.CompletedAt = &now

	if failedCount == 0 {
		j.Status = DeltaSyncJobStatusSuccess
	} else if successCount > 0 {
		j.Status = DeltaSyncJobStatusPartial
	} else {
		j.Status = DeltaSyncJobStatusFailed
	}
}

// Fail marks the job as failed
func (j *DeltaSyncJob) Fail(err string) {
	now := time.Now()
	j.Status = DeltaSyncJobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *DeltaSyncJob) ShouldRetry() bool {
	return j.Status == DeltaSyncJobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry with exponential backoff
func (j *DeltaSyncJob) ScheduleRetry(baseDelay, maxDelay time.Duration) {
	j.RetryCount++
	j.Status = DeltaSyncJobStatusPending
	// Exponential backoff: baseDelay * 2^(retryCount-1)
	delay := baseDelay * time.Duration(1<<(j.RetryCount-1))
	if delay > maxDelay {
		delay = maxDelay
	}
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// ---------------------------------------------------------------------------
// DeltaSyncExecutor Interface
// ---------------------------------------------------------------------------

// DeltaSyncExecutor executes delta sync jobs
type DeltaSyncExecutor interface {
	// Execute drains one batch of pending records for the job's tenant/provider
	Execute(ctx context.Context, job *DeltaSyncJob) error
}

// ---------------------------------------------------------------------------
// DeltaSyncSchedulerConfig
// ---------------------------------------------------------------------------

// DeltaSyncSchedulerConfig holds configuration for the delta sync scheduler
type DeltaSyncSchedulerConfig struct {
	// Enabled indicates if the scheduler is enabled
	Enabled bool
	// Workers is the number of concurrent sync workers
	Workers int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// RetryAttempts is the number of retry attempts for failed jobs
	RetryAttempts int
	// RetryBackoffBase is the base delay between retries (with exponential backoff)
	RetryBackoffBase time.Duration
	// RetryBackoffMax caps the exponential backoff delay
	RetryBackoffMax time.Duration
}

// DefaultDeltaSyncSchedulerConfig returns default configuration
func DefaultDeltaSyncSchedulerConfig() DeltaSyncSchedulerConfig {
	return DeltaSyncSchedulerConfig{
		Enabled:          true,
		Workers:          4,
		JobTimeout:       10 * time.Minute,
		RetryAttempts:    3,
		RetryBackoffBase: 5 * time.Second,
		RetryBackoffMax:  5 * time.Minute,
	}
}

// Validate validates the configuration
func (c *DeltaSyncSchedulerConfig) Validate() error {
	if c.Workers <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryAttempts < 0 {
		return ErrInvalidConfig
	}
	if c.RetryBackoffBase <= 0 {
		return ErrInvalidConfig
	}
	if c.RetryBackoffMax < c.RetryBackoffBase {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// DeltaSyncScheduler
// ---------------------------------------------------------------------------

// DeltaSyncScheduler manages scheduled delta sync jobs
type DeltaSyncScheduler struct {
	config   DeltaSyncSchedulerConfig
	executor DeltaSyncExecutor
	logger   *zap.Logger

	jobs      chan *DeltaSyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	// Job history for monitoring (in-memory, limited size)
	historyMu  sync.RWMutex
	history    []*DeltaSyncJob
	maxHistory int
}

// NewDeltaSyncScheduler creates a new delta sync scheduler
func NewDeltaSyncScheduler(config DeltaSyncSchedulerConfig, executor DeltaSyncExecutor, logger *zap.Logger) (*DeltaSyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &DeltaSyncScheduler{
		config:     config,
		executor:   executor,
		logger:     logger,
		jobs:       make(chan *DeltaSyncJob, 100),
		history:    make([]*DeltaSyncJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// Start starts the scheduler
func (s *DeltaSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Start worker pool
	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Delta sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *DeltaSyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Close job channel
	close(s.jobs)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Delta sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Delta sync scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob submits a job for execution
func (s *DeltaSyncScheduler) SubmitJob(job *DeltaSyncJob) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	select {
	case s.jobs <- job:
		s.logger.Debug("Delta sync job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("provider_id", job.ProviderID),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *DeltaSyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	s.logger.Debug("Delta sync worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Delta sync worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				s.logger.Debug("Delta sync job channel closed", zap.Int("worker_id", workerID))
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job
func (s *DeltaSyncScheduler) processJob(ctx context.Context, job *DeltaSyncJob, workerID int) {
	// Check if job is ready to run (for retries)
	if job.NextRetryAt != nil && time.Now().Before(*job.NextRetryAt) {
		// Re-queue the job
		select {
		case s.jobs <- job:
		default:
			s.logger.Warn("Failed to re-queue delta sync job for retry",
				zap.String("job_id", job.ID.String()),
			)
		}
		return
	}

	job.Start()
	s.logger.Info("Processing delta sync job",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("provider_id", job.ProviderID),
	)

	// Create context with timeout
	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	// Execute the job
	err := s.executor.Execute(jobCtx, job)
	if err != nil {
		job.Fail(err.Error())
		s.logger.Error("Delta sync job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("provider_id", job.ProviderID),
			zap.Error(err),
		)

		// Check if should retry
		if job.ShouldRetry() {
			job.ScheduleRetry(s.config.RetryBackoffBase, s.config.RetryBackoffMax)
			s.logger.Info("Delta sync job scheduled for retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
				zap.Int("max_retries", job.MaxRetries),
				zap.Time("next_retry_at", *job.NextRetryAt),
			)
			// Re-submit job
			select {
			case s.jobs <- job:
			default:
				s.logger.Warn("Failed to re-queue delta sync job for retry",
					zap.String("job_id", job.ID.String()),
				)
			}
		}

		// Add to history
		s.addToHistory(job)
		return
	}

	s.logger.Info("Delta sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("provider_id", job.ProviderID),
		zap.String("status", string(job.Status)),
		zap.Int("total_records", job.TotalRecords),
		zap.Int("success_count", job.SuccessCount),
		zap.Int("failed_count", job.FailedCount),
		zap.Int("escalated_count", job.EscalatedCount),
	)

	// Add to history
	s.addToHistory(job)
}

// addToHistory adds a completed job to history
func (s *DeltaSyncScheduler) addToHistory(job *DeltaSyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	// Add to front
	s.history = append([]*DeltaSyncJob{job}, s.history...)

	// Trim if over limit
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// GetJobHistory returns recent job history
func (s *DeltaSyncScheduler) GetJobHistory(limit int) []*DeltaSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*DeltaSyncJob, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByTenant returns job history for a specific tenant
func (s *DeltaSyncScheduler) GetJobHistoryByTenant(tenantID uuid.UUID, limit int) []*DeltaSyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*DeltaSyncJob, 0, limit)
	for _, job := range s.history {
		if job.TenantID == tenantID {
			result = append(result, job)
			if len(result) >= limit {
				break
			}
		}
	}
	return result
}

// ScheduleSync schedules a delta sync job for a tenant and provider
func (s *DeltaSyncScheduler) ScheduleSync(tenantID uuid.UUID, providerID string) error {
	job := NewDeltaSyncJob(tenantID, providerID, s.config.RetryAttempts)
	return s.SubmitJob(job)
}
