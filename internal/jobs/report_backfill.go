package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"interviewprep/ai/internal/models"
	"interviewprep/ai/internal/pipeline"
)

// ReportGenerator produces the report of one interview.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, interviewID uint) (*models.ReportResponse, error)
}

// AwaitingReportLister finds interviews whose logging is complete but have no report, in ID
// order starting after afterID.
type AwaitingReportLister interface {
	ListInterviewsAwaitingReport(ctx context.Context, afterID uint, limit int) ([]uint, error)
}

// ReportBackfillJob periodically generates missing reports for finished interviews
type ReportBackfillJob struct {
	generator ReportGenerator
	lister    AwaitingReportLister
	config    *BackfillConfig
	cron      *cron.Cron
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	// last interview ID handed out; the next run resumes after it
	cursor uint
}

// BackfillConfig contains configuration for the backfill job
type BackfillConfig struct {
	Schedule  string // Cron schedule (e.g., "*/10 * * * *" for every ten minutes)
	Enabled   bool   // Whether to schedule the job at all
	BatchSize int    // Maximum interviews handled per run
}

// BackfillResult summarises one run.
type BackfillResult struct {
	Generated int
	Skipped   int
	Failed    int
}

// NewReportBackfillJob creates a new backfill job. Runs never overlap: a tick that fires while
// the previous run is still going is skipped.
func NewReportBackfillJob(generator ReportGenerator, lister AwaitingReportLister, config *BackfillConfig, logger *zap.Logger) *ReportBackfillJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReportBackfillJob{
		generator: generator,
		lister:    lister,
		config:    config,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the scheduled backfill job
func (j *ReportBackfillJob) Start() error {
	if !j.config.Enabled {
		j.logger.Info("report backfill is disabled, skipping scheduler")
		return nil
	}

	j.logger.Info("starting report backfill", zap.String("schedule", j.config.Schedule))

	_, err := j.cron.AddFunc(j.config.Schedule, func() {
		if _, err := j.RunOnce(j.ctx); err != nil {
			j.logger.Error("report backfill run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule report backfill: %w", err)
	}

	j.cron.Start()
	return nil
}

// Stop cancels an in-flight run and waits for it to return.
func (j *ReportBackfillJob) Stop() {
	j.cancel()
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("report backfill stopped")
	}
}

// RunOnce generates reports for up to BatchSize waiting interviews. One interview failing does
// not stop the others; interviews another task is already reporting on are skipped.
//
// Runs walk the waiting interviews by ID and resume where the previous run stopped, wrapping
// to the start once a short batch shows the end was reached. Interviews that keep failing are
// retried only after everything behind them had a turn.
func (j *ReportBackfillJob) RunOnce(ctx context.Context) (BackfillResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var result BackfillResult
	ids, err := j.lister.ListInterviewsAwaitingReport(ctx, j.cursor, j.config.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list interviews awaiting a report: %w", err)
	}
	if len(ids) < j.config.BatchSize {
		j.cursor = 0
	}
	if len(ids) == 0 {
		j.logger.Debug("no interviews awaiting a report")
		return result, nil
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if len(ids) == j.config.BatchSize {
			j.cursor = id
		}

		_, err := j.generator.GenerateReport(ctx, id)
		var pErr *pipeline.Error
		switch {
		case err == nil:
			result.Generated++
		case errors.As(err, &pErr) && pErr.Kind == pipeline.KindConflict:
			result.Skipped++
		default:
			result.Failed++
			j.logger.Warn("report backfill failed for interview", zap.Uint("interview_id", id), zap.Error(err))
		}
	}

	j.logger.Info("report backfill finished",
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
