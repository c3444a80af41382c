package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/facturas/internal/invoice"
)

// ReportWriter saves records as a report and returns its path
type ReportWriter interface {
	Write(records []invoice.Record) (string, error)
}

// IDGenerator generates unique IDs for runs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service drives a run: extract, write the report, summarize, record history
type Service struct {
	mu          sync.Mutex
	runner      *Runner
	writer      ReportWriter
	db          DB
	idGenerator IDGenerator
	timeSource  TimeSource
	logger      *slog.Logger
}

// NewService creates a new Service with random IDs and the wall clock
func NewService(runner *Runner, writer ReportWriter, db DB, logger *slog.Logger) *Service {
	return NewServiceWithDeps(runner, writer, db, uuidGenerator{}, defaultTimeSource{}, logger)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(runner *Runner, writer ReportWriter, db DB, idGen IDGenerator, timeSrc TimeSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:      runner,
		writer:      writer,
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSrc,
		logger:      logger,
	}
}

// Process runs every queued file, writes the report and stores the run.
// The queue is emptied only when a report was written. Runs never overlap.
func (s *Service) Process(ctx context.Context, queue *invoice.Queue, progress Progress) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := queue.Paths()
	run := &Run{
		ID:        s.idGenerator.Generate(),
		StartedAt: s.timeSource.Now(),
		Files:     len(paths),
	}
	logger := s.logger.With("run_id", run.ID)

	batch, err := s.runner.Run(ctx, paths, progress)
	if errors.Is(err, ErrEmptyQueue) {
		return nil, err
	}
	if batch != nil {
		run.Failures = batch.Failures
	}
	if err != nil {
		s.finish(logger, run, StatusFailed, invoice.Summarize(nil, len(run.Failures)))
		return run, err
	}

	summary := invoice.Summarize(batch.Records, len(batch.Failures))
	path, err := s.writer.Write(batch.Records)
	if err != nil {
		s.finish(logger, run, StatusFailed, summary)
		return run, fmt.Errorf("writing report: %w", err)
	}
	run.ReportPath = path

	s.finish(logger, run, StatusCompleted, summary)
	queue.Reset()

	logger.Info("Run completed",
		"report", path,
		"processed", summary.Processed,
		"with_missing", summary.WithMissing,
		"failed", summary.Failed,
		"total", summary.Total.StringFixed(2),
	)
	return run, nil
}

func (s *Service) finish(logger *slog.Logger, run *Run, status string, summary invoice.Summary) {
	run.Status = status
	run.FinishedAt = s.timeSource.Now()
	run.Processed = summary.Processed
	run.WithMissing = summary.WithMissing
	run.Failed = summary.Failed
	run.Total = summary.Total

	if err := s.db.SaveRun(run); err != nil {
		logger.Warn("Failed to save run history", "error", err)
	}
}

// GetRun retrieves a run by ID
func (s *Service) GetRun(id string) (*Run, error) {
	run, err := s.db.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first
func (s *Service) ListRuns() ([]*Run, error) {
	runs, err := s.db.ListRuns()
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}
