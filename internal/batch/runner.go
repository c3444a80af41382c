package batch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zombor/facturas/internal/invoice"
	"github.com/zombor/facturas/internal/scanning"
)

var (
	// ErrEmptyQueue is returned when a run starts without files
	ErrEmptyQueue = errors.New("no PDF files selected")
	// ErrAllFailed is returned when no file produced a record
	ErrAllFailed = errors.New("no invoice could be extracted")
)

// DefaultPause is the delay between files
const DefaultPause = 100 * time.Millisecond

// Extractor turns one PDF into a record
type Extractor interface {
	Extract(ctx context.Context, path string) (invoice.Record, error)
}

// Progress receives one step per processed file
type Progress interface {
	Begin(total int)
	Advance(path string, err error)
}

type noProgress struct{}

func (noProgress) Begin(int)             {}
func (noProgress) Advance(string, error) {}

// Failure describes a file that produced no record
type Failure struct {
	Path   string          `json:"path"`
	Reason scanning.Reason `json:"reason"`
	Error  string          `json:"error"`
}

func newFailure(path string, err error) Failure {
	f := Failure{Path: path, Reason: scanning.ReasonRequest, Error: err.Error()}
	var scanErr *scanning.Error
	if errors.As(err, &scanErr) {
		f.Reason = scanErr.Reason
	}
	return f
}

// Batch is the outcome of running every queued file
type Batch struct {
	Records  []invoice.Record
	Failures []Failure
}

// Runner extracts files one at a time
type Runner struct {
	extractor Extractor
	pause     time.Duration
	logger    *slog.Logger
}

// NewRunner creates a Runner. A zero pause disables the delay between files.
func NewRunner(extractor Extractor, pause time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		extractor: extractor,
		pause:     pause,
		logger:    logger,
	}
}

// Run extracts every path in order. It returns ErrEmptyQueue without doing
// anything when paths is empty, and ErrAllFailed along with the batch when
// no file produced a record.
func (r *Runner) Run(ctx context.Context, paths []string, progress Progress) (*Batch, error) {
	if progress == nil {
		progress = noProgress{}
	}
	if len(paths) == 0 {
		r.logger.Warn("No PDF files to process")
		return nil, ErrEmptyQueue
	}

	progress.Begin(len(paths))
	batch := &Batch{Records: make([]invoice.Record, 0, len(paths))}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		record, err := r.extractor.Extract(ctx, path)
		if err != nil {
			batch.Failures = append(batch.Failures, newFailure(path, err))
		} else {
			batch.Records = append(batch.Records, record)
		}
		progress.Advance(path, err)

		if i < len(paths)-1 {
			r.wait(ctx)
		}
	}

	if len(batch.Records) == 0 {
		r.logger.Error("Every file failed", "files", len(paths))
		return batch, ErrAllFailed
	}

	r.logger.Info("Batch finished",
		"files", len(paths),
		"records", len(batch.Records),
		"failed", len(batch.Failures),
	)
	return batch, nil
}

func (r *Runner) wait(ctx context.Context) {
	if r.pause <= 0 {
		return
	}
	timer := time.NewTimer(r.pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
