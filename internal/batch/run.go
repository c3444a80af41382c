package batch

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/facturas/internal/invoice"
)

// Run statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one pass from file selection through report and summary
type Run struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Files       int             `json:"files"`
	Processed   int             `json:"processed"`
	WithMissing int             `json:"with_missing"`
	Failed      int             `json:"failed"`
	Total       decimal.Decimal `json:"total"`
	ReportPath  string          `json:"report_path,omitempty"`
	Failures    []Failure       `json:"failures,omitempty"`
}

// Summary returns the run's aggregate figures
func (r *Run) Summary() invoice.Summary {
	return invoice.Summary{
		Processed:   r.Processed,
		WithMissing: r.WithMissing,
		Failed:      r.Failed,
		Total:       r.Total,
	}
}
