package scanning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zombor/facturas/internal/invoice"
)

// Extractor turns an invoice PDF into a record using a Renderer and a Scanner
type Extractor struct {
	renderer Renderer
	scanner  Scanner
	logger   *slog.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(renderer Renderer, scanner Scanner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		renderer: renderer,
		scanner:  scanner,
		logger:   logger,
	}
}

// Extract renders page 1 of path, asks the scanner for its fields and parses
// the answer. Any failure is logged and returned as *Error.
func (e *Extractor) Extract(ctx context.Context, path string) (invoice.Record, error) {
	start := time.Now()

	record, err := e.extract(ctx, path)
	if err != nil {
		e.logger.Error("Failed to extract invoice",
			"path", path,
			"reason", err.Reason,
			"status", err.StatusCode,
			"error", err.Err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return invoice.Record{}, err
	}

	e.logger.Info("Extracted invoice",
		"path", path,
		"number", record.Number.Value,
		"incomplete", record.HasMissing(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return record, nil
}

func (e *Extractor) extract(ctx context.Context, path string) (invoice.Record, *Error) {
	img, err := e.renderer.RenderFirstPage(path)
	if err != nil {
		return invoice.Record{}, &Error{Path: path, Reason: ReasonRender, Err: err}
	}
	jpeg, err := encodeJPEG(img)
	if err != nil {
		return invoice.Record{}, &Error{Path: path, Reason: ReasonRender, Err: err}
	}

	text, err := e.scanner.ScanInvoice(ctx, jpeg)
	if err != nil {
		var scanErr *Error
		if errors.As(err, &scanErr) {
			scanErr.Path = path
			return invoice.Record{}, scanErr
		}
		return invoice.Record{}, &Error{Path: path, Reason: ReasonRequest, Err: err}
	}

	record, err := parseInvoiceJSON(path, text)
	if err != nil {
		return invoice.Record{}, &Error{Path: path, Reason: ReasonParse, Err: err}
	}
	return record, nil
}
