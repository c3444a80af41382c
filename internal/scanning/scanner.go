package scanning

import (
	"context"
	"fmt"
	"image"
)

// Scanner sends a rendered invoice page to a vision model and returns the
// model's raw text answer
type Scanner interface {
	// ScanInvoice analyzes a JPEG page image
	ScanInvoice(ctx context.Context, jpeg []byte) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}

// Renderer rasterizes the first page of a PDF file
type Renderer interface {
	RenderFirstPage(path string) (image.Image, error)
}

// Reason classifies why an invoice produced no record
type Reason string

const (
	ReasonRender   Reason = "render"
	ReasonRequest  Reason = "request"
	ReasonStatus   Reason = "status"
	ReasonResponse Reason = "response"
	ReasonParse    Reason = "parse"
)

// Error is returned for every failed extraction
type Error struct {
	Path       string
	Reason     Reason
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Reason)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s %d", msg, e.StatusCode)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
