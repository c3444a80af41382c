package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"reflect"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the resolution invoices are rendered at
const DefaultDPI = 200

const jpegQuality = 90

var errNoPages = errors.New("document has no pages")

// FitzRenderer renders PDF pages with MuPDF
type FitzRenderer struct {
	DPI float64
}

// NewFitzRenderer creates a renderer, falling back to DefaultDPI
func NewFitzRenderer(dpi float64) *FitzRenderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &FitzRenderer{DPI: dpi}
}

// RenderFirstPage rasterizes page 1 of the PDF at path
func (r *FitzRenderer) RenderFirstPage(path string) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, errNoPages
	}

	img, err := doc.ImageDPI(0, r.DPI)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// encodeJPEG converts a rendered page to JPEG bytes
func encodeJPEG(img image.Image) ([]byte, error) {
	if isEmptyImage(img) {
		return nil, errors.New("empty image")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// isEmptyImage reports whether img has no pixels to encode
func isEmptyImage(img image.Image) bool {
	if img == nil {
		return true
	}
	if v := reflect.ValueOf(img); v.Kind() == reflect.Pointer && v.IsNil() {
		return true
	}
	return img.Bounds().Empty()
}
