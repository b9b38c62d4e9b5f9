package printing

import (
	"bytes"
	"context"
	"time"
)

// PaperSize names a supported sheet
type PaperSize string

const (
	PaperLetter PaperSize = "LETTER"
	PaperA4     PaperSize = "A4"
)

// Dimensions returns width and height in millimetres
func (p PaperSize) Dimensions() (float64, float64) {
	switch p {
	case PaperA4:
		return 210, 297
	default:
		return 215.9, 279.4
	}
}

// IsValid reports whether the paper size is supported
func (p PaperSize) IsValid() bool {
	return p == PaperLetter || p == PaperA4
}

// Margins in millimetres
type Margins struct {
	Top, Right, Bottom, Left float64
}

// DefaultMargins are used when a request leaves them zero
func DefaultMargins() Margins {
	return Margins{Top: 12, Right: 12, Bottom: 15, Left: 12}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	HTML       string
	Title      string
	PaperSize  PaperSize
	Landscape  bool
	Margins    Margins
	FooterHTML string
	// Timeout overrides the renderer default
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer renders HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
	ErrCodeTemplateFailed   = "TEMPLATE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

// estimatePageCount counts "/Type /Page" objects, excluding the "/Type /Pages" tree nodes
func estimatePageCount(pdf []byte) int {
	count := bytes.Count(pdf, []byte("/Type /Page")) - bytes.Count(pdf, []byte("/Type /Pages"))
	return max(count, 1)
}
