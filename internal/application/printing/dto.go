package printing

import "time"

// RenderQuoteOptions selects the printed layout
type RenderQuoteOptions struct {
	PaperSize string `form:"paper" binding:"omitempty,oneof=LETTER A4"`
}

// QuotePDF is a rendered quote
type QuotePDF struct {
	Number   string
	Filename string
	Data     []byte
	Pages    int
}

// ArchivedQuoteResponse points at an archived quote document
type ArchivedQuoteResponse struct {
	Number    string     `json:"number"`
	Key       string     `json:"key"`
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Bytes     int        `json:"bytes,omitempty"`
}
