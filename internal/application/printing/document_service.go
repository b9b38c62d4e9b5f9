// Package printing renders quotes as PDF documents and archives them.
package printing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marmoleria/backend/internal/domain/catalog"
	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/marmoleria/backend/internal/domain/shared"
	infra "github.com/marmoleria/backend/internal/infrastructure/printing"
	"github.com/marmoleria/backend/internal/infrastructure/storage"
	"github.com/marmoleria/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const pdfContentType = "application/pdf"

// QuoteDocumentService prints quotes and keeps a copy in document storage
type QuoteDocumentService struct {
	quoteRepo quote.QuoteRepository
	catalog   catalog.Reader
	template  *infra.QuoteTemplate
	renderer  infra.PDFRenderer
	store     storage.DocumentStore
	company   infra.Company
	logger    *zap.Logger
}

// NewQuoteDocumentService creates a new QuoteDocumentService. A nil renderer
// or store makes the corresponding operations report UNAVAILABLE.
func NewQuoteDocumentService(
	quoteRepo quote.QuoteRepository,
	reader catalog.Reader,
	template *infra.QuoteTemplate,
	renderer infra.PDFRenderer,
	store storage.DocumentStore,
	company infra.Company,
	logger *zap.Logger,
) *QuoteDocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuoteDocumentService{
		quoteRepo: quoteRepo,
		catalog:   reader,
		template:  template,
		renderer:  renderer,
		store:     store,
		company:   company,
		logger:    logger,
	}
}

// RenderQuote prints a quote to PDF
func (s *QuoteDocumentService) RenderQuote(ctx context.Context, number string, opts RenderQuoteOptions) (*QuotePDF, error) {
	ctx, span := telemetry.StartSpan(ctx, "printing.render_quote", telemetry.SpanAttrQuoteNumber, number)
	defer span.End()

	if s.renderer == nil || s.template == nil {
		return nil, shared.NewDomainError(shared.CodeUnavailable, "PDF rendering is not enabled")
	}
	q, err := s.quoteRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	html, err := s.template.Render(infra.NewQuoteDocument(q, s.company, s.productName))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	paper := infra.PaperLetter
	if opts.PaperSize != "" {
		paper = infra.PaperSize(strings.ToUpper(opts.PaperSize))
	}
	result, err := s.renderer.Render(ctx, &infra.RenderRequest{
		HTML:       html,
		Title:      "Cotización " + q.Number,
		PaperSize:  paper,
		FooterHTML: `<div style="font-size:8px;width:100%;text-align:center"><span class="pageNumber"></span> / <span class="totalPages"></span></div>`,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, translateRenderError(err)
	}

	return &QuotePDF{
		Number:   q.Number,
		Filename: q.Number + ".pdf",
		Data:     result.PDFData,
		Pages:    result.PageCount,
	}, nil
}

// ArchiveQuote renders the quote and stores it, replacing any earlier copy
func (s *QuoteDocumentService) ArchiveQuote(ctx context.Context, number string) (*ArchivedQuoteResponse, error) {
	if s.store == nil {
		return nil, shared.NewDomainError(shared.CodeUnavailable, "Document storage is not enabled")
	}
	doc, err := s.RenderQuote(ctx, number, RenderQuoteOptions{})
	if err != nil {
		return nil, err
	}
	key := archiveKey(doc.Number)
	if err := s.store.Put(ctx, key, doc.Data, pdfContentType); err != nil {
		return nil, fmt.Errorf("archive quote %s: %w", number, err)
	}
	s.logger.Info("Quote archived", zap.String("quote_number", number), zap.String("key", key), zap.Int("bytes", len(doc.Data)))

	resp, err := s.QuoteLink(ctx, number)
	if err != nil {
		return nil, err
	}
	resp.Bytes = len(doc.Data)
	return resp, nil
}

// QuoteLink returns a download link for an archived quote
func (s *QuoteDocumentService) QuoteLink(ctx context.Context, number string) (*ArchivedQuoteResponse, error) {
	if s.store == nil {
		return nil, shared.NewDomainError(shared.CodeUnavailable, "Document storage is not enabled")
	}
	key := archiveKey(number)
	link, err := s.store.Link(ctx, key, 0)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, shared.NewDomainErrorf(shared.CodeNotFound, "Quote %s has not been archived", number)
		}
		return nil, err
	}
	resp := &ArchivedQuoteResponse{Number: number, Key: link.Key, URL: link.URL}
	if !link.ExpiresAt.IsZero() {
		expires := link.ExpiresAt
		resp.ExpiresAt = &expires
	}
	return resp, nil
}

func (s *QuoteDocumentService) productName(reference string) string {
	if s.catalog == nil {
		return ""
	}
	p, err := s.catalog.LookupProduct(reference)
	if err != nil {
		return ""
	}
	return p.Name
}

// archiveKey groups documents by the year embedded in the quote number
func archiveKey(number string) string {
	year := "unknown"
	if parts := strings.Split(number, "-"); len(parts) == 3 && len(parts[1]) == 4 {
		year = parts[1]
	}
	return fmt.Sprintf("quotes/%s/%s.pdf", year, number)
}

func translateRenderError(err error) error {
	var renderErr *infra.RenderError
	if errors.As(err, &renderErr) {
		switch renderErr.Code {
		case infra.ErrCodeRenderTimeout, infra.ErrCodeRenderFailed:
			return shared.NewDomainErrorf(shared.CodeUnavailable, "PDF renderer unavailable: %s", renderErr.Message)
		}
	}
	return err
}
