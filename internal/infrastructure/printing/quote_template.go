package printing

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/marmoleria/backend/internal/domain/quote"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Company identifies the issuer printed on every quote
type Company struct {
	Name  string
	TaxID string
}

// DocumentLine is one printed row
type DocumentLine struct {
	Reference string
	Name      string
	Group     string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// QuoteDocument is the view model of the quote template
type QuoteDocument struct {
	Company       string
	TaxID         string
	Number        string
	Customer      string
	Advisor       string
	City          string
	Currency      string
	IssuedAt      time.Time
	Cancelled     bool
	Area          decimal.Decimal
	WeightKg      decimal.Decimal
	Lines         []DocumentLine
	Supplies      []DocumentLine
	LinesTotal    decimal.Decimal
	SuppliesTotal decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
}

// HasSupplies reports whether supply rows are printed
func (d QuoteDocument) HasSupplies() bool { return len(d.Supplies) > 0 }

// HasShipping reports whether a freight row is printed
func (d QuoteDocument) HasShipping() bool { return d.Shipping.IsPositive() }

// NewQuoteDocument builds the view model. names resolves display names for
// references and may return "" for unknown ones.
func NewQuoteDocument(q *quote.Quote, company Company, names func(string) string) QuoteDocument {
	if names == nil {
		names = func(string) string { return "" }
	}
	doc := QuoteDocument{
		Company:       company.Name,
		TaxID:         company.TaxID,
		Number:        q.Number,
		Customer:      q.CustomerName,
		Advisor:       q.Advisor,
		City:          q.DestinationCity,
		Currency:      string(q.Currency),
		IssuedAt:      q.CreatedAt,
		Cancelled:     q.Status == quote.StatusCancelled,
		Area:          q.Details.Area,
		WeightKg:      q.Details.EstimatedWeightKg,
		LinesTotal:    q.Details.LinesTotal,
		SuppliesTotal: q.Details.SuppliesTotal,
		Shipping:      q.ShippingCost,
		Total:         q.Total,
	}
	for _, l := range q.Lines {
		doc.Lines = append(doc.Lines, DocumentLine{
			Reference: l.Reference,
			Name:      names(l.Reference),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
		})
	}
	for _, s := range q.Supplies {
		doc.Supplies = append(doc.Supplies, DocumentLine{
			Reference: s.Reference,
			Name:      names(s.Reference),
			Group:     s.Group,
			Quantity:  s.Units,
			UnitPrice: s.UnitPrice,
			Subtotal:  s.Subtotal,
		})
	}
	return doc
}

// QuoteTemplate renders quotes to HTML with Colombian number formatting
type QuoteTemplate struct {
	tmpl *template.Template
}

// NewQuoteTemplate parses the embedded template
func NewQuoteTemplate() (*QuoteTemplate, error) {
	p := message.NewPrinter(language.MustParse("es-CO"))
	funcs := template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return "$ " + p.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
		},
		"qty": func(d decimal.Decimal) string {
			return p.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(2)))
		},
		"date": func(t time.Time) string {
			return t.Format("02/01/2006")
		},
	}
	tmpl, err := template.New("quote.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/quote.html.tmpl")
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "parse quote template", err)
	}
	return &QuoteTemplate{tmpl: tmpl}, nil
}

// Render executes the template
func (t *QuoteTemplate) Render(doc QuoteDocument) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, doc); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "execute quote template", err)
	}
	return buf.String(), nil
}
