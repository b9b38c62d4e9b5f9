// Package printing turns quotes into PDF documents.
//
// A QuoteTemplate renders the HTML for a quote and a PDFRenderer prints that
// HTML through headless Chrome:
//
//	html, err := tmpl.Render(doc)
//	result, err := renderer.Render(ctx, &RenderRequest{HTML: html, PaperSize: PaperLetter})
package printing
