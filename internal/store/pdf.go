package store

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/hyperifyio/newsdigest/internal/extract"
	"github.com/hyperifyio/newsdigest/internal/pipeline"
)

// pdfDoc wraps gofpdf with the few layout primitives the digests need. Core
// fonts are cp1252, so text goes through the translator.
type pdfDoc struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newPDF(title string) *pdfDoc {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.AddPage()
	d := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	d.heading(title, 16)
	return d
}

func (d *pdfDoc) heading(text string, size float64) {
	d.pdf.SetFont("Helvetica", "B", size)
	d.pdf.MultiCell(0, 8, d.tr(text), "", "L", false)
	d.pdf.SetFont("Helvetica", "", 11)
}

func (d *pdfDoc) para(text string) {
	if text == "" {
		return
	}
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
	d.pdf.Ln(2)
}

func (d *pdfDoc) link(url string) {
	if url == "" {
		return
	}
	d.pdf.SetFont("Helvetica", "I", 9)
	d.pdf.WriteLinkString(5, d.tr(url), url)
	d.pdf.Ln(7)
	d.pdf.SetFont("Helvetica", "", 11)
}

func (d *pdfDoc) output(out io.Writer) error {
	return d.pdf.Output(out)
}

func renderHeadlinesPDF(out io.Writer, headlines []extract.Headline) error {
	d := newPDF("Headlines")
	for i, h := range headlines {
		d.heading(fmt.Sprintf("%d. %s", i+1, h.Text), 12)
		d.link(h.Link)
	}
	return d.output(out)
}

func renderDigestPDF(out io.Writer, dg Digest) error {
	d := newPDF("News digest")
	d.link(dg.URL)
	d.heading("Overall summary", 13)
	d.para(dg.OverallSummary)
	d.heading(fmt.Sprintf("Articles (%d)", len(dg.IndividualSummaries)), 13)
	for i, s := range dg.IndividualSummaries {
		d.heading(fmt.Sprintf("%d. %s", i+1, s.Headline), 12)
		d.para(s.Summary)
		d.link(s.Link)
	}
	return d.output(out)
}

func renderArticlesPDF(out io.Writer, results []pipeline.ArticleResult) error {
	d := newPDF("Article summaries")
	for i, r := range results {
		d.heading(fmt.Sprintf("%d. %s", i+1, r.Title), 12)
		if r.Author != "" || r.PublishDate != "" {
			d.para(fmt.Sprintf("%s %s", r.Author, r.PublishDate))
		}
		d.para(r.Summary)
		d.link(r.URL)
	}
	return d.output(out)
}
