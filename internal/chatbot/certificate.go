package chatbot

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shaktiabhiyan/taskforce/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrNoCertificate is returned when the session has not completed an audit.
var ErrNoCertificate = domain.NotFound("chatbot.certificate", "certificate", "current session")

// =============================================================================
// Certificate Generator
// =============================================================================

// Certificate renders the participation certificate issued after a
// successful audit submission.
type Certificate struct {
	// Page dimensions (A4 landscape in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64
}

// NewCertificate creates a certificate generator with default settings.
func NewCertificate() *Certificate {
	return &Certificate{
		pageWidth:  297.0,
		pageHeight: 210.0,
		margin:     12.0,
	}
}

// Filename returns the download name for a participant's certificate.
func (c *Certificate) Filename(name string) string {
	return fmt.Sprintf("%s_Certificate.pdf", name)
}

// Generate writes the certificate for the session's participant to w.
func (c *Certificate) Generate(sess *Session, issued time.Time, w io.Writer) (int64, error) {
	name := sess.CertificateName()
	if name == "" {
		return 0, ErrNoCertificate
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Voter Roll Audit Certificate - "+name, true)
	pdf.SetCreator("Shakti Abhiyan Legal Taskforce", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Core fonts are cp1252; characters outside it are dropped.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Border
	pdf.SetDrawColor(176, 32, 32)
	pdf.SetLineWidth(2)
	pdf.Rect(c.margin, c.margin, c.pageWidth-2*c.margin, c.pageHeight-2*c.margin, "D")
	pdf.SetLineWidth(0.5)
	pdf.Rect(c.margin+4, c.margin+4, c.pageWidth-2*c.margin-8, c.pageHeight-2*c.margin-8, "D")

	contentWidth := c.pageWidth - 2*c.margin

	pdf.SetY(40)
	pdf.SetX(c.margin)
	pdf.SetFont("Helvetica", "B", 30)
	pdf.SetTextColor(176, 32, 32)
	pdf.CellFormat(contentWidth, 14, "Certificate of Participation", "", 1, "C", false, 0, "")

	pdf.SetX(c.margin)
	pdf.SetFont("Helvetica", "", 14)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(contentWidth, 10, "Voter Roll Audit - Stop Vote Chori", "", 1, "C", false, 0, "")

	pdf.Ln(14)
	pdf.SetX(c.margin)
	pdf.SetFont("Helvetica", "I", 13)
	pdf.CellFormat(contentWidth, 8, "This certificate is presented to", "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetX(c.margin)
	pdf.SetFont("Helvetica", "B", 34)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(contentWidth, 18, tr(displayName(name)), "", 1, "C", false, 0, "")

	loc := sess.Location()
	pdf.Ln(8)
	pdf.SetX(c.margin + 20)
	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(60, 60, 60)
	body := "for reporting discrepancies in the electoral roll"
	if loc.Assembly != "" {
		body += fmt.Sprintf(" of %s assembly constituency", loc.Assembly)
	}
	if loc.State != "" {
		body += ", " + loc.State
	}
	body += ", and helping protect every citizen's right to vote."
	pdf.MultiCell(contentWidth-40, 7, tr(body), "", "C", false)

	pdf.SetY(c.pageHeight - c.margin - 24)
	pdf.SetX(c.margin)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentWidth, 6, "Issued "+issued.Format("2 January 2006"), "", 1, "C", false, 0, "")

	// Check for errors during generation
	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}
	return buf.WriteTo(w)
}

// displayName capitalises each word without lowering the rest.
func displayName(name string) string {
	return cases.Title(language.English, cases.NoLower).String(name)
}
