package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anime-shed/comicvault-grader/pkg/models"

	"github.com/go-pdf/fpdf"
)

const (
	// Title heads every report
	Title = "ComicVault Grading Report"

	margin         = 72.0
	notesWrapAt    = 90
	notesLeading   = 14.0
	subgradeIndent = 80.0
)

// Meta identifies the graded item on the report
type Meta struct {
	UserID      string
	ComicID     string
	GeneratedAt time.Time
}

// Renderer turns a grading result into a printable document
type Renderer interface {
	Render(meta Meta, result *models.GradingResult) ([]byte, error)
}

type pdfRenderer struct{}

// NewPDFRenderer creates a letter-size PDF renderer
func NewPDFRenderer() Renderer {
	return &pdfRenderer{}
}

func (r *pdfRenderer) Render(meta Meta, result *models.GradingResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("no grading result to render")
	}

	pdf := r.layout(meta, result)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *pdfRenderer) layout(meta Meta, result *models.GradingResult) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetTitle(Title, true)
	pdf.SetAutoPageBreak(false, margin)
	if !meta.GeneratedAt.IsZero() {
		pdf.SetCreationDate(meta.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()

	pdf.AddPage()
	y := margin

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(margin, y, Title)

	y += 30
	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(margin, y, tr("User ID: "+meta.UserID))
	y += 18
	pdf.Text(margin, y, tr("Comic ID: "+meta.ComicID))

	y += 30
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(margin, y, fmt.Sprintf("Final Grade: %.1f", result.Final))
	pdf.SetFont("Helvetica", "", 11)
	pdf.Text(260, y, fmt.Sprintf("Confidence: %d%%", result.ConfidencePercent()))

	y += 30
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, y, "Subgrades")
	y += 18
	pdf.SetFont("Helvetica", "", 11)
	for _, d := range models.Dimensions {
		label := strings.ToUpper(string(d[:1])) + string(d[1:])
		pdf.Text(subgradeIndent, y, fmt.Sprintf("%-12s: %.2f", label, result.Subgrades[d]))
		y += 16
	}

	if result.Flags.RestorationSuspected {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Text(margin, y, "Restoration suspected")
		y += 16
	}

	y += 24
	if result.Notes == "" {
		return pdf
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, y, "Grader Notes")
	y += 18
	pdf.SetFont("Helvetica", "", 11)

	for _, line := range wrapText(result.Notes, notesWrapAt) {
		pdf.Text(subgradeIndent, y, tr(line))
		y += notesLeading
		if y > pageHeight-margin {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "", 11)
			y = margin
		}
	}
	return pdf
}

// wrapText greedily packs words into lines of at most maxChars characters.
// A single word longer than maxChars gets a line of its own.
func wrapText(text string, maxChars int) []string {
	var (
		lines  []string
		line   []string
		length int
	)
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if len(line) > 0 && length+1+n > maxChars {
			lines = append(lines, strings.Join(line, " "))
			line, length = nil, 0
		}
		if len(line) > 0 {
			length++
		}
		line = append(line, word)
		length += n
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}
	return lines
}
