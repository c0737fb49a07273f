// Package receipt renders the PDF confirmation offered on the success page.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	dErrors "bharatkyc/pkg/domain-errors"
)

// Data is what the receipt shows. Text must be Latin-1 representable; the
// core PDF fonts carry no Indic glyphs.
type Data struct {
	Reference   string
	Method      string
	Documents   []string
	MaskedPhone string
	CompletedAt time.Time
}

// Filename is the suggested download name.
func (d Data) Filename() string {
	return strings.ToLower(d.Reference) + ".pdf"
}

// Render writes the receipt as a single A4 page.
func Render(d Data) ([]byte, error) {
	if d.Reference == "" {
		return nil, dErrors.New(dErrors.CodeInvalidState, "receipt requires a reference number")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("KYC Receipt "+d.Reference, false)
	pdf.SetAuthor("Bharat KYC", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Bharat KYC", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, "Verification receipt", "", 1, "C", false, 0, "")
	hr(pdf)
	pdf.Ln(3)

	kvLine(pdf, "Reference number", d.Reference)
	kvLine(pdf, "Verification method", orDash(d.Method))
	if len(d.Documents) > 0 {
		kvLine(pdf, "Documents", strings.Join(d.Documents, ", "))
	}
	if d.MaskedPhone != "" {
		kvLine(pdf, "Mobile number", d.MaskedPhone)
	}
	kvLine(pdf, "Completed at", d.CompletedAt.UTC().Format("02 Jan 2006 15:04 MST"))
	pdf.Ln(2)
	hr(pdf)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Status", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		"Verification: completed",
		"Approval: in progress",
		"Account setup: pending",
	} {
		pdf.MultiCell(0, 6, line, "", "L", false)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, fmt.Sprintf("Keep this reference (%s) for any support request.", d.Reference), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "render receipt")
	}
	return buf.Bytes(), nil
}

func kvLine(pdf *gofpdf.Fpdf, key, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(55, 7, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 7, value, "", "L", false)
}

func hr(pdf *gofpdf.Fpdf) {
	left, _, right, _ := pdf.GetMargins()
	w, _ := pdf.GetPageSize()
	y := pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(left, y, w-right, y)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
