package mail

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type PassDocument struct {
	Reference  string
	Holder     string
	Regno      string
	DeviceName string
	RFIDTag    string
	IssuedAt   time.Time
	ExpiresAt  *time.Time
	QRPNG      []byte
}

// RenderPassPDF lays out a printable one-page gate pass.
func RenderPassPDF(doc PassDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetTitle("Gate pass "+doc.Reference, false)
	pdf.SetAuthor(brand, false)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "GATE PASS", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, doc.Reference, "", 1, "C", false, 0, "")
	hr(pdf)

	kv(pdf, "Holder", doc.Holder)
	kv(pdf, "Registration", doc.Regno)
	kv(pdf, "Device", doc.DeviceName)
	kv(pdf, "RFID tag", doc.RFIDTag)
	kv(pdf, "Issued", doc.IssuedAt.Format("02.01.2006 15:04"))
	if doc.ExpiresAt != nil {
		kv(pdf, "Valid until", doc.ExpiresAt.Format("02.01.2006 15:04"))
	}

	if len(doc.QRPNG) > 0 {
		name := "qr-" + doc.Reference
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(doc.QRPNG))
		pdf.ImageOptions(name, 44, pdf.GetY()+6, 60, 60, false, opts, 0, "")
		pdf.SetY(pdf.GetY() + 70)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "Present this pass with your PIN at the gate. The PIN is valid for a single scan.", "", "C", false)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pass pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pass pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func kv(pdf *gofpdf.Fpdf, key, value string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(40, 7, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
}

func hr(pdf *gofpdf.Fpdf) {
	x1, _, x2, _ := pdf.GetMargins()
	w, _ := pdf.GetPageSize()
	y := pdf.GetY() + 2
	pdf.Line(x1, y, w-x2, y)
	pdf.Ln(5)
}
