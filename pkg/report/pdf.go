// Package report renders a completed lab session into a downloadable PDF
// document.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// Data is the flattened view of a frozen session the document is built from.
type Data struct {
	Name            string
	Course          string
	Score           int
	CompletedAt     time.Time
	SampleID        string
	ApparentDensity float64
	Mineral         string
	Justification   string
	SafetyCorrect   bool
	Procedure       string
	LabReport       string
}

// Exporter produces the printable lab report.
type Exporter struct{}

// NewExporter constructs a PDF exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

const margin = 20.0

// Render lays out the report on A4 portrait pages and returns the document
// bytes.
func (e *Exporter) Render(data Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(margin, margin, margin)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(150, 150, 150)
		footer := fmt.Sprintf("Página %d de {nb} | Laboratorio Metalúrgico Virtual", pdf.PageNo())
		pdf.CellFormat(0, 10, tr(footer), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 12, tr("Informe de Laboratorio Virtual"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	writeField(pdf, tr, "Estudiante:", data.Name)
	writeField(pdf, tr, "Curso:", data.Course)
	writeField(pdf, tr, "Fecha:", data.CompletedAt.Format("02/01/2006 15:04"))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(45, 212, 191)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Puntaje Total Obtenido: %d / 100", data.Score)), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetDrawColor(200, 200, 200)
	pageWidth, _ := pdf.GetPageSize()
	pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
	pdf.Ln(8)

	safety := "Incorrecta"
	if data.SafetyCorrect {
		safety = "Correcta"
	}
	writeBlock(pdf, tr, "Resumen de Resultados", fmt.Sprintf(
		"- Densidad Aparente Calculada: %.2f g/cm³\n- Identificación del Mineral: %s\n- Justificación: \"%s\"\n- Respuesta de Seguridad: %s",
		data.ApparentDensity, data.Mineral, data.Justification, safety,
	))
	writeBlock(pdf, tr, "Resumen del Informe Generado por IA", data.LabReport)
	writeBlock(pdf, tr, "Procedimiento Propuesto por el Estudiante", fmt.Sprintf("\"%s\"", data.Procedure))
	writeBlock(pdf, tr, "Etiqueta de la Muestra", fmt.Sprintf("ID: %s | Densidad: %.2f g/cm³", data.SampleID, data.ApparentDensity))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render lab report: %w", err)
	}
	return buf.Bytes(), nil
}

func writeField(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(30, 7, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, tr(value), "", 1, "L", false, 0, "")
}

func writeBlock(pdf *fpdf.Fpdf, tr func(string) string, title, content string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5, tr(content), "", "L", false)
	pdf.Ln(6)
}
