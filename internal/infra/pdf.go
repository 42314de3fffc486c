package infra

// Close-out report ("corte de caja") rendered with go-pdf/fpdf on US Letter:
//   - plantel header and session dates
//   - totals block (initial, cash in/out, expected vs declared)
//   - opening denomination count
//   - cash transactions and cash expenses detail
//
// Files are written to storagePath/corte_{id}.pdf.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"cajaescolar/internal/caja"
	"cajaescolar/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// CorteFileName is the file name used for a caja's report.
func CorteFileName(p caja.CajaProcesada) string {
	return fmt.Sprintf("corte_%s.pdf", p.ID)
}

// GenerarCortePDF writes the report to storagePath and returns its path.
func GenerarCortePDF(p caja.CajaProcesada, plantel string, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0o755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, CorteFileName(p))

	pdf := renderCorte(p, plantel)
	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

// EscribirCortePDF streams the report to w.
func EscribirCortePDF(w io.Writer, p caja.CajaProcesada, plantel string) error {
	pdf := renderCorte(p, plantel)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	return nil
}

func renderCorte(p caja.CajaProcesada, plantel string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle("Corte de caja", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 8, tr(plantel), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, "Corte de caja", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Caja: "+p.ID.String(), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Apertura: "+fecha(p.OpenedAt), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("Cierre: "+fecha(p.ClosedAt)), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	separador(pdf, pageW)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := contentW * 0.65
	valueW := contentW * 0.35
	fila := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 6, moneda(v), "", 1, "R", false, 0, "")
	}
	fila("Monto inicial", p.InitialAmount, false)
	fila("Ingresos en efectivo", p.IngresosEfectivo, false)
	fila("Gastos en efectivo", p.GastosEfectivo.Neg(), false)
	fila("Balance en efectivo", p.BalanceEfectivo, false)
	fila("Efectivo esperado", p.BalanceFinal, true)
	if p.FinalAmount != nil {
		fila("Efectivo declarado", *p.FinalAmount, true)
	}
	if p.Diferencia != nil {
		fila("Diferencia", *p.Diferencia, true)
	}
	if p.NextDay != nil {
		fila("Fondo para el siguiente día", *p.NextDay, false)
	}
	pdf.Ln(1)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Todos los métodos: ingresos %s, gastos %s, balance %s",
		moneda(p.Ingresos), moneda(p.GastosTotal), moneda(p.Balance))), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	separador(pdf, pageW)

	// ── Denominations ────────────────────────────────────────────────────────
	if len(p.DenominationBreakdown) > 0 {
		seccion(pdf, contentW, tr("Desglose de apertura"))
		pdf.SetFont("Helvetica", "", 9)
		for _, k := range denominacionesOrdenadas(p.DenominationBreakdown) {
			pdf.CellFormat(labelW, 5, "$"+k+" x "+fmt.Sprint(p.DenominationBreakdown[k]), "", 0, "L", false, 0, "")
			pdf.CellFormat(valueW, 5, "", "", 1, "R", false, 0, "")
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(labelW, 5, "Total contado", "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, moneda(p.MontoEfectivoReal), "", 1, "R", false, 0, "")
		pdf.Ln(2)
	}

	// ── Detail ───────────────────────────────────────────────────────────────
	conceptoW := contentW * 0.5
	horaW := contentW * 0.2
	montoW := contentW * 0.3
	if len(p.TransaccionesEfectivo) > 0 {
		seccion(pdf, contentW, "Ingresos en efectivo")
		for _, t := range p.TransaccionesEfectivo {
			detalle(pdf, tr(t.Concept), t.CreatedAt, t.Amount, conceptoW, horaW, montoW)
		}
		pdf.Ln(2)
	}
	if len(p.GastosEfectivoDetalle) > 0 {
		seccion(pdf, contentW, "Gastos en efectivo")
		for _, g := range p.GastosEfectivoDetalle {
			detalle(pdf, tr(g.Category+": "+g.Concept), g.CreatedAt, g.Amount, conceptoW, horaW, montoW)
		}
		pdf.Ln(2)
	}

	if p.Observaciones != nil && *p.Observaciones != "" {
		seccion(pdf, contentW, "Observaciones")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, tr(*p.Observaciones), "", "L", false)
	}
	return pdf
}

func separador(pdf *fpdf.Fpdf, pageW float64) {
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(3)
}

func seccion(pdf *fpdf.Fpdf, w float64, titulo string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(w, 6, titulo, "B", 1, "L", false, 0, "")
}

func detalle(pdf *fpdf.Fpdf, concepto string, at time.Time, monto decimal.Decimal, w1, w2, w3 float64) {
	if len(concepto) > 60 {
		concepto = concepto[:59] + "..."
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(w1, 5, concepto, "", 0, "L", false, 0, "")
	pdf.CellFormat(w2, 5, at.Format("15:04"), "", 0, "C", false, 0, "")
	pdf.CellFormat(w3, 5, moneda(monto), "", 1, "R", false, 0, "")
}

func moneda(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}

func fecha(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

// denominacionesOrdenadas sorts face values from largest to smallest;
// unparseable keys go last.
func denominacionesOrdenadas(d model.Denominaciones) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	valor := func(k string) decimal.Decimal {
		v, err := decimal.NewFromString(k)
		if err != nil {
			return decimal.NewFromInt(-1)
		}
		return v
	}
	sort.Slice(keys, func(i, j int) bool { return valor(keys[i]).GreaterThan(valor(keys[j])) })
	return keys
}
