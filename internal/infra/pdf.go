package infra

// pdf.go — End-of-shift reconciliation report using go-pdf/fpdf.
// One A4 page per shift:
//   - Register / operator header
//   - Opening float, inflows, outflows, sales total
//   - Per-method payment breakdown
//   - Expected vs. counted cash and the variance, bold
//
// The output file is saved to storagePath/fechamento_{shiftID}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jrrjunior2026-lang/PDV-WEB/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateShiftReportPDF writes the reconciliation report for a closed
// shift and returns the absolute path of the generated file.
func GenerateShiftReportPDF(shift *model.CashShift, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	fileName := fmt.Sprintf("fechamento_%s.pdf", shift.ID)
	filePath := filepath.Join(storagePath, fileName)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Fechamento de Caixa", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Caixa %s — Operador: %s", shift.RegisterID, shift.OperatorName), "", 1, "C", false, 0, "")
	if shift.ClosedAt != nil {
		pdf.CellFormat(0, 6, shift.ClosedAt.Format(time.RFC3339), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	row := func(label string, v decimal.Decimal) {
		pdf.CellFormat(90, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, "R$ "+v.StringFixed(2), "", 1, "R", false, 0, "")
	}

	row("Fundo de troco (abertura)", shift.OpeningFloat)
	row("Suprimentos", shift.TotalInflows.Sub(shift.OpeningFloat))
	row("Sangrias", shift.TotalOutflows)
	row("Total de vendas", shift.TotalSales)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Vendas por forma de pagamento", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, pt := range shift.PaymentTotals {
		row(string(pt.Method), pt.Amount)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	if shift.ExpectedCash != nil {
		row("Dinheiro esperado", *shift.ExpectedCash)
	}
	if shift.CountedCash != nil {
		row("Dinheiro contado", *shift.CountedCash)
	}
	if shift.CashVariance != nil {
		row("Diferença", *shift.CashVariance)
	}
	if shift.VarianceClassification != nil {
		pdf.CellFormat(0, 6, "Classificação: "+*shift.VarianceClassification, "", 1, "L", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write %s: %w", filePath, err)
	}
	return filePath, nil
}
