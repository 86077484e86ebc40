package reports

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	analysis "qorsense-cloud/internal/analysis/domain"
	sensors "qorsense-cloud/internal/sensors/domain"
)

// BuildHealthPDF renders a sensor health report as PDF: the latest verdict
// followed by the assessment history.
func BuildHealthPDF(sensor *sensors.Sensor, history []*analysis.AssessmentRecord) ([]byte, error) {
	if sensor == nil {
		return nil, errors.New("reports: nil sensor")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Sensor Health Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Sensor: %s (%s)", sensor.Name, sensor.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Kind: %s", sensor.Kind))
	pdf.Ln(5)
	if sensor.Location != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Location: %s", sensor.Location))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	if len(history) > 0 {
		latest := history[0]
		pdf.Cell(0, 6, fmt.Sprintf("Latest Status: %s (score %.1f)", latest.Status, latest.HealthScore))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Diagnosis: %s", latest.Diagnosis))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Recommendation: %s", latest.Recommendation))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("RUL: %s", latest.Prediction))
		pdf.Ln(8)
	}

	// History table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(42, 6, "Timestamp", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Score", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Flags", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Prediction", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, record := range history {
		pdf.CellFormat(42, 6, record.Timestamp.Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(18, 6, fmt.Sprintf("%.1f", record.HealthScore), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, string(record.Status), "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, strings.Join(record.Flags, ", "), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, record.Prediction, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildHealthXLSX renders a sensor health report as XLSX with a summary
// sheet and a history sheet carrying the descriptor bundle.
func BuildHealthXLSX(sensor *sensors.Sensor, history []*analysis.AssessmentRecord) ([]byte, error) {
	if sensor == nil {
		return nil, errors.New("reports: nil sensor")
	}

	f := excelize.NewFile()
	summarySheet := "summary"
	historySheet := "history"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(historySheet)

	_ = f.SetCellValue(summarySheet, "A1", "Sensor Health Report")
	_ = f.SetCellValue(summarySheet, "A3", "Sensor")
	_ = f.SetCellValue(summarySheet, "B3", sensor.ID)
	_ = f.SetCellValue(summarySheet, "A4", "Name")
	_ = f.SetCellValue(summarySheet, "B4", sensor.Name)
	_ = f.SetCellValue(summarySheet, "A5", "Kind")
	_ = f.SetCellValue(summarySheet, "B5", sensor.Kind)
	_ = f.SetCellValue(summarySheet, "A6", "Unit")
	_ = f.SetCellValue(summarySheet, "B6", sensor.Unit)
	_ = f.SetCellValue(summarySheet, "A7", "Location")
	_ = f.SetCellValue(summarySheet, "B7", sensor.Location)
	if len(history) > 0 {
		latest := history[0]
		_ = f.SetCellValue(summarySheet, "A9", "Latest Score")
		_ = f.SetCellValue(summarySheet, "B9", latest.HealthScore)
		_ = f.SetCellValue(summarySheet, "A10", "Latest Status")
		_ = f.SetCellValue(summarySheet, "B10", string(latest.Status))
		_ = f.SetCellValue(summarySheet, "A11", "Diagnosis")
		_ = f.SetCellValue(summarySheet, "B11", latest.Diagnosis)
		_ = f.SetCellValue(summarySheet, "A12", "Recommendation")
		_ = f.SetCellValue(summarySheet, "B12", latest.Recommendation)
		_ = f.SetCellValue(summarySheet, "A13", "RUL")
		_ = f.SetCellValue(summarySheet, "B13", latest.Prediction)
	}

	headers := []string{"Timestamp", "Score", "Status", "Bias", "Slope", "Noise Std", "SNR (dB)", "Hysteresis", "Hurst", "Flags", "Prediction"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(historySheet, cell, header)
	}
	for i, record := range history {
		row := i + 2
		values := []any{
			record.Timestamp.Format(time.RFC3339),
			record.HealthScore,
			string(record.Status),
			record.Metrics.Bias,
			record.Metrics.Slope,
			record.Metrics.NoiseStd,
			record.Metrics.SNRdB,
			record.Metrics.Hysteresis,
			record.Metrics.Hurst,
			strings.Join(record.Flags, ", "),
			record.Prediction,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(historySheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
