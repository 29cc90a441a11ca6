package xlsx

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

const SheetName = "Claims"

var header = []any{
	"Claim ID", "Created At (UTC)", "Name", "Phone", "Crop Type", "Farm Location",
	"Date From", "Date To", "Rain Total (mm)", "Avg Max Temp (C)", "Avg Min Temp (C)",
	"Weather Error", "PDF Path", "PDF Hash",
}

// Exporter writes claim records as a single-sheet workbook.
type Exporter struct{}

func NewExporter() Exporter {
	return Exporter{}
}

func (Exporter) WriteClaims(w io.Writer, records []domain.ClaimRecord) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("header range: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		row := claimRow(rec)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := f.SetColWidth(SheetName, "A", "A", 34); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// claimRow flattens a record; a payload that does not decode leaves claim columns blank.
func claimRow(rec domain.ClaimRecord) []any {
	var claim domain.Claim
	_ = json.Unmarshal(rec.Data, &claim)

	var rain, tmax, tmin any
	weatherErr := ""
	if ws := claim.WeatherSummary; ws != nil {
		if ws.Failed() {
			weatherErr = ws.Error
		} else {
			rain = ws.RainSumTotal
			tmax = optional(ws.TMaxAvg)
			tmin = optional(ws.TMinAvg)
		}
	}

	return []any{
		rec.ID,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		claim.Name,
		claim.Phone,
		claim.CropType,
		claim.FarmLocation,
		claim.DateFrom,
		claim.DateTo,
		rain,
		tmax,
		tmin,
		weatherErr,
		rec.DocumentPath,
		rec.DocumentHash,
	}
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
