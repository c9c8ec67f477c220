package export

import (
	"fmt"
	"io"
	"time"

	"github.com/avvvet/tap-services/internal/tapsvc/models"
	"github.com/xuri/excelize/v2"
)

const leadsSheet = "Leads"

// WriteLeadsXLSX writes a single sheet workbook with the CSV columns.
func WriteLeadsXLSX(w io.Writer, leads []*models.Lead, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", leadsSheet); err != nil {
		return err
	}

	header := make([]any, len(LeadColumns))
	for i, c := range LeadColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(leadsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(LeadColumns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(leadsSheet, "A1", lastHeader, bold); err != nil {
		return err
	}

	for i, l := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := LeadRow(l, loc)
		if err := f.SetSheetRow(leadsSheet, cell, &row); err != nil {
			return fmt.Errorf("write lead %s: %w", l.ID, err)
		}
	}

	if err := f.SetColWidth(leadsSheet, "A", "C", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(leadsSheet, "D", "D", 60); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
