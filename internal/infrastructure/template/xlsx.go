// Package template produces the blank inspection spreadsheet offered for
// download alongside the extraction pipeline.
package template

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Filename is the fixed download name of the blank template.
const Filename = "inspection-template.xlsx"

var headers = []string{
	"Defect Description",
	"Location",
	"Department",
	"Category",
	"Severity",
	"Status",
}

// Builder renders the blank inspection workbook.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// BlankInspection returns the workbook bytes: one sheet with the defect
// header row, ready to be filled in and scanned back.
func (Builder) BlankInspection() ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	const sheet = "Inspection"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("set header %q: %w", h, err)
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 48); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "F", 20); err != nil {
		return nil, fmt.Errorf("set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
