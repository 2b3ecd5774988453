package ingest

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"ai-data-analyst-be/pkg/apperr"
)

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, parseError("xlsx", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.New(apperr.KindEmptyDataset, "the workbook has no sheets", nil)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseError("xlsx", err)
	}
	return rows, nil
}

// readXLS reads the legacy BIFF format. The decoder panics on some corrupt
// inputs, so panics are turned into parse errors.
func readXLS(data []byte) (grid [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			grid = nil
			err = parseError("xls", fmt.Errorf("decoder panic: %v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, parseError("xls", err)
	}
	if wb.NumSheets() == 0 {
		return nil, apperr.New(apperr.KindEmptyDataset, "the workbook has no sheets", nil)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, apperr.New(apperr.KindEmptyDataset, "the workbook has no sheets", nil)
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}
