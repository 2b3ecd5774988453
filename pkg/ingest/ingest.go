package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/dataset"
)

// Kind is an accepted upload format.
type Kind string

const (
	KindCSV  Kind = "csv"
	KindXLS  Kind = "xls"
	KindXLSX Kind = "xlsx"
)

// AcceptedExtensions lists the extensions offered to the upload form.
var AcceptedExtensions = []string{".csv", ".xls", ".xlsx"}

// KindFromFilename maps a file name to its format by extension.
func KindFromFilename(name string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".csv":
		return KindCSV, nil
	case ".xls":
		return KindXLS, nil
	case ".xlsx":
		return KindXLSX, nil
	}
	return "", apperr.Newf(apperr.KindUnsupportedFormat,
		"unsupported file type %q: please upload a valid Excel (.xls, .xlsx) or CSV (.csv) file", ext)
}

// Ingest parses an uploaded file into a dataset.
func Ingest(filename string, data []byte) (*dataset.Dataset, error) {
	kind, err := KindFromFilename(filename)
	if err != nil {
		return nil, err
	}
	ds, err := IngestKind(kind, data)
	if err != nil {
		return nil, err
	}
	ds.Name = filepath.Base(filename)
	return ds, nil
}

// IngestKind parses raw bytes of a known format. Only the first sheet of a
// workbook is read.
func IngestKind(kind Kind, data []byte) (*dataset.Dataset, error) {
	var (
		grid [][]string
		err  error
	)
	switch kind {
	case KindCSV:
		grid, err = readCSV(data)
	case KindXLSX:
		grid, err = readXLSX(data)
	case KindXLS:
		grid, err = readXLS(data)
	default:
		return nil, apperr.Newf(apperr.KindUnsupportedFormat, "unsupported file type %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return fromGrid(string(kind), grid)
}

// fromGrid turns a header row plus string cells into a typed dataset.
func fromGrid(name string, grid [][]string) (*dataset.Dataset, error) {
	if len(grid) == 0 || blank(grid[0]) {
		return nil, apperr.New(apperr.KindEmptyDataset, "the uploaded file contains no data", nil)
	}

	header := trimTrailingBlank(grid[0])
	columns := dataset.NormalizeHeaders(header)

	rows := make([]dataset.Row, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		if blank(rec) {
			continue
		}
		row := make(dataset.Row, len(columns))
		for j := range columns {
			if j < len(rec) {
				row[j] = TypeCell(rec[j])
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, apperr.New(apperr.KindEmptyDataset, "the uploaded file contains no data", nil)
	}

	ds, err := dataset.New(name, columns, rows)
	if err != nil {
		return nil, apperr.New(apperr.KindParse, "inconsistent rows", err)
	}
	return ds, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlank(rec []string) []string {
	end := len(rec)
	for end > 0 && strings.TrimSpace(rec[end-1]) == "" {
		end--
	}
	return rec[:end]
}

func parseError(format string, err error) error {
	return apperr.New(apperr.KindParse,
		fmt.Sprintf("there was an error processing your file (%s); please ensure it is a valid file", format), err)
}
