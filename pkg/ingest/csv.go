package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"ai-data-analyst-be/pkg/apperr"
)

var (
	utf16LE = []byte{0xFF, 0xFE}
	utf16BE = []byte{0xFE, 0xFF}
)

// decodeText returns a UTF-8 reader over data. UTF-16 input is accepted when
// it carries a BOM; anything else must already be valid UTF-8.
func decodeText(data []byte) (io.Reader, error) {
	if bytes.HasPrefix(data, utf16LE) || bytes.HasPrefix(data, utf16BE) {
		return transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	if !utf8.Valid(data) {
		return nil, parseError("csv", errors.New("file is not valid UTF-8 text"))
	}
	return transform.NewReader(bytes.NewReader(data), unicode.UTF8BOM.NewDecoder()), nil
}

func readCSV(data []byte) ([][]string, error) {
	r, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var grid [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError("csv", err)
		}
		grid = append(grid, rec)
	}
	if len(grid) == 0 {
		return nil, apperr.New(apperr.KindEmptyDataset, "the uploaded file contains no data", nil)
	}
	return grid, nil
}
