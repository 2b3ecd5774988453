package ingest

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-data-analyst-be/pkg/dataset"
)

const (
	cfbSector     = 512
	cfbMinStream  = 4096
	cfbEndOfChain = uint32(0xFFFFFFFE)
	cfbFreeSect   = uint32(0xFFFFFFFF)
	cfbFATSect    = uint32(0xFFFFFFFD)
	cfbNoStream   = uint32(0xFFFFFFFF)
)

func le(values ...any) []byte {
	var b bytes.Buffer
	for _, v := range values {
		if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
	return b.Bytes()
}

func biffRecord(buf *bytes.Buffer, id uint16, body []byte) {
	buf.Write(le(id, uint16(len(body))))
	buf.Write(body)
}

func biffBOF(kind uint16) []byte {
	return le(uint16(0x0600), kind, uint16(0x0DBB), uint16(0x07CC), uint32(0), uint32(0x06))
}

// biffWorkbook encodes a single-sheet BIFF8 stream. Strings become LABEL
// cells, float64 values NUMBER cells.
func biffWorkbook(rows [][]any) []byte {
	const name = "Sheet1"

	var sheet bytes.Buffer
	biffRecord(&sheet, 0x0809, biffBOF(0x0010))
	for r, cells := range rows {
		biffRecord(&sheet, 0x0208, le(uint16(r), uint16(0), uint16(len(cells)), uint16(0x00FF), uint16(0), uint16(0), uint32(0x0100)))
	}
	for r, cells := range rows {
		for c, v := range cells {
			switch v := v.(type) {
			case string:
				biffRecord(&sheet, 0x0204, le(uint16(r), uint16(c), uint16(0x0F), uint16(len(v)), uint8(0), []byte(v)))
			case float64:
				biffRecord(&sheet, 0x0203, le(uint16(r), uint16(c), uint16(0x0F), v))
			}
		}
	}
	biffRecord(&sheet, 0x000A, nil)

	// BOF, BOUNDSHEET and EOF precede the sheet substream.
	sheetPos := (4 + 16) + (4 + 8 + len(name)) + 4

	var stream bytes.Buffer
	biffRecord(&stream, 0x0809, biffBOF(0x0005))
	biffRecord(&stream, 0x0085, le(uint32(sheetPos), uint8(0), uint8(0), uint8(len(name)), uint8(0), []byte(name)))
	biffRecord(&stream, 0x000A, nil)
	stream.Write(sheet.Bytes())
	return stream.Bytes()
}

func cfbDirEntry(name string, kind uint8, child, start, size uint32) []byte {
	var n [32]uint16
	copy(n[:], utf16.Encode([]rune(name)))
	return le(n, uint16((len(name)+1)*2), kind, uint8(1), cfbNoStream, cfbNoStream, child,
		make([]byte, 16), uint32(0), make([]byte, 16), start, size, uint32(0))
}

// compoundFile wraps stream as the "Workbook" entry of a compound document:
// header, one FAT sector, one directory sector, then the stream sectors.
func compoundFile(stream []byte) []byte {
	size := len(stream)
	if size < cfbMinStream {
		size = cfbMinStream
	}
	if rem := size % cfbSector; rem != 0 {
		size += cfbSector - rem
	}
	padded := make([]byte, size)
	copy(padded, stream)
	sectors := size / cfbSector

	msat := make([]uint32, 109)
	for i := range msat {
		msat[i] = cfbFreeSect
	}
	msat[0] = 0

	var out bytes.Buffer
	out.Write(le(uint32(0xE011CFD0), uint32(0xE11AB1A1), make([]byte, 16),
		uint16(0x003E), uint16(0x0003), uint16(0xFFFE), uint16(9), uint16(6), make([]byte, 10),
		uint32(1), uint32(1), uint32(0), uint32(cfbMinStream),
		cfbEndOfChain, uint32(0), cfbEndOfChain, uint32(0), msat))

	fat := make([]uint32, cfbSector/4)
	for i := range fat {
		fat[i] = cfbFreeSect
	}
	fat[0] = cfbFATSect
	fat[1] = cfbEndOfChain
	for i := 0; i < sectors; i++ {
		fat[2+i] = uint32(3 + i)
	}
	fat[1+sectors] = cfbEndOfChain
	out.Write(le(fat))

	dir := make([]byte, cfbSector)
	copy(dir, cfbDirEntry("Root Entry", 5, 1, cfbEndOfChain, 0))
	copy(dir[128:], cfbDirEntry("Workbook", 2, cfbNoStream, 2, uint32(size)))
	out.Write(dir)

	out.Write(padded)
	return out.Bytes()
}

func TestIngestXLS(t *testing.T) {
	raw := compoundFile(biffWorkbook([][]any{
		{"region", "units", "price"},
		{"North", 4.0, 2.5},
		{"South", 7.0, 1.25},
	}))

	ds, err := Ingest("stock.xls", raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "units", "price"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, dataset.Row{"North", int64(4), 2.5}, ds.Rows[0])
	assert.Equal(t, dataset.Row{"South", int64(7), 1.25}, ds.Rows[1])
}
