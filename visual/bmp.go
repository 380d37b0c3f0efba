package visual

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/basalt-run/heaplab/memlayout"
)

// bmpFileHeaderSize and bmpInfoHeaderSize are the on-disk sizes of the
// 14-byte BMP file header and 40-byte info header, matching
// memory_visualization.cpp's packed BMPFileHeader/BMPInfoHeader.
const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
)

// WriteHistory renders history as a 24-bit BGR bottom-up bitmap, one row
// per snapshot, width TotalSize/MinBlockSize pixels, 4-byte row padding
// (spec.md §6, memory_visualization.cpp's write_history_bmp/write_bmp).
// Columns not covered by any block — the bookkeeping gap a TLSF header
// occupies — are shaded gray rather than left black, so the two engines'
// overhead is visible in the image.
func WriteHistory(w io.Writer, history []memlayout.Snapshot) error {
	if len(history) == 0 {
		return errors.New("heaplab: cannot render an empty snapshot history")
	}

	width := history[0].TotalSize / MinBlockSize
	if width <= 0 {
		return errors.Errorf("heaplab: arena of %d bytes is narrower than one pixel column", history[0].TotalSize)
	}
	height := len(history)

	padding := (4 - (width*3)%4) % 4
	rowSize := width*3 + padding
	imageSize := rowSize * height

	if err := writeHeaders(w, width, height, imageSize); err != nil {
		return err
	}

	// Bottom-up: the last snapshot is the first row written.
	for y := height - 1; y >= 0; y-- {
		row := renderRow(history[y], width)
		if err := writeRow(w, row, padding); err != nil {
			return errors.Wrapf(err, "heaplab: writing bmp row %d", y)
		}
	}
	return nil
}

func writeHeaders(w io.Writer, width, height, imageSize int) error {
	offsetData := uint32(bmpFileHeaderSize + bmpInfoHeaderSize)

	fileHeader := make([]byte, bmpFileHeaderSize)
	binary.LittleEndian.PutUint16(fileHeader[0:2], 0x4D42) // "BM"
	binary.LittleEndian.PutUint32(fileHeader[2:6], offsetData+uint32(imageSize))
	binary.LittleEndian.PutUint32(fileHeader[10:14], offsetData)
	if _, err := w.Write(fileHeader); err != nil {
		return errors.Wrap(err, "heaplab: writing bmp file header")
	}

	infoHeader := make([]byte, bmpInfoHeaderSize)
	binary.LittleEndian.PutUint32(infoHeader[0:4], bmpInfoHeaderSize)
	binary.LittleEndian.PutUint32(infoHeader[4:8], uint32(width))
	binary.LittleEndian.PutUint32(infoHeader[8:12], uint32(height))
	binary.LittleEndian.PutUint16(infoHeader[12:14], 1)  // planes
	binary.LittleEndian.PutUint16(infoHeader[14:16], 24) // bit_count
	binary.LittleEndian.PutUint32(infoHeader[20:24], uint32(imageSize))
	if _, err := w.Write(infoHeader); err != nil {
		return errors.Wrap(err, "heaplab: writing bmp info header")
	}
	return nil
}

// renderRow paints one snapshot into a row of width RGB pixels, gray where
// no block covers a column.
func renderRow(snap memlayout.Snapshot, width int) []RGB {
	row := make([]RGB, width)
	for i := range row {
		row[i] = headerColor()
	}
	for _, b := range snap.Blocks {
		if b.Size <= 0 {
			continue
		}
		startX := b.Offset / MinBlockSize
		endX := (b.Offset + b.Size) / MinBlockSize
		if startX >= width {
			continue
		}
		if endX > width {
			endX = width
		}
		color := AllocatedBlockColor(b.WasteFraction)
		if b.Free {
			color = FreeBlockColor(b.Size, MinBlockSize)
		}
		for x := startX; x < endX; x++ {
			row[x] = color
		}
	}
	return row
}

func writeRow(w io.Writer, row []RGB, padding int) error {
	buf := make([]byte, len(row)*3+padding)
	for i, px := range row {
		buf[i*3] = px.B
		buf[i*3+1] = px.G
		buf[i*3+2] = px.R
	}
	_, err := w.Write(buf)
	return err
}
