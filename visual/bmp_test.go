package visual

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basalt-run/heaplab/memlayout"
)

func TestWriteHistoryProducesValidBMPHeader(t *testing.T) {
	history := []memlayout.Snapshot{
		{
			TotalSize: 64,
			Blocks: []memlayout.BlockView{
				{Offset: 0, Size: 32, Free: false, WasteFraction: 0.25},
				{Offset: 32, Size: 32, Free: true},
			},
		},
		{
			TotalSize: 64,
			Blocks: []memlayout.BlockView{
				{Offset: 0, Size: 64, Free: true},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHistory(&buf, history))

	out := buf.Bytes()
	require.GreaterOrEqual(t, len(out), bmpFileHeaderSize+bmpInfoHeaderSize)
	require.Equal(t, byte('B'), out[0])
	require.Equal(t, byte('M'), out[1])

	width := 64 / MinBlockSize
	padding := (4 - (width*3)%4) % 4
	rowSize := width*3 + padding
	wantSize := bmpFileHeaderSize + bmpInfoHeaderSize + rowSize*len(history)
	require.Len(t, out, wantSize)
}

func TestWriteHistoryRejectsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := WriteHistory(&buf, nil)
	require.Error(t, err)
}

func TestFreeBlockColorGradient(t *testing.T) {
	small := FreeBlockColor(16, 16)
	large := FreeBlockColor(1024, 16)
	require.NotEqual(t, small, large)
}

func TestAllocatedBlockColorEndpoints(t *testing.T) {
	low := AllocatedBlockColor(0)
	high := AllocatedBlockColor(1)
	require.Less(t, low.R, high.R)
	require.Greater(t, low.G, high.G)
}
