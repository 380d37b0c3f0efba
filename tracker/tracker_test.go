package tracker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basalt-run/heaplab/memlayout"
)

func snapshot(totalSize int) memlayout.Snapshot {
	return memlayout.Snapshot{
		TotalSize: totalSize,
		Blocks: []memlayout.BlockView{
			{Offset: 0, Size: totalSize / 2, Free: false, WasteFraction: 0.1},
			{Offset: totalSize / 2, Size: totalSize / 2, Free: true},
		},
	}
}

func TestTrackDropsOldestBeyondMaxHistory(t *testing.T) {
	tr := New(Config{MaxHistory: 2})
	tr.Track(snapshot(64))
	tr.Track(snapshot(128))
	tr.Track(snapshot(256))

	history := tr.History()
	require.Len(t, history, 2)
	require.Equal(t, 128, history[0].TotalSize)
	require.Equal(t, 256, history[1].TotalSize)
}

func TestTwoTrackersAreIndependent(t *testing.T) {
	a := New(Config{})
	b := New(Config{})
	a.Track(snapshot(64))
	require.Len(t, a.History(), 1)
	require.Empty(t, b.History())
}

func TestSaveHistoryWritesBMPFile(t *testing.T) {
	dir := t.TempDir()
	tr := New(Config{FilePrefix: filepath.Join(dir, "state")})
	tr.Track(snapshot(64))

	require.NoError(t, tr.SaveHistory())

	info, err := os.Stat(filepath.Join(dir, "state.bmp"))
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestSaveJSONWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	tr := New(Config{FilePrefix: filepath.Join(dir, "state")})
	tr.Track(snapshot(64))

	require.NoError(t, tr.SaveJSON())

	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	require.Contains(t, string(data), "TotalSize")
}

func TestSaveHistoryFailsOnEmptyHistory(t *testing.T) {
	dir := t.TempDir()
	tr := New(Config{FilePrefix: filepath.Join(dir, "state")})
	require.Error(t, tr.SaveHistory())
}
