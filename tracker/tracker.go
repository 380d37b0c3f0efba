// Package tracker implements the state-tracker shell named in spec.md §6
// and flagged for rearchitecture in §9: the reference implementation kept
// its history in a process-wide singleton, so here it is an explicit
// object threaded through whatever calls Track, with no global state.
package tracker

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/basalt-run/heaplab/memlayout"
	"github.com/basalt-run/heaplab/visual"
)

// defaultMaxHistory bounds the ring buffer when Config.MaxHistory is left
// at zero.
const defaultMaxHistory = 1024

// Config configures a Tracker.
type Config struct {
	// MaxHistory caps how many snapshots the ring buffer retains; the
	// oldest are dropped once the cap is reached. Defaults to 1024.
	MaxHistory int
	// FilePrefix names the files SaveHistory and SaveJSON write:
	// FilePrefix+".bmp" and FilePrefix+".json".
	FilePrefix string
}

// Tracker holds a bounded ring buffer of memlayout.Snapshot values. It
// carries no process-wide state: every caller owns its own Tracker.
type Tracker struct {
	cfg     Config
	history []memlayout.Snapshot
}

// New constructs a Tracker from cfg.
func New(cfg Config) *Tracker {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultMaxHistory
	}
	return &Tracker{cfg: cfg}
}

// Track appends s to the ring buffer, dropping the oldest snapshot once
// MaxHistory is exceeded.
func (t *Tracker) Track(s memlayout.Snapshot) {
	t.history = append(t.history, s)
	if len(t.history) > t.cfg.MaxHistory {
		t.history = t.history[len(t.history)-t.cfg.MaxHistory:]
	}
}

// History returns the tracker's current snapshots, oldest first. The
// caller must not mutate the returned slice.
func (t *Tracker) History() []memlayout.Snapshot {
	return t.history
}

// SaveHistory writes the tracked history to FilePrefix+".bmp" via
// visual.WriteHistory.
func (t *Tracker) SaveHistory() error {
	f, err := os.Create(t.cfg.FilePrefix + ".bmp")
	if err != nil {
		return errors.Wrapf(err, "heaplab: creating %s.bmp", t.cfg.FilePrefix)
	}
	defer f.Close()

	if err := visual.WriteHistory(f, t.history); err != nil {
		return errors.Wrapf(err, "heaplab: writing %s.bmp", t.cfg.FilePrefix)
	}
	return nil
}

// SaveJSON serializes the tracked history to FilePrefix+".json", mirroring
// the structured block dumps memutils/metadata/tlsf.go produces via the
// same jwriter library (PrintDetailedMapHeader, BlockJsonData).
func (t *Tracker) SaveJSON() error {
	w := jwriter.NewWriter()
	arr := w.Array()
	for _, snap := range t.history {
		stateObj := arr.Object()
		stateObj.Name("TotalSize").Int(snap.TotalSize)

		blocksArr := stateObj.Name("Blocks").Array()
		for _, b := range snap.Blocks {
			blockObj := blocksArr.Object()
			blockObj.Name("Offset").Int(b.Offset)
			blockObj.Name("Size").Int(b.Size)
			blockObj.Name("Free").Bool(b.Free)
			blockObj.Name("WasteFraction").Float64(b.WasteFraction)
			blockObj.End()
		}
		blocksArr.End()
		stateObj.End()
	}
	arr.End()

	if err := w.Error(); err != nil {
		return errors.Wrap(err, "heaplab: encoding snapshot history as json")
	}
	data := w.Bytes()

	f, err := os.Create(t.cfg.FilePrefix + ".json")
	if err != nil {
		return errors.Wrapf(err, "heaplab: creating %s.json", t.cfg.FilePrefix)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return errors.Wrapf(err, "heaplab: writing %s.json", t.cfg.FilePrefix)
	}
	return nil
}
