// Command heaplab drives the buddy and TLSF engines through the stress
// driver and saves a visual history of each run, mirroring
// original_source/main.cpp's test1-test4/main0.
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/exp/slog"

	"github.com/basalt-run/heaplab/buddy"
	"github.com/basalt-run/heaplab/memlayout"
	"github.com/basalt-run/heaplab/stress"
	"github.com/basalt-run/heaplab/tlsf"
	"github.com/basalt-run/heaplab/tracker"
)

const arenaSize = 1 << 20 // 1MB, matching main.cpp's test1-test4.

type run struct {
	name       string
	filePrefix string
	aligned    bool
	newEngine  func() memlayout.Allocator
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	runs := []run{
		{"buddy", "buddy_state", false, func() memlayout.Allocator { return buddy.New(arenaSize) }},
		{"buddy-aligned", "buddy_state_aligned", true, func() memlayout.Allocator { return buddy.New(arenaSize) }},
		{"tlsf", "tlsf_state", false, func() memlayout.Allocator { return tlsf.New(arenaSize) }},
		{"tlsf-aligned", "tlsf_state_aligned", true, func() memlayout.Allocator { return tlsf.New(arenaSize) }},
	}

	for _, r := range runs {
		if err := runOne(logger, r); err != nil {
			fmt.Fprintf(os.Stderr, "heaplab: %s: %v\n", r.name, err)
			os.Exit(1)
		}
	}
}

func runOne(logger *slog.Logger, r run) error {
	engine := r.newEngine()
	tr := tracker.New(tracker.Config{FilePrefix: r.filePrefix, MaxHistory: 200})

	report := stress.Run(context.Background(), engine, stress.Config{
		Operations:    100_000,
		Seed:          1,
		Aligned:       r.aligned,
		ProgressEvery: 10_000,
		Logger:        logger.With("run", r.name),
	}, tr)

	stats := engine.Stats()
	logger.Info("run complete",
		"run", r.name,
		"allocations", report.Allocations,
		"deallocations", report.Deallocations,
		"duration_ms", report.Duration.Milliseconds(),
		"internal_fragmentation", stats.InternalFragmentation,
		"external_fragmentation", stats.ExternalFragmentation,
	)

	if err := engine.Validate(); err != nil {
		return err
	}
	return tr.SaveHistory()
}
