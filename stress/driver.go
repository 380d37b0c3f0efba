// Package stress implements the workload generator named in spec.md §6:
// an external collaborator that drives random alloc/dealloc traffic
// against any memlayout.Allocator, grounded on original_source/main.cpp's
// stress_test/stress_test_align.
package stress

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/exp/slog"

	"github.com/google/uuid"

	"github.com/basalt-run/heaplab/memlayout"
	"github.com/basalt-run/heaplab/tracker"
)

// allocChance is the probability, in percent, that an iteration attempts
// an allocation rather than a deallocation, matching main.cpp's
// "op_dist(rng) < 51" (roughly even odds, allocation-biased).
const allocChance = 51

// minRequestSize and maxRequestSize bound the uniform size distribution
// (spec.md §6: "uniform over [1, 1024]").
const (
	minRequestSize = 1
	maxRequestSize = 1024
)

// Config configures a Run call.
type Config struct {
	// Operations is the number of alloc/dealloc decisions to make.
	Operations int
	// Seed seeds the random generator for reproducibility.
	Seed uint64
	// Aligned selects AlignAlloc over Alloc for every allocation.
	Aligned bool
	// ProgressEvery logs and tracks a snapshot every N iterations.
	// Defaults to Operations/10 when zero.
	ProgressEvery int
	// Logger receives structured progress lines. Progress logging is
	// skipped when nil.
	Logger *slog.Logger
}

// Report summarizes one Run call, mirroring the performance summary in
// main.cpp's stress_test.
type Report struct {
	Operations    int
	Allocations   int
	Deallocations int
	Duration      time.Duration
}

// Run drives cfg.Operations iterations against a, each independently
// choosing to allocate or free a live block. When an allocation fails, it
// frees live blocks picked uniformly at random, retrying the allocation
// after each one, until it succeeds or the live set is empty. If tr is non-nil,
// a snapshot is tracked every cfg.ProgressEvery iterations.
func Run(ctx context.Context, a memlayout.Allocator, cfg Config, tr *tracker.Tracker) Report {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	live := make([]int, 0, cfg.Operations/2)

	progressEvery := cfg.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = max(1, cfg.Operations/10)
	}

	var allocs, deallocs int
	start := time.Now()

	for i := 0; i < cfg.Operations; i++ {
		if ctx.Err() != nil {
			break
		}

		if len(live) == 0 || rng.IntN(100) < allocChance {
			size := minRequestSize + rng.IntN(maxRequestSize)
			tag := uuid.New()

			var off int
			var err error
			if cfg.Aligned {
				off, err = a.AlignAlloc(size, tag)
			} else {
				off, err = a.Alloc(size, tag)
			}

			for err != nil && len(live) > 0 {
				victim := rng.IntN(len(live))
				_ = a.Free(live[victim])
				live[victim] = live[len(live)-1]
				live = live[:len(live)-1]
				deallocs++
				if cfg.Aligned {
					off, err = a.AlignAlloc(size, tag)
				} else {
					off, err = a.Alloc(size, tag)
				}
			}
			if err != nil {
				continue
			}
			live = append(live, off)
			allocs++
		} else {
			victim := rng.IntN(len(live))
			_ = a.Free(live[victim])
			live[victim] = live[len(live)-1]
			live = live[:len(live)-1]
			deallocs++
		}

		if i%progressEvery == 0 {
			logProgress(cfg.Logger, i, cfg.Operations, a.Stats())
			if tr != nil {
				tr.Track(a.Snapshot())
			}
		}
	}

	logProgress(cfg.Logger, cfg.Operations, cfg.Operations, a.Stats())
	if tr != nil {
		tr.Track(a.Snapshot())
	}

	return Report{
		Operations:    cfg.Operations,
		Allocations:   allocs,
		Deallocations: deallocs,
		Duration:      time.Since(start),
	}
}

func logProgress(logger *slog.Logger, i, total int, stats memlayout.Stats) {
	if logger == nil {
		return
	}
	var percent int
	if total > 0 {
		percent = i * 100 / total
	}
	logger.Info("stress progress",
		"percent", percent,
		"allocated_space", stats.AllocatedSpace,
		"total_space", stats.TotalSpace,
		"internal_fragmentation", stats.InternalFragmentation,
		"external_fragmentation", stats.ExternalFragmentation,
		"trimmed_external_fragmentation", stats.TrimmedExternalFragmentation,
	)
}
