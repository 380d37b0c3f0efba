package memlayout

// Stats is the read-only statistics surface exposed by both engines
// (spec.md §6). All fields are computed directly from the engine's live
// block state, never cached.
type Stats struct {
	TotalSpace     int
	AllocatedSpace int
	FreeSpace      int

	InternalFragmentation        float64
	ExternalFragmentation        float64
	TrimmedExternalFragmentation float64
}
