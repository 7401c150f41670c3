package dupeindex

import "sync/atomic"

// Counters tallies a run's outcome. Every field is an atomic.Uint64 so
// the scan driver's fastwalk worker goroutines can update FilesScanned
// and FilesSkipped concurrently while the single comparator goroutine
// owns UniqueBodies and everything downstream of a confirmed duplicate
// (mirroring the atomic.Uint32/atomic.Uint64 counters cmd/orphan.go
// keeps for its own concurrent summary).
type Counters struct {
	FilesScanned atomic.Uint64
	FilesSkipped atomic.Uint64

	UniqueBodies              atomic.Uint64
	ExistingHardlinksResolved atomic.Uint64
	NewDupesLinked            atomic.Uint64

	BytesDeduplicated atomic.Uint64
	BytesSaved        atomic.Uint64
	ReflinksMade      atomic.Uint64
}

func (c *Counters) addUnique(size int64) {
	c.UniqueBodies.Add(1)
}

func (c *Counters) addDuplicate() {
	c.NewDupesLinked.Add(1)
}

func (c *Counters) addDedupedBytes(survivorSize int64) {
	if survivorSize > 0 {
		c.BytesDeduplicated.Add(uint64(survivorSize))
		c.BytesSaved.Add(uint64(survivorSize))
	}
}

func (c *Counters) addReflink(survivorSize int64) {
	c.ReflinksMade.Add(1)
}

func (c *Counters) addHardlink() {}

// AddExistingHardlink records a path merged by the inode registry
// (already-hardlinked on disk) rather than by the duplicate index.
func (c *Counters) AddExistingHardlink() {
	c.ExistingHardlinksResolved.Add(1)
}

// AddScanned records one path the walker examined.
func (c *Counters) AddScanned() {
	c.FilesScanned.Add(1)
}

// AddSkipped records one path excluded before it reached the index
// (special file such as a device, socket or FIFO, zero-length file, file
// below the block-size cutoff, stat error). Directories, symlinks and
// --exclude matches are not counted.
func (c *Counters) AddSkipped() {
	c.FilesSkipped.Add(1)
}

// Snapshot is a point-in-time, non-atomic copy suitable for handing to
// a reporter at the end of a run.
type Snapshot struct {
	FilesScanned              uint64
	FilesSkipped              uint64
	UniqueBodies              uint64
	ExistingHardlinksResolved uint64
	NewDupesLinked            uint64
	BytesDeduplicated         uint64
	BytesSaved                uint64
	ReflinksMade              uint64
}

// Snapshot reads every counter once for reporting.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned:              c.FilesScanned.Load(),
		FilesSkipped:              c.FilesSkipped.Load(),
		UniqueBodies:              c.UniqueBodies.Load(),
		ExistingHardlinksResolved: c.ExistingHardlinksResolved.Load(),
		NewDupesLinked:            c.NewDupesLinked.Load(),
		BytesDeduplicated:         c.BytesDeduplicated.Load(),
		BytesSaved:                c.BytesSaved.Load(),
		ReflinksMade:              c.ReflinksMade.Load(),
	}
}
