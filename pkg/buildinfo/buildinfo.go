// Package buildinfo holds the version metadata stamped in at link time
// via -ldflags, mirroring the teacher's pkg/runtime contract.
package buildinfo

var (
	// Version is the tagged release this binary was built from, or
	// "dev" for an untagged build.
	Version = "dev"
	// GitCommit is the commit hash this binary was built from.
	GitCommit = "none"
	// Timestamp is the build time, set by the release pipeline.
	Timestamp = "unknown"
)
