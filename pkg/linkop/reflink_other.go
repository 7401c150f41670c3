//go:build !linux && !darwin && !windows
// +build !linux,!darwin,!windows

package linkop

const reflinkBuildSupport = false

// reflink is unavailable: this platform has no copy-on-write clone
// primitive in the example pack's dependency surface to reach for.
func reflink(src, dst string) error {
	return notSupported
}
