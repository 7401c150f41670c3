package linkop

import (
	"path/filepath"

	"github.com/google/uuid"
)

// tempName returns a sibling path of base inside dir that no concurrent
// run or leftover artifact could plausibly collide with, following
// spec.md §4.4 step 1. The uuid suffix, rather than a counter or PID, is
// what makes that guarantee cheap to reason about.
func tempName(dir, base string) string {
	return filepath.Join(dir, "."+base+".dupe-twin."+uuid.NewString())
}
