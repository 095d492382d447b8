package itemindex

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// dumpOnFailure spew.Dumps the tree's shape once, after the test body runs,
// if the test failed — a debug aid for diagnosing a broken rotation or
// augmentation-propagation bug without re-running under a debugger.
func dumpOnFailure(t *testing.T, tr *Tree) {
	t.Helper()
	t.Cleanup(func() {
		if t.Failed() {
			spew.Dump(tr.root)
		}
	})
}
