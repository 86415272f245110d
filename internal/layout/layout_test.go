package layout

import (
	"path/filepath"
	"testing"
)

func TestDefaultLayoutFixedRoots(t *testing.T) {
	l := DefaultLayout("/srv/hua")

	if l.Store != filepath.Join("/srv/hua", "store") {
		t.Fatalf("unexpected store root: %s", l.Store)
	}
	if l.UserManager != filepath.Join("/srv/hua", "user") {
		t.Fatalf("unexpected user manager root: %s", l.UserManager)
	}
	comps := l.GlobalComponentPaths()
	if comps.Binary != filepath.Join("/srv/hua", "global", "bin") {
		t.Fatalf("unexpected global binary root: %s", comps.Binary)
	}
	if comps.Share != filepath.Join("/srv/hua", "global", "share") {
		t.Fatalf("unexpected global share root: %s", comps.Share)
	}
}
