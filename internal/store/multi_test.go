package store

import (
	"iter"
	"testing"

	"hua/internal/id"
	"hua/internal/pkgfs"
)

// fakeMatcher lets multi_test exercise MultiStore's fan-out ordering
// without a real store or network access.
type fakeMatcher struct {
	matches []Match
}

func (f fakeMatcher) Matches(req pkgfs.Requirement) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, m := range f.matches {
			if m.Desc.Name != req.Name {
				continue
			}
			if !yield(m) {
				return
			}
		}
	}
}

func TestMultiStorePrefersEarlierMemberOrder(t *testing.T) {
	localOnly := fakeMatcher{matches: []Match{
		{ID: id.PackageId(id.HashString("local-pkg")), Desc: pkgfs.PackageDesc{Name: "pkg", Version: "1.0.0"}},
	}}
	remoteOnly := fakeMatcher{matches: []Match{
		{ID: id.PackageId(id.HashString("remote-pkg")), Desc: pkgfs.PackageDesc{Name: "pkg", Version: "1.0.0"}},
	}}

	ms := NewMultiStore(localOnly, remoteOnly)
	var got []Match
	for m := range ms.Matches(pkgfs.Requirement{Name: "pkg"}) {
		got = append(got, m)
	}
	if len(got) != 2 {
		t.Fatalf("expected matches from both members, got %d", len(got))
	}
	if got[0].ID != localOnly.matches[0].ID {
		t.Fatalf("expected local member's match first, got %v", got[0])
	}
}

func TestMultiStoreStopsOnFirstYieldFalse(t *testing.T) {
	a := fakeMatcher{matches: []Match{
		{ID: id.PackageId(id.HashString("a")), Desc: pkgfs.PackageDesc{Name: "pkg"}},
	}}
	b := fakeMatcher{matches: []Match{
		{ID: id.PackageId(id.HashString("b")), Desc: pkgfs.PackageDesc{Name: "pkg"}},
	}}
	ms := NewMultiStore(a, b)

	count := 0
	for range ms.Matches(pkgfs.Requirement{Name: "pkg"}) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected iteration to stop after first yield, got %d", count)
	}
}

func TestMultiStoreSkipsNonMatchingNames(t *testing.T) {
	a := fakeMatcher{matches: []Match{
		{ID: id.PackageId(id.HashString("a")), Desc: pkgfs.PackageDesc{Name: "other"}},
	}}
	ms := NewMultiStore(a)
	for range ms.Matches(pkgfs.Requirement{Name: "pkg"}) {
		t.Fatalf("expected no matches for unrelated package name")
	}
}
