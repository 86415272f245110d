package store

import (
	"path/filepath"
	"testing"

	"hua/internal/id"
)

func TestLiveSetWithDerivationInputsWidensLiveSet(t *testing.T) {
	s, err := Init(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	pidOut := id.PackageId(id.HashString("out"))
	pidIn := id.PackageId(id.HashString("in"))
	pidLive := id.PackageId(id.HashString("live"))
	did := id.DerivationId(id.HashString("drv"))

	s.RecordDerivation(did, Derivation{
		Recipe: RecipeDesc{Name: "tool", Version: "1.0.0"},
		Inputs: []id.PackageId{pidIn},
		Output: pidOut,
	})

	live := s.LiveSetWithDerivationInputs([]id.PackageId{pidLive})
	if len(live) != 2 {
		t.Fatalf("expected live set widened to 2 entries, got %v", live)
	}
	found := map[id.PackageId]bool{}
	for _, pid := range live {
		found[pid] = true
	}
	if !found[pidLive] || !found[pidIn] {
		t.Fatalf("expected both the original live entry and the derivation input, got %v", live)
	}
}

func TestDerivationsForPackageAfterRecord(t *testing.T) {
	s, err := Init(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	pidOut := id.PackageId(id.HashString("out"))
	did := id.DerivationId(id.HashString("drv"))
	s.RecordDerivation(did, Derivation{Recipe: RecipeDesc{Name: "tool"}, Output: pidOut})

	got := s.DerivationsForPackage(pidOut)
	if len(got) != 1 || got[0].Recipe.Name != "tool" {
		t.Fatalf("expected one derivation for output, got %v", got)
	}
}
