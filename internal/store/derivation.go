package store

import (
	"hua/internal/catalog"
	"hua/internal/id"
)

// Derivation is re-exported so callers outside internal/catalog (the
// build pipeline, the CLI) never need to import that package directly
// for provenance data.
type Derivation = catalog.Derivation

// RecipeDesc is re-exported for the same reason.
type RecipeDesc = catalog.RecipeDesc

// RecordDerivation persists a build-provenance record alongside the
// catalog, per spec.md §9's Open Question resolution (SPEC_FULL.md §3).
// It does not flush; callers flush once after whatever else they do in
// the same operation (matching recipe.Install's "insert package, then
// record how it was built" sequencing).
func (s *LocalStore) RecordDerivation(did id.DerivationId, d Derivation) {
	s.cat.AddDerivation(did, d)
}

// Derivation looks up a provenance record by id.
func (s *LocalStore) Derivation(did id.DerivationId) (Derivation, bool) {
	return s.cat.GetDerivation(did)
}

// DerivationsForPackage returns every known derivation whose Output is
// pid, for `hua build <pkg-id>`.
func (s *LocalStore) DerivationsForPackage(pid id.PackageId) []Derivation {
	return s.cat.DerivationsForOutput(pid)
}

// DerivationInputs returns the union of every recorded derivation's
// Inputs, widening the live set for `store collect-garbage
// --keep-derivations`.
func (s *LocalStore) DerivationInputs() []id.PackageId {
	return s.cat.InputPackageIDs()
}

// LiveSetWithDerivationInputs unions live with every package id
// referenced as a derivation input, for `store collect-garbage
// --keep-derivations` (spec.md §9's Open Question, widened per
// SPEC_FULL.md §3 — this only ever grows what RemoveUnused treats as
// live, never shrinks it).
func (s *LocalStore) LiveSetWithDerivationInputs(live []id.PackageId) []id.PackageId {
	seen := make(map[id.PackageId]struct{}, len(live))
	out := append([]id.PackageId(nil), live...)
	for _, pid := range live {
		seen[pid] = struct{}{}
	}
	for _, pid := range s.DerivationInputs() {
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		out = append(out, pid)
	}
	return out
}
