package catalog

import (
	"sort"

	"hua/internal/id"
)

// Derivation is a build-provenance record: the recipe that produced a
// package plus the resolved build-time inputs it was built against.
// Distinct from a package's own content identity (spec.md §9's Open
// Question, resolved in DESIGN.md): two builds of the same recipe
// against different inputs can still produce the same Output.
type Derivation struct {
	Recipe  RecipeDesc
	Inputs  []id.PackageId
	Output  id.PackageId
	BuiltAt string
}

// RecipeDesc is the catalog-facing projection of a recipe's metadata,
// independent of the recipe package's state-machine types.
type RecipeDesc struct {
	Name       string
	Version    string
	SourceURL  string
	TargetDir  string
}

// AddDerivation records a derivation, keyed by did. Re-adding the same
// id replaces the prior record.
func (c *Catalog) AddDerivation(did id.DerivationId, d Derivation) {
	if c.derivations == nil {
		c.derivations = make(map[id.DerivationId]Derivation)
	}
	c.derivations[did] = d
}

// GetDerivation returns a derivation by id, if present.
func (c *Catalog) GetDerivation(did id.DerivationId) (Derivation, bool) {
	d, ok := c.derivations[did]
	return d, ok
}

// DerivationsForOutput returns every derivation whose Output is pid, in
// no particular order (a package can in principle be rebuilt more than
// once, yielding more than one provenance record for the same content).
func (c *Catalog) DerivationsForOutput(pid id.PackageId) []Derivation {
	var out []Derivation
	for _, d := range c.derivations {
		if d.Output == pid {
			out = append(out, d)
		}
	}
	return out
}

// DerivationIDs returns every known derivation id, sorted.
func (c *Catalog) DerivationIDs() []id.DerivationId {
	ids := make([]id.DerivationId, 0, len(c.derivations))
	for did := range c.derivations {
		ids = append(ids, did)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// InputPackageIDs returns the union of every derivation's Inputs
// currently recorded, used by store.LiveSetWithDerivationInputs (for
// `store collect-garbage --keep-derivations`) to widen the live set
// beyond what generations directly require.
func (c *Catalog) InputPackageIDs() []id.PackageId {
	seen := make(map[id.PackageId]struct{})
	var out []id.PackageId
	for _, d := range c.derivations {
		for _, pid := range d.Inputs {
			if _, ok := seen[pid]; ok {
				continue
			}
			seen[pid] = struct{}{}
			out = append(out, pid)
		}
	}
	return out
}
