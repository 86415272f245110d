package pkgfs

import (
	"sort"

	semver "github.com/Masterminds/semver/v3"

	"hua/internal/id"
)

// Requirement is a (name, version-range, required-blobs) triple used to
// select a package, per spec.md §3. Ordering (for determinism and the
// identity ordering spec.md uses) is by Name then Blobs; VersionReq is
// not part of identity ordering but is part of equality.
type Requirement struct {
	Name       string
	VersionReq string // semver constraint expression, e.g. ">=1.0.0, <2.0.0"
	Blobs      []Blob // ordered set, sorted by Path
}

// Constraint parses VersionReq into a *semver.Constraints.
func (r Requirement) Constraint() (*semver.Constraints, error) {
	expr := r.VersionReq
	if expr == "" {
		expr = ">=0.0.0-0"
	}
	return semver.NewConstraint(expr)
}

// Equal reports structural equality, including VersionReq (spec.md §3:
// "version range is not part of identity ordering but is part of
// equality").
func (r Requirement) Equal(o Requirement) bool {
	if r.Name != o.Name || r.VersionReq != o.VersionReq {
		return false
	}
	if len(r.Blobs) != len(o.Blobs) {
		return false
	}
	for i := range r.Blobs {
		if r.Blobs[i].Path != o.Blobs[i].Path {
			return false
		}
	}
	return true
}

// Less orders requirements by Name then by Blobs (lexicographically by
// path), matching spec.md §3's identity ordering.
func Less(a, b Requirement) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	n := len(a.Blobs)
	if len(b.Blobs) < n {
		n = len(b.Blobs)
	}
	for i := 0; i < n; i++ {
		if a.Blobs[i].Path != b.Blobs[i].Path {
			return a.Blobs[i].Path < b.Blobs[i].Path
		}
	}
	return len(a.Blobs) < len(b.Blobs)
}

// SortRequirements sorts a requirement slice in place by the identity
// order defined above.
func SortRequirements(reqs []Requirement) {
	sort.Slice(reqs, func(i, j int) bool { return Less(reqs[i], reqs[j]) })
}

// PackageDesc describes a package's metadata, independent of its
// content identity.
type PackageDesc struct {
	Name     string
	Desc     string
	Version  string // semver string
	Licenses []string
	Requires []Requirement // set, kept sorted
}

// SemVersion parses Version.
func (d PackageDesc) SemVersion() (*semver.Version, error) {
	return semver.NewVersion(d.Version)
}

// Package is a fully identified package: its content id plus its
// descriptive metadata. The id is the Merkle root over the package's
// root directory, salted with the package name (spec.md §3).
type Package struct {
	ID   id.PackageId
	Desc PackageDesc
}

// ObjectSet is the set<ObjectId> a package's entry in the catalog
// records, kept as a sorted slice for deterministic iteration.
type ObjectSet []id.ObjectId

func (s ObjectSet) Contains(o id.ObjectId) bool {
	for _, x := range s {
		if x == o {
			return true
		}
	}
	return false
}

// SortObjectIDs sorts a slice of object ids by their raw byte order.
func SortObjectIDs(ids []id.ObjectId) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
