// Package catalog holds the in-memory object→Object and package→(desc,
// object-set) maps described in spec.md §4.2, with msgpack-backed
// persistence to a single self-describing binary file.
package catalog

import (
	"iter"
	"sort"

	"hua/internal/id"
	"hua/internal/pkgfs"
)

// Entry is a package's catalog record: its descriptive metadata plus
// the set of object ids that make up its on-disk tree.
type Entry struct {
	Desc    pkgfs.PackageDesc
	Objects pkgfs.ObjectSet
}

// Catalog is the in-memory backing store for objects and packages.
// Spec.md §4.2: "Concurrent writers are not supported; callers
// serialize at the Store boundary" — Catalog itself does no locking.
type Catalog struct {
	objects     map[id.ObjectId]pkgfs.Object
	packages    map[id.PackageId]Entry
	objectOwner map[id.ObjectId]map[id.PackageId]struct{}
	derivations map[id.DerivationId]Derivation
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		objects:     make(map[id.ObjectId]pkgfs.Object),
		packages:    make(map[id.PackageId]Entry),
		objectOwner: make(map[id.ObjectId]map[id.PackageId]struct{}),
		derivations: make(map[id.DerivationId]Derivation),
	}
}

// Contains reports whether an object id is present.
func (c *Catalog) Contains(oid id.ObjectId) bool {
	_, ok := c.objects[oid]
	return ok
}

// Get returns the object for an id, if present.
func (c *Catalog) Get(oid id.ObjectId) (pkgfs.Object, bool) {
	o, ok := c.objects[oid]
	return o, ok
}

// Insert adds or replaces an object, returning the previous value if
// one existed.
func (c *Catalog) Insert(oid id.ObjectId, o pkgfs.Object) (pkgfs.Object, bool) {
	prev, had := c.objects[oid]
	c.objects[oid] = o
	return prev, had
}

// ReadObjects streams id→Object pairs to visitor in the given order,
// stopping at the first error (spec.md §4.2 "streaming read").
func (c *Catalog) ReadObjects(ids []id.ObjectId, visitor func(id.ObjectId, pkgfs.Object) error) error {
	for _, oid := range ids {
		o, ok := c.objects[oid]
		if !ok {
			continue
		}
		if err := visitor(oid, o); err != nil {
			return err
		}
	}
	return nil
}

// GetBlobs filters ids down to the Blob-variant objects among them, as
// a lazy sequence.
func (c *Catalog) GetBlobs(ids []id.ObjectId) iter.Seq[pkgfs.Blob] {
	return func(yield func(pkgfs.Blob) bool) {
		for _, oid := range ids {
			o, ok := c.objects[oid]
			if !ok {
				continue
			}
			if b, ok := o.(pkgfs.Blob); ok {
				if !yield(b) {
					return
				}
			}
		}
	}
}

// Filter returns every (id, Object) pair satisfying predicate, as a
// lazy sequence over the whole catalog.
func (c *Catalog) Filter(predicate func(id.ObjectId, pkgfs.Object) bool) iter.Seq2[id.ObjectId, pkgfs.Object] {
	return func(yield func(id.ObjectId, pkgfs.Object) bool) {
		for oid, o := range c.objects {
			if predicate(oid, o) {
				if !yield(oid, o) {
					return
				}
			}
		}
	}
}

// FindPackageID is the reverse lookup from an object id to a package
// that references it, used by Store.insert to locate an existing
// on-disk copy of a blob to hard-link from. When more than one live
// package owns the object, the lexicographically smallest PackageId is
// returned for determinism.
func (c *Catalog) FindPackageID(oid id.ObjectId) (id.PackageId, bool) {
	owners := c.objectOwner[oid]
	if len(owners) == 0 {
		return id.PackageId{}, false
	}
	ids := make([]id.PackageId, 0, len(owners))
	for pid := range owners {
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids[0], true
}

// ContainsPackage reports whether pid has a catalog entry.
func (c *Catalog) ContainsPackage(pid id.PackageId) bool {
	_, ok := c.packages[pid]
	return ok
}

// GetPackage returns a package's catalog entry, if present.
func (c *Catalog) GetPackage(pid id.PackageId) (Entry, bool) {
	e, ok := c.packages[pid]
	return e, ok
}

// AddPackage records a package's descriptor and object set, and
// registers pid as an owner of every object in that set (for
// FindPackageID).
func (c *Catalog) AddPackage(pid id.PackageId, desc pkgfs.PackageDesc, objects pkgfs.ObjectSet) {
	sorted := append(pkgfs.ObjectSet(nil), objects...)
	pkgfs.SortObjectIDs(sorted)
	c.packages[pid] = Entry{Desc: desc, Objects: sorted}
	for _, oid := range sorted {
		if c.objectOwner[oid] == nil {
			c.objectOwner[oid] = make(map[id.PackageId]struct{})
		}
		c.objectOwner[oid][pid] = struct{}{}
	}
}

// RemovePackage drops a package's catalog entry and un-registers its
// ownership of every object it referenced. Any object left with no
// remaining owner is itself removed from the catalog and returned to
// the caller, which is responsible for deleting its backing disk file
// (Catalog has no notion of the store's filesystem layout).
func (c *Catalog) RemovePackage(pid id.PackageId) (orphaned []id.ObjectId) {
	entry, ok := c.packages[pid]
	if !ok {
		return nil
	}
	delete(c.packages, pid)

	for _, oid := range entry.Objects {
		owners := c.objectOwner[oid]
		delete(owners, pid)
		if len(owners) == 0 {
			delete(c.objectOwner, oid)
			delete(c.objects, oid)
			orphaned = append(orphaned, oid)
		}
	}
	return orphaned
}

// PackageIDs returns every package id currently cataloged, sorted.
func (c *Catalog) PackageIDs() []id.PackageId {
	ids := make([]id.PackageId, 0, len(c.packages))
	for pid := range c.packages {
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// Len reports the number of cataloged objects and packages.
func (c *Catalog) Len() (objects, packages int) {
	return len(c.objects), len(c.packages)
}
