package store

import (
	"iter"

	"hua/internal/catalog"
	"hua/internal/id"
	"hua/internal/pkgfs"
)

// BlobRef names a blob a matched package ships, together with its
// content object id — the resolver needs the id (not just the path)
// to detect two candidates shipping the same relative path with
// different content (spec.md §4.4 ConflictingBlob).
type BlobRef struct {
	Path string
	ID   id.ObjectId
}

// Match is one package satisfying a Requirement, yielded from Matches.
type Match struct {
	ID    id.PackageId
	Desc  pkgfs.PackageDesc
	Blobs []BlobRef
}

// Matcher is implemented by anything the resolver can query for
// candidates: a LocalStore, a RemoteStore, or a MultiStore.
type Matcher interface {
	Matches(req pkgfs.Requirement) iter.Seq[Match]
}

// blobRefs resolves ids to their BlobRef form, skipping non-Blob
// objects (trees, links).
func blobRefs(cat *catalog.Catalog, ids []id.ObjectId) []BlobRef {
	var refs []BlobRef
	for _, oid := range ids {
		o, ok := cat.Get(oid)
		if !ok {
			continue
		}
		if b, ok := o.(pkgfs.Blob); ok {
			refs = append(refs, BlobRef{Path: b.Path, ID: oid})
		}
	}
	return refs
}

// blobsSubset reports whether every blob in want is present (by path
// equality) in have, per spec.md §4.3's "requirement.blobs ⊆
// package_blobs".
func blobsSubset(want []pkgfs.Blob, have []BlobRef) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h.Path == w.Path {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
