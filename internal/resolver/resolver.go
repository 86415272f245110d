// Package resolver builds the DAG of Step nodes described in spec.md
// §4.4: given a set of requirements and a Matcher, it produces either
// a fully Resolved graph or a report of Unresolved requirements,
// deferring multi-candidate Choice nodes until their siblings have
// committed to the running name/blob sets.
//
// Choice resolution is modeled as in-place mutation of a Step's kind
// and payload (spec.md §9's "presented as mutation of DAG node
// payloads" option), in the idiom of overthink's topoSort/findCycle
// pair in graph.go: sorted-slice tie-breaking for determinism, a
// simple visiting-set for cycle detection, generalized here from a
// single-candidate layer graph to a multi-candidate package DAG.
//
// The Resolver keeps the Step nodes only; edges from a package's node
// to the nodes of its own requirements are not stored.
package resolver

import (
	"iter"
	"sort"
	"strings"

	"hua/internal/id"
	"hua/internal/pkgfs"
	"hua/internal/store"
)

// Kind distinguishes the three Step variants.
type Kind int

const (
	KindResolved Kind = iota
	KindChoice
	KindUnresolved
)

// Step is one node of the resolver's DAG.
type Step struct {
	Kind       Kind
	Req        pkgfs.Requirement
	PackageID  id.PackageId   // valid when Kind == KindResolved
	Candidates []id.PackageId // valid when Kind == KindChoice, sorted
}

// Resolver holds the DAG built by Resolve plus the bookkeeping maps
// spec.md §4.4 requires: visited (by requirement), inserted (by
// PackageId), and the running names/blobs conflict sets.
type Resolver struct {
	matcher store.Matcher

	visited  map[string]*Step
	inserted map[id.PackageId]*Step
	nodes    []*Step // construction order, for deterministic iteration
	deferred []*Step

	names map[string]id.PackageId   // committed package names
	blobs map[string]id.ObjectId    // committed blob path -> content id
	descs map[id.PackageId]pkgfs.PackageDesc
	refs  map[id.PackageId][]store.BlobRef

	stack map[string]bool // requirement keys currently on the DFS path
}

func newResolver(matcher store.Matcher) *Resolver {
	return &Resolver{
		matcher:  matcher,
		visited:  make(map[string]*Step),
		inserted: make(map[id.PackageId]*Step),
		names:    make(map[string]id.PackageId),
		blobs:    make(map[string]id.ObjectId),
		descs:    make(map[id.PackageId]pkgfs.PackageDesc),
		refs:     make(map[id.PackageId][]store.BlobRef),
		stack:    make(map[string]bool),
	}
}

// Resolve runs the algorithm of spec.md §4.4 over requirements against
// matcher, returning the built Resolver or a CycleDetectedError /
// ConflictingNameError / ConflictingBlobError. Unresolved requirements
// are not themselves a failure — inspect IsResolved/UnresolvedRequirements.
func Resolve(matcher store.Matcher, requirements []pkgfs.Requirement) (*Resolver, error) {
	r := newResolver(matcher)
	for _, req := range requirements {
		if err := r.resolveRequirement(req); err != nil {
			return nil, err
		}
	}
	if err := r.drainDeferred(); err != nil {
		return nil, err
	}
	return r, nil
}

func reqKey(req pkgfs.Requirement) string {
	paths := make([]string, len(req.Blobs))
	for i, b := range req.Blobs {
		paths[i] = b.Path
	}
	return req.Name + "\x00" + req.VersionReq + "\x00" + strings.Join(paths, "\x00")
}

// resolveRequirement implements step 1 of spec.md §4.4's resolve: reuse
// a visited node, else reuse an already-inserted matching package, else
// delegate to resolveSingle.
func (r *Resolver) resolveRequirement(req pkgfs.Requirement) error {
	key := reqKey(req)
	if r.stack[key] {
		return &CycleDetectedError{Requirement: req.Name}
	}
	if _, ok := r.visited[key]; ok {
		return nil
	}

	matches := r.matchingInserted(req)
	switch len(matches) {
	case 0:
		return r.resolveSingle(req, key)
	case 1:
		r.visited[key] = matches[0]
		return nil
	default:
		ids := make([]id.PackageId, len(matches))
		for i, n := range matches {
			ids[i] = n.PackageID
		}
		sortPackageIDs(ids)
		n := &Step{Kind: KindChoice, Req: req, Candidates: ids}
		r.visited[key] = n
		r.nodes = append(r.nodes, n)
		r.deferred = append(r.deferred, n)
		return nil
	}
}

// matchingInserted returns the already-inserted Steps whose package
// satisfies req.
func (r *Resolver) matchingInserted(req pkgfs.Requirement) []*Step {
	constraint, err := req.Constraint()
	if err != nil {
		return nil
	}
	var out []*Step
	for pid, n := range r.inserted {
		desc := r.descs[pid]
		if desc.Name != req.Name {
			continue
		}
		version, err := desc.SemVersion()
		if err != nil || !constraint.Check(version) {
			continue
		}
		if !blobRefsSatisfy(req.Blobs, r.refs[pid]) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PackageID.Less(out[j].PackageID) })
	return out
}

// resolveSingle implements spec.md §4.4's resolve_single: query the
// matcher, then branch on the option count.
func (r *Resolver) resolveSingle(req pkgfs.Requirement, key string) error {
	r.stack[key] = true
	defer delete(r.stack, key)

	var options []store.Match
	for m := range r.matcher.Matches(req) {
		options = append(options, m)
	}

	switch len(options) {
	case 0:
		n := &Step{Kind: KindUnresolved, Req: req}
		r.visited[key] = n
		r.nodes = append(r.nodes, n)
		return nil

	case 1:
		m := options[0]
		if err := r.checkConflict(m.ID, m.Desc.Name, m.Blobs); err != nil {
			return err
		}
		n := &Step{Kind: KindResolved, Req: req, PackageID: m.ID}
		r.visited[key] = n
		r.nodes = append(r.nodes, n)
		r.cache(m)
		r.inserted[m.ID] = n
		r.commit(m.Desc.Name, m.ID, m.Blobs)
		for _, child := range m.Desc.Requires {
			if err := r.resolveRequirement(child); err != nil {
				return err
			}
		}
		return nil

	default:
		ids := make([]id.PackageId, len(options))
		for i, m := range options {
			ids[i] = m.ID
			r.cache(m)
		}
		sortPackageIDs(ids)
		n := &Step{Kind: KindChoice, Req: req, Candidates: ids}
		r.visited[key] = n
		r.nodes = append(r.nodes, n)
		r.deferred = append(r.deferred, n)
		return nil
	}
}

// drainDeferred implements spec.md §4.4's resolve_choices, iterated
// until the deferred queue is empty (resolving a choice's children may
// append new deferred choices).
func (r *Resolver) drainDeferred() error {
	for len(r.deferred) > 0 {
		n := r.deferred[0]
		r.deferred = r.deferred[1:]

		chosen := false
		for _, pid := range n.Candidates {
			desc := r.descs[pid]
			refs := r.refs[pid]
			if r.checkConflict(pid, desc.Name, refs) != nil {
				continue
			}
			n.Kind = KindResolved
			n.PackageID = pid
			n.Candidates = nil
			r.inserted[pid] = n
			r.commit(desc.Name, pid, refs)
			chosen = true
			for _, child := range desc.Requires {
				if err := r.resolveRequirement(child); err != nil {
					return err
				}
			}
			break
		}
		if !chosen {
			n.Kind = KindUnresolved
			n.Candidates = nil
		}
	}
	return nil
}

func (r *Resolver) cache(m store.Match) {
	r.descs[m.ID] = m.Desc
	r.refs[m.ID] = m.Blobs
}

func (r *Resolver) commit(name string, pid id.PackageId, refs []store.BlobRef) {
	r.names[name] = pid
	for _, b := range refs {
		r.blobs[b.Path] = b.ID
	}
}

// checkConflict implements spec.md §4.4's conflict predicate: a
// candidate conflicts if its name is already committed to a different
// package, or any of its blobs is already committed at the same path
// with different content. A package reconfirming its own
// already-committed name (the already-inserted-match case) is not a
// conflict.
func (r *Resolver) checkConflict(pid id.PackageId, name string, refs []store.BlobRef) error {
	if owner, ok := r.names[name]; ok && owner != pid {
		return &ConflictingNameError{Name: name}
	}
	for _, b := range refs {
		if existing, ok := r.blobs[b.Path]; ok && existing != b.ID {
			return &ConflictingBlobError{Path: b.Path}
		}
	}
	return nil
}

func blobRefsSatisfy(want []pkgfs.Blob, have []store.BlobRef) bool {
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

func sortPackageIDs(ids []id.PackageId) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// IsResolved reports whether every Step in the DAG is Resolved.
func (r *Resolver) IsResolved() bool {
	for _, n := range r.nodes {
		if n.Kind != KindResolved {
			return false
		}
	}
	return true
}

// ResolvedPackages is a lazy, deterministically-ordered sequence of
// every resolved PackageId.
func (r *Resolver) ResolvedPackages() iter.Seq[id.PackageId] {
	ids := make([]id.PackageId, 0, len(r.inserted))
	for pid := range r.inserted {
		ids = append(ids, pid)
	}
	sortPackageIDs(ids)
	return func(yield func(id.PackageId) bool) {
		for _, pid := range ids {
			if !yield(pid) {
				return
			}
		}
	}
}

// UnresolvedRequirements is a lazy sequence of every Requirement with
// no satisfying candidate.
func (r *Resolver) UnresolvedRequirements() iter.Seq[pkgfs.Requirement] {
	var reqs []pkgfs.Requirement
	for _, n := range r.nodes {
		if n.Kind == KindUnresolved {
			reqs = append(reqs, n.Req)
		}
	}
	pkgfs.SortRequirements(reqs)
	return func(yield func(pkgfs.Requirement) bool) {
		for _, req := range reqs {
			if !yield(req) {
				return
			}
		}
	}
}
