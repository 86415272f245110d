package store

import (
	"iter"

	"hua/internal/pkgfs"
)

// MultiStore fans a Matches query out across several Matchers — a
// LocalStore plus zero or more RemoteStores — in member order. Every
// member is consulted for every query; a match from an earlier member
// does not hide matches from later ones.
type MultiStore struct {
	members []Matcher
}

// NewMultiStore combines members in the order given; Matches yields
// earlier members' matches first.
func NewMultiStore(members ...Matcher) *MultiStore {
	return &MultiStore{members: members}
}

// Matches yields every match from every member, local-before-remote,
// without deduplicating across members — spec.md leaves merge
// semantics to the resolver, which already discards duplicate
// candidates by PackageId.
func (m *MultiStore) Matches(req pkgfs.Requirement) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		for _, member := range m.members {
			for match := range member.Matches(req) {
				if !yield(match) {
					return
				}
			}
		}
	}
}
