package user

import (
	"iter"

	"hua/internal/id"
)

// Packages yields the union of every PackageId across every generation
// of every known user — the live set spec.md §4.3's remove_unused
// consumes to decide what the store can safely delete.
func (m *Manager) Packages() iter.Seq[id.PackageId] {
	return func(yield func(id.PackageId) bool) {
		seen := make(map[id.PackageId]struct{})
		for _, u := range m.users {
			for _, genID := range u.Manager.IDs() {
				gen, ok := u.Manager.Get(genID)
				if !ok {
					continue
				}
				for _, pid := range gen.Packages {
					if _, dup := seen[pid]; dup {
						continue
					}
					seen[pid] = struct{}{}
					if !yield(pid) {
						return
					}
				}
			}
		}
	}
}
