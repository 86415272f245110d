// Package generation implements the immutable, numbered generations of
// spec.md §4.5/§4.6: each generation is a fully-resolved, fully-linked
// snapshot of a requirement set, and a GenerationManager tracks the
// monotonically increasing sequence of them for one user.
package generation

import (
	"fmt"
	"os"
	"path/filepath"

	"hua/internal/id"
	"hua/internal/pkgfs"
	"hua/internal/resolver"
	"hua/internal/store"
)

const (
	dirBin   = "bin"
	dirLib   = "lib"
	dirCfg   = "cfg"
	dirShare = "share"
)

// Generation is one resolved, materialized snapshot: a requirement set
// plus the concrete packages it resolved to, linked into Dir.
type Generation struct {
	ID           uint64
	Requirements []pkgfs.Requirement
	Packages     []id.PackageId
	Dir          string
}

// Empty returns the generation with no packages and no requirements
// used to seed a fresh user's generation 0 (spec.md §4.5 "empty()").
func Empty() Generation {
	return Generation{}
}

// ComponentPaths returns the four per-generation component directories
// under Dir, the same bin/lib/cfg/share split store.LinkPackage uses.
func (g Generation) ComponentPaths() store.ComponentPaths {
	return store.ComponentPaths{
		Binary:  filepath.Join(g.Dir, dirBin),
		Library: filepath.Join(g.Dir, dirLib),
		Config:  filepath.Join(g.Dir, dirCfg),
		Share:   filepath.Join(g.Dir, dirShare),
	}
}

// Builder is the chained GenerationBuilder(id).under(base).requires(reqs)
// .resolve(store).build(store) API of spec.md §4.5.
type Builder struct {
	id       uint64
	base     string
	reqs     []pkgfs.Requirement
	resolved *resolver.Resolver
}

// NewBuilder starts a builder for generation id.
func NewBuilder(generationID uint64) *Builder {
	return &Builder{id: generationID}
}

// Under sets the directory a new generation's id-named subdirectory is
// created beneath.
func (b *Builder) Under(base string) *Builder {
	b.base = base
	return b
}

// Requires sets the requirement set to resolve.
func (b *Builder) Requires(reqs []pkgfs.Requirement) *Builder {
	b.reqs = reqs
	return b
}

// Resolve runs the dependency resolver against matcher. It fails with
// *GraphNotResolvableError if any requirement is left unresolved.
func (b *Builder) Resolve(matcher store.Matcher) (*Builder, error) {
	r, err := resolver.Resolve(matcher, b.reqs)
	if err != nil {
		return nil, err
	}
	if !r.IsResolved() {
		var unresolved []pkgfs.Requirement
		for req := range r.UnresolvedRequirements() {
			unresolved = append(unresolved, req)
		}
		return nil, &GraphNotResolvableError{Unresolved: unresolved}
	}
	b.resolved = r
	return b, nil
}

// Build materializes the generation: creates base/<id>/, its four
// component subdirectories, and links every resolved package into
// them. On any failure after directory creation, the partial
// directory is removed before the error is returned (spec.md §7).
func (b *Builder) Build(s *store.LocalStore) (Generation, error) {
	dir := filepath.Join(b.base, fmt.Sprintf("%d", b.id))
	if _, err := os.Stat(dir); err == nil {
		return Generation{}, &AlreadyPresentError{ID: b.id}
	} else if !os.IsNotExist(err) {
		return Generation{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Generation{}, fmt.Errorf("creating generation directory: %w", err)
	}

	ok := false
	defer func() {
		if !ok {
			os.RemoveAll(dir)
		}
	}()

	gen := Generation{ID: b.id, Requirements: b.reqs, Dir: dir}
	comps := gen.ComponentPaths()
	for _, p := range []string{comps.Binary, comps.Library, comps.Config, comps.Share} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return Generation{}, fmt.Errorf("creating component directory: %w", err)
		}
	}

	if b.resolved != nil {
		for pid := range b.resolved.ResolvedPackages() {
			if err := s.LinkPackage(pid, comps); err != nil {
				return Generation{}, fmt.Errorf("linking package %s: %w", pid, err)
			}
			gen.Packages = append(gen.Packages, pid)
		}
	}

	ok = true
	return gen, nil
}
