// Package store implements the filesystem layout, insert/verify/link/GC
// operations, and local/remote variants described in spec.md §4.3.
package store

import (
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"hua/internal/catalog"
	"hua/internal/id"
	"hua/internal/pkgfs"
	"hua/internal/progress"
)

// maxConcurrentBlobOps bounds how many blob copy/hard-link operations
// run at once during insert, keeping a large package from exhausting
// file descriptors while still overlapping their I/O.
const maxConcurrentBlobOps = 8

const dbFileName = "packages.db"

// LocalStore is the on-disk, content-addressed package store, laid out
// per spec.md §4.3: one packages.db plus one directory per package.
type LocalStore struct {
	root string
	cat  *catalog.Catalog
}

// Init creates a new, empty store at path. It fails if path already
// exists.
func Init(path string) (*LocalStore, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, &AlreadyExistsError{Path: path}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	s := &LocalStore{root: path, cat: catalog.New()}
	if err := s.Flush(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open loads an existing store at path.
func Open(path string) (*LocalStore, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, &NotExistingError{Path: path}
	}
	cat, err := catalog.Load(filepath.Join(path, dbFileName))
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: path, cat: cat}, nil
}

// Flush persists the in-memory catalog to packages.db, replacing it
// atomically (spec.md §6).
func (s *LocalStore) Flush() error {
	return s.cat.Flush(filepath.Join(s.root, dbFileName))
}

// Root returns the store's root directory.
func (s *LocalStore) Root() string { return s.root }

func dirName(pid id.PackageId, desc pkgfs.PackageDesc) string {
	return fmt.Sprintf("%s-%s-%s", desc.Name, desc.Version, pid.String())
}

func (s *LocalStore) packageDir(pid id.PackageId, desc pkgfs.PackageDesc) string {
	return filepath.Join(s.root, dirName(pid, desc))
}

// Insert verifies sourcePath's content hash matches pkg.ID, then
// deduplicates it into the store. Returns true if newly inserted,
// false if pkg.ID was already cataloged. Failure leaves neither a
// partial catalog entry nor a partial directory (spec.md §4.3/§7).
func (s *LocalStore) Insert(pkg pkgfs.Package, sourcePath string) (bool, error) {
	computedID, sourceObjects, err := pkgfs.HashPackage(sourcePath, pkg.Desc.Name)
	if err != nil {
		return false, fmt.Errorf("hashing source: %w", err)
	}
	if computedID != pkg.ID {
		return false, &PackageNotVerifiedError{Name: pkg.Desc.Name}
	}
	if s.cat.ContainsPackage(pkg.ID) {
		return false, nil
	}

	storeDir := s.packageDir(pkg.ID, pkg.Desc)
	if err := os.Mkdir(storeDir, 0o755); err != nil {
		return false, fmt.Errorf("creating package directory: %w", err)
	}

	ok := false
	defer func() {
		if !ok {
			os.RemoveAll(storeDir)
		}
	}()

	// Staged objects, committed to the catalog only once every disk
	// operation below has succeeded, so a failure never leaves a
	// partial catalog entry (spec.md §7).
	staged := make(map[id.ObjectId]pkgfs.Object, len(sourceObjects))

	var trees []id.ObjectId
	var blobs []id.ObjectId
	var links []id.ObjectId
	for oid, o := range sourceObjects {
		switch o.(type) {
		case pkgfs.Tree:
			trees = append(trees, oid)
		case pkgfs.Blob:
			blobs = append(blobs, oid)
		case pkgfs.Link:
			links = append(links, oid)
		}
	}

	// Trees: smaller depth first, so parents exist before children.
	sort.Slice(trees, func(i, j int) bool {
		pi := sourceObjects[trees[i]].(pkgfs.Tree).Path
		pj := sourceObjects[trees[j]].(pkgfs.Tree).Path
		return strings.Count(pi, "/") < strings.Count(pj, "/")
	})
	for _, oid := range trees {
		tree := sourceObjects[oid].(pkgfs.Tree)
		if err := os.MkdirAll(filepath.Join(storeDir, tree.Path), 0o755); err != nil {
			return false, fmt.Errorf("creating tree directory %s: %w", tree.Path, err)
		}
		staged[oid] = tree
	}

	// Blobs: ordered by object id for determinism, but the actual
	// copy/hard-link work is independent per blob, so it fans out over
	// a bounded worker pool rather than running one at a time.
	pkgfs.SortObjectIDs(blobs)
	var stagedMu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentBlobOps)
	for _, oid := range blobs {
		oid, blob := oid, sourceObjects[oid].(pkgfs.Blob)
		g.Go(func() error {
			destPath := filepath.Join(storeDir, blob.Path)
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				return fmt.Errorf("creating blob parent directory: %w", err)
			}

			if existingPath, found := s.existingBlobPath(oid); found {
				if err := os.Link(existingPath, destPath); err != nil {
					return fmt.Errorf("hard-linking %s: %w", blob.Path, err)
				}
				return nil
			}
			srcPath := filepath.Join(sourcePath, blob.Path)
			if err := copyFile(srcPath, destPath); err != nil {
				return fmt.Errorf("copying blob %s: %w", blob.Path, err)
			}
			stagedMu.Lock()
			staged[oid] = blob
			stagedMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	// Links: source is always a blob already materialized above.
	for _, oid := range links {
		link := sourceObjects[oid].(pkgfs.Link)
		destPath := filepath.Join(storeDir, link.LinkPath)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return false, fmt.Errorf("creating link parent directory: %w", err)
		}
		sourceBlob, ok := sourceObjects[link.Source].(pkgfs.Blob)
		if !ok {
			return false, &ObjectNotRetrievableError{ID: link.Source.String()}
		}
		targetPath := filepath.Join(storeDir, sourceBlob.Path)
		rel, err := filepath.Rel(filepath.Dir(destPath), targetPath)
		if err != nil {
			return false, err
		}
		if err := os.Symlink(rel, destPath); err != nil {
			return false, fmt.Errorf("creating link %s: %w", link.LinkPath, err)
		}
		staged[oid] = link
	}

	for oid, o := range staged {
		s.cat.Insert(oid, o)
	}
	objSet := make(pkgfs.ObjectSet, 0, len(sourceObjects))
	for oid := range sourceObjects {
		objSet = append(objSet, oid)
	}
	s.cat.AddPackage(pkg.ID, pkg.Desc, objSet)

	ok = true
	return true, nil
}

// existingBlobPath returns the on-disk path of an already-cataloged
// object, used to source a hard-link during dedup.
func (s *LocalStore) existingBlobPath(oid id.ObjectId) (string, bool) {
	owner, ok := s.cat.FindPackageID(oid)
	if !ok {
		return "", false
	}
	entry, ok := s.cat.GetPackage(owner)
	if !ok {
		return "", false
	}
	obj, ok := s.cat.Get(oid)
	if !ok {
		return "", false
	}
	blob, ok := obj.(pkgfs.Blob)
	if !ok {
		return "", false
	}
	return filepath.Join(s.packageDir(owner, entry.Desc), blob.Path), true
}

// LinkPackage links every non-tree object of a cataloged package into
// target, per spec.md §4.3's bin/lib/cfg|etc/share mapping.
func (s *LocalStore) LinkPackage(pid id.PackageId, target ComponentPaths) error {
	entry, ok := s.cat.GetPackage(pid)
	if !ok {
		return &PackageNotFoundByIDError{ID: pid.String()}
	}

	for _, oid := range entry.Objects {
		obj, ok := s.cat.Get(oid)
		if !ok {
			return &ObjectNotRetrievableError{ID: oid.String()}
		}

		var relPath string
		switch o := obj.(type) {
		case pkgfs.Blob:
			relPath = o.Path
		case pkgfs.Link:
			relPath = o.LinkPath
		default:
			continue // trees aren't linked individually
		}

		destRoot, tail, err := componentDest(target, relPath)
		if err != nil {
			return err
		}
		destPath := filepath.Join(destRoot, tail)
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return fmt.Errorf("creating link parent directory: %w", err)
		}
		absSource := filepath.Join(s.packageDir(pid, entry.Desc), relPath)
		if err := os.Symlink(absSource, destPath); err != nil && !os.IsExist(err) {
			return fmt.Errorf("linking %s: %w", relPath, err)
		}
	}
	return nil
}

func componentDest(target ComponentPaths, relPath string) (root, tail string, err error) {
	parts := strings.SplitN(relPath, "/", 2)
	top := parts[0]
	if len(parts) == 2 {
		tail = parts[1]
	}
	switch top {
	case "bin":
		return target.Binary, tail, nil
	case "lib":
		return target.Library, tail, nil
	case "cfg", "etc":
		return target.Config, tail, nil
	case "share":
		return target.Share, tail, nil
	default:
		return "", "", &UnsupportedFilePathError{Path: relPath}
	}
}

// Matches yields every cataloged package satisfying req, per spec.md
// §4.3.
func (s *LocalStore) Matches(req pkgfs.Requirement) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		constraint, err := req.Constraint()
		if err != nil {
			return
		}
		for _, pid := range s.cat.PackageIDs() {
			entry, _ := s.cat.GetPackage(pid)
			if entry.Desc.Name != req.Name {
				continue
			}
			version, err := entry.Desc.SemVersion()
			if err != nil || !constraint.Check(version) {
				continue
			}
			blobs := blobRefs(s.cat, entry.Objects)
			if !blobsSubset(req.Blobs, blobs) {
				continue
			}
			if !yield(Match{ID: pid, Desc: entry.Desc, Blobs: blobs}) {
				return
			}
		}
	}
}

// RemoveUnused deletes every cataloged package not present in live,
// returning the ids it removed. Progress events are sent to sink (nil
// is a valid no-op sink).
func (s *LocalStore) RemoveUnused(live []id.PackageId, sink progress.Sink) ([]id.PackageId, error) {
	liveSet := make(map[id.PackageId]bool, len(live))
	for _, pid := range live {
		liveSet[pid] = true
	}

	var removed []id.PackageId
	for _, pid := range s.cat.PackageIDs() {
		if liveSet[pid] {
			continue
		}
		entry, ok := s.cat.GetPackage(pid)
		if !ok {
			continue
		}
		dir := s.packageDir(pid, entry.Desc)
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("removing %s: %w", dir, err)
		}
		s.cat.RemovePackage(pid)
		removed = append(removed, pid)
		progress.Emit(sink, progress.Event{Stage: "gc", Package: entry.Desc.Name, Message: "removed"})
	}

	if err := s.Flush(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Contains reports whether a package id is cataloged.
func (s *LocalStore) Contains(pid id.PackageId) bool { return s.cat.ContainsPackage(pid) }

// Get returns a cataloged package's descriptor.
func (s *LocalStore) Get(pid id.PackageId) (pkgfs.PackageDesc, bool) {
	entry, ok := s.cat.GetPackage(pid)
	return entry.Desc, ok
}

// PackageDir exposes a package's on-disk directory, for the build
// pipeline's installed-package symlink (spec.md §4.8).
func (s *LocalStore) PackageDir(pid id.PackageId, desc pkgfs.PackageDesc) string {
	return s.packageDir(pid, desc)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
