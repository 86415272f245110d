package pkgfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"hua/internal/id"
)

// HashPackage walks the directory tree at rootPath in post-order and
// returns the package's content id plus every Object discovered, per
// spec.md §4.1.
//
// Symlinks are resolved against blobs only: a Link's source must point
// at a regular file elsewhere in the same tree. This mirrors how
// packages actually ship symlinks (a versioned shared object pointing
// at its real file) and sidesteps needing a second fixed point for
// symlink-to-symlink or symlink-to-directory chains, which spec.md
// does not require HashPackage itself to support (a Store is free to
// reject those at insert time via Object graph invariants I1/I2).
func HashPackage(rootPath, packageName string) (id.PackageId, map[id.ObjectId]Object, error) {
	objects := make(map[id.ObjectId]Object)
	blobByPath := make(map[string]id.ObjectId)

	type pendingLink struct {
		relPath string
		target  string
	}
	var links []pendingLink

	// Pass 1: hash every regular file and collect every symlink's
	// target, so that pass 2 (tree assembly) can resolve a Link's
	// Source regardless of traversal order.
	err := filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == rootPath {
			return nil
		}
		rel, err := filepath.Rel(rootPath, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading link %s: %w", rel, err)
			}
			if !filepath.IsAbs(target) {
				target = filepath.Clean(filepath.Join(filepath.Dir(path), target))
			}
			targetRel, err := filepath.Rel(rootPath, target)
			if err != nil {
				return fmt.Errorf("link %s escapes package root: %w", rel, err)
			}
			links = append(links, pendingLink{relPath: rel, target: targetRel})
		case d.IsDir():
			// handled in pass 2
		default:
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading blob %s: %w", rel, err)
			}
			oid := id.ObjectId(id.Hash([]byte(filepath.Base(path)), data))
			objects[oid] = Blob{Path: rel}
			blobByPath[rel] = oid
		}
		return nil
	})
	if err != nil {
		return id.PackageId{}, nil, err
	}

	for _, l := range links {
		src, ok := blobByPath[l.target]
		if !ok {
			return id.PackageId{}, nil, fmt.Errorf("link %s targets %s, which is not a blob in this package", l.relPath, l.target)
		}
		nameHash := id.HashString(filepath.Base(l.relPath))
		lid := id.ObjectId(id.Hash(nameHash[:], []byte(src.String())))
		objects[lid] = Link{LinkPath: l.relPath, Source: src}
	}

	// Pass 2: assemble Tree objects bottom-up.
	childrenByDir := make(map[string][]id.ObjectId)
	for rel, oid := range blobByPath {
		parent := filepath.ToSlash(filepath.Dir(rel))
		childrenByDir[parent] = append(childrenByDir[parent], oid)
	}
	for oid, obj := range objects {
		if l, ok := obj.(Link); ok {
			parent := filepath.ToSlash(filepath.Dir(l.LinkPath))
			childrenByDir[parent] = append(childrenByDir[parent], oid)
		}
	}

	var buildTree func(absDir, relDir string) (id.ObjectId, error)
	buildTree = func(absDir, relDir string) (id.ObjectId, error) {
		entries, err := os.ReadDir(absDir)
		if err != nil {
			return id.ObjectId{}, err
		}

		var children []id.ObjectId
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			childRel := e.Name()
			if relDir != "." && relDir != "" {
				childRel = relDir + "/" + e.Name()
			}
			childID, err := buildTree(filepath.Join(absDir, e.Name()), childRel)
			if err != nil {
				return id.ObjectId{}, err
			}
			children = append(children, childID)
		}

		key := relDir
		if key == "" {
			key = "."
		}
		children = append(children, childrenByDir[key]...)

		sortChildren(children, objects)

		name := filepath.Base(absDir)
		if relDir == "." || relDir == "" {
			name = packageName
		}
		nameHash := id.HashString(name)
		parts := [][]byte{nameHash[:]}
		for _, c := range children {
			raw := c.Raw()
			parts = append(parts, raw[:])
		}
		tid := id.ObjectId(id.Hash(parts...))
		objects[tid] = Tree{Path: normalizeTreePath(relDir), Children: children}
		return tid, nil
	}

	rootID, err := buildTree(rootPath, ".")
	if err != nil {
		return id.PackageId{}, nil, err
	}

	return id.PackageId(rootID.Raw()), objects, nil
}

func normalizeTreePath(rel string) string {
	if rel == "." || rel == "" {
		return ""
	}
	return rel
}

func sortChildren(ids []id.ObjectId, objects map[id.ObjectId]Object) {
	sort.Slice(ids, func(i, j int) bool {
		return Less(ids[i], objects[ids[i]], ids[j], objects[ids[j]])
	})
}
