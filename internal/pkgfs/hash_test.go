package pkgfs

import (
	"os"
	"path/filepath"
	"testing"

	"hua/internal/id"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestHashPackageDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin", "tool"), "#!/bin/sh\necho hi\n")
	writeFile(t, filepath.Join(dir, "lib", "libfoo.so"), "binary-contents")

	id1, objs1, err := HashPackage(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}
	id2, objs2, err := HashPackage(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("HashPackage not deterministic: %v != %v", id1, id2)
	}
	if len(objs1) != len(objs2) {
		t.Fatalf("object count differs across runs")
	}
}

func TestHashPackageNameSalt(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin", "tool"), "contents")

	idFoo, _, err := HashPackage(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}
	idBar, _, err := HashPackage(dir, "bar")
	if err != nil {
		t.Fatal(err)
	}
	if idFoo == idBar {
		t.Fatalf("identical trees with different package names produced the same id")
	}
}

func TestHashPackageByteChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin", "tool"), "version-a")
	idA, _, err := HashPackage(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "bin", "tool"), "version-b")
	idB, _, err := HashPackage(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}

	if idA == idB {
		t.Fatalf("single byte change in a blob did not change PackageId")
	}
}

func TestHashPackageSymlink(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib", "libfoo.so.1.0"), "soabi")
	if err := os.Symlink("libfoo.so.1.0", filepath.Join(dir, "lib", "libfoo.so")); err != nil {
		t.Fatal(err)
	}

	_, objs, err := HashPackage(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, o := range objs {
		if l, ok := o.(Link); ok {
			found = true
			if l.LinkPath != "lib/libfoo.so" {
				t.Fatalf("unexpected link path %q", l.LinkPath)
			}
		}
	}
	if !found {
		t.Fatalf("expected a Link object among %d objects", len(objs))
	}
}

func TestHashPackageTreeStructure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin", "tool"), "x")
	writeFile(t, filepath.Join(dir, "lib", "nested", "deep.so"), "y")

	rootID, objs, err := HashPackage(dir, "foo")
	if err != nil {
		t.Fatal(err)
	}

	root, ok := objs[id.ObjectId(rootID)]
	if !ok {
		t.Fatalf("root tree object missing from object set")
	}
	tree, ok := root.(Tree)
	if !ok {
		t.Fatalf("root object is not a Tree: %T", root)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 top-level children (bin, lib), got %d", len(tree.Children))
	}
}
