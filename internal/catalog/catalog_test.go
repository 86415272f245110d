package catalog

import (
	"path/filepath"
	"testing"

	"hua/internal/id"
	"hua/internal/pkgfs"
)

func blobID(name, contents string) id.ObjectId {
	return id.ObjectId(id.Hash([]byte(name), []byte(contents)))
}

func TestInsertGetContains(t *testing.T) {
	c := New()
	oid := blobID("tool", "contents")
	if c.Contains(oid) {
		t.Fatalf("empty catalog should not contain anything")
	}
	prev, had := c.Insert(oid, pkgfs.Blob{Path: "bin/tool"})
	if had {
		t.Fatalf("unexpected previous value: %v", prev)
	}
	if !c.Contains(oid) {
		t.Fatalf("expected catalog to contain inserted object")
	}
	got, ok := c.Get(oid)
	if !ok || got.(pkgfs.Blob).Path != "bin/tool" {
		t.Fatalf("Get returned wrong object: %v, %v", got, ok)
	}
}

func TestFindPackageIDAfterRemoveOtherOwnerSurvives(t *testing.T) {
	c := New()
	oid := blobID("tool", "contents")
	c.Insert(oid, pkgfs.Blob{Path: "bin/tool"})

	pidA := id.PackageId(id.HashString("a"))
	pidB := id.PackageId(id.HashString("b"))
	c.AddPackage(pidA, pkgfs.PackageDesc{Name: "a"}, pkgfs.ObjectSet{oid})
	c.AddPackage(pidB, pkgfs.PackageDesc{Name: "b"}, pkgfs.ObjectSet{oid})

	orphans := c.RemovePackage(pidA)
	if len(orphans) != 0 {
		t.Fatalf("object still owned by b should not be orphaned: %v", orphans)
	}
	if !c.Contains(oid) {
		t.Fatalf("shared object should survive removal of one owner")
	}
	owner, ok := c.FindPackageID(oid)
	if !ok || owner != pidB {
		t.Fatalf("expected remaining owner to be b, got %v, %v", owner, ok)
	}

	orphans = c.RemovePackage(pidB)
	if len(orphans) != 1 || orphans[0] != oid {
		t.Fatalf("expected object to be orphaned once last owner removed, got %v", orphans)
	}
	if c.Contains(oid) {
		t.Fatalf("object should be gone once last owner removed")
	}
}

func TestFlushLoadRoundTrip(t *testing.T) {
	c := New()
	oid := blobID("tool", "contents")
	c.Insert(oid, pkgfs.Blob{Path: "bin/tool"})

	treeChild := oid
	childRaw := treeChild.Raw()
	tid := id.ObjectId(id.Hash([]byte("root"), childRaw[:]))
	c.Insert(tid, pkgfs.Tree{Path: "", Children: []id.ObjectId{treeChild}})

	pid := id.PackageId(id.HashString("pkg"))
	desc := pkgfs.PackageDesc{
		Name:    "pkg",
		Version: "1.0.0",
		Requires: []pkgfs.Requirement{
			{Name: "dep", VersionReq: ">=1.0.0"},
		},
	}
	c.AddPackage(pid, desc, pkgfs.ObjectSet{oid, tid})

	path := filepath.Join(t.TempDir(), "packages.db")
	if err := c.Flush(path); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	objs, pkgs := loaded.Len()
	if objs != 2 || pkgs != 1 {
		t.Fatalf("unexpected sizes after round trip: objects=%d packages=%d", objs, pkgs)
	}

	entry, ok := loaded.GetPackage(pid)
	if !ok {
		t.Fatalf("expected package to survive round trip")
	}
	if entry.Desc.Name != "pkg" || entry.Desc.Version != "1.0.0" {
		t.Fatalf("unexpected desc after round trip: %+v", entry.Desc)
	}
	if len(entry.Desc.Requires) != 1 || entry.Desc.Requires[0].Name != "dep" {
		t.Fatalf("unexpected requires after round trip: %+v", entry.Desc.Requires)
	}

	if _, ok := loaded.Get(oid); !ok {
		t.Fatalf("expected blob to survive round trip")
	}
	treeObj, ok := loaded.Get(tid)
	if !ok {
		t.Fatalf("expected tree to survive round trip")
	}
	if len(treeObj.(pkgfs.Tree).Children) != 1 {
		t.Fatalf("unexpected tree children after round trip: %+v", treeObj)
	}
}

func TestGetBlobsFiltersVariant(t *testing.T) {
	c := New()
	bid := blobID("tool", "contents")
	c.Insert(bid, pkgfs.Blob{Path: "bin/tool"})
	tid := id.ObjectId(id.Hash([]byte("root")))
	c.Insert(tid, pkgfs.Tree{Path: ""})

	var got []pkgfs.Blob
	for b := range c.GetBlobs([]id.ObjectId{bid, tid}) {
		got = append(got, b)
	}
	if len(got) != 1 || got[0].Path != "bin/tool" {
		t.Fatalf("GetBlobs should only yield blobs, got %+v", got)
	}
}
