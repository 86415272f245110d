package store

import (
	"archive/tar"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"hua/internal/catalog"
	"hua/internal/id"
	"hua/internal/pkgfs"
)

// dbArtifactPath is the single file the published OCI image's one
// layer contains.
const dbArtifactPath = "packages.db"

// RemoteStore is a read-only catalog fetched from an OCI registry,
// where a hua catalog is published as a single-layer artifact (the
// packages.db blob as the image's one layer, referenced by tag).
// spec.md §4.3's "simple HTTP GET" contract, served over the same
// content-addressed transport the pack's registries already speak.
type RemoteStore struct {
	ref string
	cat *catalog.Catalog
}

// OpenRemote pulls ref (e.g. "registry.example.com/hua-catalog:latest")
// and extracts its packages.db layer.
func OpenRemote(ref string) (*RemoteStore, error) {
	imgRef, err := name.ParseReference(ref)
	if err != nil {
		return nil, fmt.Errorf("parsing remote reference %q: %w", ref, err)
	}
	img, err := remote.Image(imgRef)
	if err != nil {
		return nil, fmt.Errorf("fetching remote image %q: %w", ref, err)
	}

	data, err := extractDBBlob(img)
	if err != nil {
		return nil, fmt.Errorf("extracting %s from %q: %w", dbArtifactPath, ref, err)
	}

	tmp, err := os.CreateTemp("", "hua-remote-catalog-*.db")
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	cat, err := catalog.Load(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("decoding remote catalog: %w", err)
	}
	return &RemoteStore{ref: ref, cat: cat}, nil
}

func extractDBBlob(img v1.Image) ([]byte, error) {
	layers, err := img.Layers()
	if err != nil {
		return nil, err
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("image has no layers")
	}
	// spec.md's remote catalog is single-layer; the newest is last.
	layer := layers[len(layers)-1]
	reader, err := layer.Uncompressed()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if filepath.Base(hdr.Name) == dbArtifactPath {
			return io.ReadAll(tr)
		}
	}
	return nil, fmt.Errorf("%s not found in image layer", dbArtifactPath)
}

// Publish uploads dbPath as a single-layer OCI artifact to ref, the
// inverse of OpenRemote — used by a catalog maintainer to push an
// updated packages.db, not by ordinary hua clients.
func Publish(ref, dbPath string) error {
	layer, err := crane.Layer(map[string][]byte{dbArtifactPath: mustReadFile(dbPath)})
	if err != nil {
		return fmt.Errorf("building artifact layer: %w", err)
	}
	img, err := crane.Append(empty.Image, layer)
	if err != nil {
		return fmt.Errorf("appending layer: %w", err)
	}
	if err := crane.Push(img, ref); err != nil {
		return fmt.Errorf("pushing %q: %w", ref, err)
	}
	return nil
}

func mustReadFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	return data
}

// Matches implements store.Matcher by scanning the locally-cached
// remote catalog; RemoteStore never round-trips to the registry per
// lookup.
func (s *RemoteStore) Matches(req pkgfs.Requirement) iter.Seq[Match] {
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

// Contains reports whether a package id is in the cached remote catalog.
func (s *RemoteStore) Contains(pid id.PackageId) bool { return s.cat.ContainsPackage(pid) }

// Ref returns the OCI reference this store was opened from.
func (s *RemoteStore) Ref() string { return s.ref }
