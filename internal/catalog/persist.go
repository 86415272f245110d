package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"hua/internal/id"
	"hua/internal/pkgfs"
)

// wireObject is the msgpack-friendly representation of an
// pkgfs.Object, keyed by variant since Object is an interface.
type wireObject struct {
	Kind     uint8
	Path     string   `msgpack:",omitempty"`
	Children []string `msgpack:",omitempty"` // hex ObjectIds, Tree only
	Link     string   `msgpack:",omitempty"`
	Source   string   `msgpack:",omitempty"` // hex ObjectId, Link only
}

func toWireObject(o pkgfs.Object) wireObject {
	switch v := o.(type) {
	case pkgfs.Blob:
		return wireObject{Kind: uint8(pkgfs.KindBlob), Path: v.Path}
	case pkgfs.Tree:
		children := make([]string, len(v.Children))
		for i, c := range v.Children {
			children[i] = c.String()
		}
		return wireObject{Kind: uint8(pkgfs.KindTree), Path: v.Path, Children: children}
	case pkgfs.Link:
		return wireObject{Kind: uint8(pkgfs.KindLink), Link: v.LinkPath, Source: v.Source.String()}
	default:
		panic(fmt.Sprintf("catalog: unknown object variant %T", o))
	}
}

func fromWireObject(w wireObject) (pkgfs.Object, error) {
	switch pkgfs.Kind(w.Kind) {
	case pkgfs.KindBlob:
		return pkgfs.Blob{Path: w.Path}, nil
	case pkgfs.KindTree:
		children := make([]id.ObjectId, len(w.Children))
		for i, c := range w.Children {
			raw, err := id.ParseRawId(c)
			if err != nil {
				return nil, err
			}
			children[i] = id.ObjectId(raw)
		}
		return pkgfs.Tree{Path: w.Path, Children: children}, nil
	case pkgfs.KindLink:
		raw, err := id.ParseRawId(w.Source)
		if err != nil {
			return nil, err
		}
		return pkgfs.Link{LinkPath: w.Link, Source: id.ObjectId(raw)}, nil
	default:
		return nil, fmt.Errorf("catalog: unknown wire object kind %d", w.Kind)
	}
}

type wireEntry struct {
	Desc    pkgfs.PackageDesc
	Objects []string // hex ObjectIds
}

type wireDerivation struct {
	Recipe  RecipeDesc
	Inputs  []string // hex PackageIds
	Output  string   // hex PackageId
	BuiltAt string
}

// wireCatalog is the top-level record written to packages.db. The
// Derivations section is optional: a store with no build history
// simply omits it, matching spec.md §6's "(plus optional Derivations
// in build-capable stores)".
type wireCatalog struct {
	Objects     map[string]wireObject
	Packages    map[string]wireEntry
	Derivations map[string]wireDerivation `msgpack:",omitempty"`
}

// Flush atomically replaces path with the catalog's current state,
// encoded as msgpack (spec.md §6: "write to sibling, rename").
func (c *Catalog) Flush(path string) error {
	wc := wireCatalog{
		Objects:  make(map[string]wireObject, len(c.objects)),
		Packages: make(map[string]wireEntry, len(c.packages)),
	}
	for oid, o := range c.objects {
		wc.Objects[oid.String()] = toWireObject(o)
	}
	for pid, e := range c.packages {
		objs := make([]string, len(e.Objects))
		for i, oid := range e.Objects {
			objs[i] = oid.String()
		}
		wc.Packages[pid.String()] = wireEntry{Desc: e.Desc, Objects: objs}
	}
	if len(c.derivations) > 0 {
		wc.Derivations = make(map[string]wireDerivation, len(c.derivations))
		for did, d := range c.derivations {
			inputs := make([]string, len(d.Inputs))
			for i, pid := range d.Inputs {
				inputs[i] = pid.String()
			}
			wc.Derivations[did.String()] = wireDerivation{
				Recipe:  d.Recipe,
				Inputs:  inputs,
				Output:  d.Output.String(),
				BuiltAt: d.BuiltAt,
			}
		}
	}

	data, err := msgpack.Marshal(wc)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".packages.db.tmp-*")
	if err != nil {
		return fmt.Errorf("creating catalog temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing catalog temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing catalog temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod catalog temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming catalog into place: %w", err)
	}
	return nil
}

// Load reads a catalog previously written by Flush.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var wc wireCatalog
	if err := msgpack.Unmarshal(data, &wc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	c := New()
	for hexID, wo := range wc.Objects {
		raw, err := id.ParseRawId(hexID)
		if err != nil {
			return nil, fmt.Errorf("decoding object id %q: %w", hexID, err)
		}
		o, err := fromWireObject(wo)
		if err != nil {
			return nil, err
		}
		c.objects[id.ObjectId(raw)] = o
	}
	for hexID, we := range wc.Packages {
		raw, err := id.ParseRawId(hexID)
		if err != nil {
			return nil, fmt.Errorf("decoding package id %q: %w", hexID, err)
		}
		objs := make(pkgfs.ObjectSet, len(we.Objects))
		for i, oh := range we.Objects {
			oraw, err := id.ParseRawId(oh)
			if err != nil {
				return nil, err
			}
			objs[i] = id.ObjectId(oraw)
			if c.objectOwner[objs[i]] == nil {
				c.objectOwner[objs[i]] = make(map[id.PackageId]struct{})
			}
			c.objectOwner[objs[i]][id.PackageId(raw)] = struct{}{}
		}
		c.packages[id.PackageId(raw)] = Entry{Desc: we.Desc, Objects: objs}
	}
	for hexID, wd := range wc.Derivations {
		raw, err := id.ParseRawId(hexID)
		if err != nil {
			return nil, fmt.Errorf("decoding derivation id %q: %w", hexID, err)
		}
		outputRaw, err := id.ParseRawId(wd.Output)
		if err != nil {
			return nil, fmt.Errorf("decoding derivation output id: %w", err)
		}
		inputs := make([]id.PackageId, len(wd.Inputs))
		for i, ih := range wd.Inputs {
			iraw, err := id.ParseRawId(ih)
			if err != nil {
				return nil, fmt.Errorf("decoding derivation input id: %w", err)
			}
			inputs[i] = id.PackageId(iraw)
		}
		c.derivations[id.DerivationId(raw)] = Derivation{
			Recipe:  wd.Recipe,
			Inputs:  inputs,
			Output:  id.PackageId(outputRaw),
			BuiltAt: wd.BuiltAt,
		}
	}

	return c, nil
}
