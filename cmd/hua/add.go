package main

import (
	"fmt"

	"hua/internal/pkgfs"
)

// AddCmd hashes a package directory, inserts it into the store, adds
// a requirement for it to the current generation, and activates the
// result (spec.md §6 `add <name> <version> <path>`).
type AddCmd struct {
	Name    string `arg:"" help:"Package name"`
	Version string `arg:"" help:"Package version"`
	Path    string `arg:"" type:"path" help:"Directory holding the package's built files"`
}

func (c *AddCmd) Run(g *Globals) error {
	s, um, err := openStoreAndUser(g)
	if err != nil {
		return err
	}

	pid, _, err := pkgfs.HashPackage(c.Path, c.Name)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", c.Path, err)
	}
	desc := pkgfs.PackageDesc{Name: c.Name, Version: c.Version}
	pkg := pkgfs.Package{ID: pid, Desc: desc}

	if _, err := s.Insert(pkg, c.Path); err != nil {
		return fmt.Errorf("inserting %s: %w", c.Path, err)
	}

	u := um.Current()
	req := pkgfs.Requirement{Name: c.Name, VersionReq: ">=" + c.Version}
	if _, err := u.Manager.InsertRequirement(req, s); err != nil {
		return fmt.Errorf("adding requirement: %w", err)
	}

	return u.Manager.SwitchTo(u.Manager.Current().ID, g.layout().GlobalComponentPaths())
}
