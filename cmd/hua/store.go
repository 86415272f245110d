package main

import (
	"fmt"
	"os"

	"hua/internal/id"
	"hua/internal/pkgfs"
	"hua/internal/progress"
	"hua/internal/store"
)

// StoreCmd groups store-facing subcommands.
type StoreCmd struct {
	Search         StoreSearchCmd         `cmd:"" help:"Print packages matching a name"`
	CollectGarbage StoreCollectGarbageCmd `cmd:"" name:"collect-garbage" help:"Remove packages no user's generations reference"`
}

// StoreSearchCmd implements `store search <name>` (spec.md §6).
type StoreSearchCmd struct {
	Name string `arg:"" help:"Package name to search for"`
}

func (c *StoreSearchCmd) Run(g *Globals) error {
	s, err := store.Open(g.layout().Store)
	if err != nil {
		return err
	}

	found := false
	for m := range s.Matches(pkgfs.Requirement{Name: c.Name}) {
		found = true
		fmt.Printf("%s-%s %s\n", m.Desc.Name, m.Desc.Version, m.ID)
	}
	if !found {
		fmt.Println("no matching packages")
	}
	return nil
}

// StoreCollectGarbageCmd implements `store collect-garbage` (spec.md
// §6), widened with `--keep-derivations` per SPEC_FULL.md §3.
type StoreCollectGarbageCmd struct {
	KeepDerivations bool `long:"keep-derivations" help:"Also protect packages referenced only as a derivation input"`
}

func (c *StoreCollectGarbageCmd) Run(g *Globals) error {
	s, um, err := openStoreAndUser(g)
	if err != nil {
		return err
	}

	var live []id.PackageId
	for pid := range um.Packages() {
		live = append(live, pid)
	}
	if c.KeepDerivations {
		live = s.LiveSetWithDerivationInputs(live)
	}

	sink := progress.SinkFunc(func(e progress.Event) {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", e.Stage, e.Package, e.Message)
	})
	removed, err := s.RemoveUnused(live, sink)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d package(s)\n", len(removed))
	return nil
}
