package main

import (
	"fmt"

	"hua/internal/id"
	"hua/internal/store"
)

// BuildCmd surfaces build provenance recorded by the recipe pipeline
// (spec.md §9's Open Question, widened per SPEC_FULL.md §3's `build
// <pkg-id>`). Recipe execution itself is driven by internal/recipe's
// state machine from a recipe-authoring tool, not this CLI.
type BuildCmd struct {
	Explain string `arg:"" name:"pkg-id" help:"Package id to print the derivation chain for"`
}

func (c *BuildCmd) Run(g *Globals) error {
	s, err := store.Open(g.layout().Store)
	if err != nil {
		return err
	}

	raw, err := id.ParseRawId(c.Explain)
	if err != nil {
		return fmt.Errorf("parsing package id: %w", err)
	}
	return explainPackage(s, id.PackageId(raw), 0, make(map[id.PackageId]bool))
}

// explainPackage prints every derivation whose output is pid, then
// recurses into each of its inputs (an input with no recorded
// derivation prints as inserted directly), skipping any package
// already printed anywhere earlier in the walk.
func explainPackage(s *store.LocalStore, pid id.PackageId, depth int, seen map[id.PackageId]bool) error {
	if seen[pid] {
		return nil
	}
	seen[pid] = true

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	derivations := s.DerivationsForPackage(pid)
	if len(derivations) == 0 {
		fmt.Printf("%s%s: no recorded derivation (inserted directly)\n", indent, pid)
		return nil
	}

	for _, d := range derivations {
		fmt.Printf("%s%s built from %s %s (source %s) at %s\n",
			indent, pid, d.Recipe.Name, d.Recipe.Version, d.Recipe.SourceURL, d.BuiltAt)
		for _, in := range d.Inputs {
			if err := explainPackage(s, in, depth+1, seen); err != nil {
				return err
			}
		}
	}
	return nil
}
