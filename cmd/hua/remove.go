package main

import "fmt"

// RemoveCmd drops a requirement by package name and relinks the
// global tree against the resulting generation (spec.md §6 `remove
// <name>`).
type RemoveCmd struct {
	Name string `arg:"" help:"Package name to drop"`
}

func (c *RemoveCmd) Run(g *Globals) error {
	s, um, err := openStoreAndUser(g)
	if err != nil {
		return err
	}

	u := um.Current()
	cur := u.Manager.Current()

	found := false
	for _, req := range cur.Requirements {
		if req.Name != c.Name {
			continue
		}
		found = true
		if _, err := u.Manager.RemoveRequirement(req, s); err != nil {
			return fmt.Errorf("removing requirement: %w", err)
		}
		break
	}
	if !found {
		return fmt.Errorf("no requirement named %q in the current generation", c.Name)
	}

	return u.Manager.SwitchTo(u.Manager.Current().ID, g.layout().GlobalComponentPaths())
}
