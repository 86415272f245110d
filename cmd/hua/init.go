package main

import (
	"hua/internal/store"
	"hua/internal/user"
)

// InitCmd creates the store, the current account's first generation,
// and links it into the global component tree (spec.md §6 `init`).
type InitCmd struct{}

func (c *InitCmd) Run(g *Globals) error {
	l := g.layout()

	s, err := store.Init(l.Store)
	if err != nil {
		return err
	}

	um, err := user.Open(l.UserManager, g.Account, s)
	if err != nil {
		return err
	}

	u := um.Current()
	return u.Manager.SwitchTo(u.Manager.Current().ID, l.GlobalComponentPaths())
}
