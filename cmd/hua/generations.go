package main

import (
	"fmt"

	"hua/internal/store"
	"hua/internal/user"
)

// GenerationsCmd groups generation-history subcommands (spec.md §6).
type GenerationsCmd struct {
	List   GenerationsListCmd   `cmd:"" help:"List the current account's generations"`
	Remove GenerationsRemoveCmd `cmd:"" help:"Delete a generation that is not current"`
}

func openStoreAndUser(g *Globals) (*store.LocalStore, *user.Manager, error) {
	l := g.layout()
	s, err := store.Open(l.Store)
	if err != nil {
		return nil, nil, err
	}
	um, err := user.Open(l.UserManager, g.Account, s)
	if err != nil {
		return nil, nil, err
	}
	return s, um, nil
}

// GenerationsListCmd implements `generations list`.
type GenerationsListCmd struct{}

func (c *GenerationsListCmd) Run(g *Globals) error {
	_, um, err := openStoreAndUser(g)
	if err != nil {
		return err
	}
	u := um.Current()
	currentID := u.Manager.Current().ID
	for _, id := range u.Manager.IDs() {
		marker := "  "
		if id == currentID {
			marker = "* "
		}
		fmt.Printf("%s%d\n", marker, id)
	}
	return nil
}

// GenerationsRemoveCmd implements `generations remove <id>`.
type GenerationsRemoveCmd struct {
	ID uint64 `arg:"" help:"Generation id to remove"`
}

func (c *GenerationsRemoveCmd) Run(g *Globals) error {
	_, um, err := openStoreAndUser(g)
	if err != nil {
		return err
	}
	u := um.Current()
	removed, err := u.Manager.RemoveGeneration(c.ID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("generation %d not found", c.ID)
	}
	return nil
}
