// Package layout fixes the three relative roots spec.md §9's "Global
// state" names — the store, the user manager, and the global link
// tree — into a single struct the CLI threads down to every
// subcommand, so library code never hardcodes a path.
package layout

import (
	"path/filepath"

	"hua/internal/store"
)

// Layout is the set of on-disk roots one hua installation uses.
type Layout struct {
	Root          string // the installation's base directory
	Store         string // content-addressed package store
	UserManager   string // per-user generation histories
	GlobalBinary  string
	GlobalLibrary string
	GlobalConfig  string
	GlobalShare   string
}

// DefaultLayout lays the three fixed roots (`store`, `user`, `global`)
// out under root, with global further split into the bin/lib/cfg/share
// component directories store.LinkPackage and generation.Generation
// already use.
func DefaultLayout(root string) Layout {
	global := filepath.Join(root, "global")
	return Layout{
		Root:          root,
		Store:         filepath.Join(root, "store"),
		UserManager:   filepath.Join(root, "user"),
		GlobalBinary:  filepath.Join(global, "bin"),
		GlobalLibrary: filepath.Join(global, "lib"),
		GlobalConfig:  filepath.Join(global, "cfg"),
		GlobalShare:   filepath.Join(global, "share"),
	}
}

// GlobalComponentPaths adapts the layout's global roots to the
// bin/lib/cfg/share split store.LinkPackage and
// generation.Manager.SwitchGlobalLinks operate on.
func (l Layout) GlobalComponentPaths() store.ComponentPaths {
	return store.ComponentPaths{
		Binary:  l.GlobalBinary,
		Library: l.GlobalLibrary,
		Config:  l.GlobalConfig,
		Share:   l.GlobalShare,
	}
}

