// Command hua is the CLI front end of spec.md §6: store/generation
// management plus package add/remove, wired with kong the same way
// overthink's ov binary wires its own subcommand tree.
package main

import (
	"os/user"

	"github.com/alecthomas/kong"

	"hua/internal/layout"
)

// Globals is injected into every subcommand's Run method as a
// binding passed to ctx.Run, carrying the installation root and the account the
// process runs as — spec.md §9's "fixed relative roots... library
// code never hardcodes them" applies just as much to the CLI layer.
type Globals struct {
	Root    string
	Account string
}

func (g *Globals) layout() layout.Layout {
	return layout.DefaultLayout(g.Root)
}

// CLI is the top-level command tree.
type CLI struct {
	Root    string `help:"hua installation root directory" default:"./hua-root" type:"path"`
	Account string `help:"account name (default: current OS user)"`

	Init        InitCmd        `cmd:"" help:"Create the store, user manager, and global link tree"`
	Store       StoreCmd       `cmd:"" help:"Inspect or garbage-collect the package store"`
	Generations GenerationsCmd `cmd:"" help:"Manage the current user's generations"`
	Add         AddCmd         `cmd:"" help:"Insert a package into the store and require it"`
	Remove      RemoveCmd      `cmd:"" help:"Drop a requirement by package name"`
	Build       BuildCmd       `cmd:"" help:"Build-pipeline provenance operations"`
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("hua"),
		kong.Description("Content-addressed functional package manager"),
		kong.UsageOnError(),
	)

	account := cli.Account
	if account == "" {
		account = currentUsername()
	}

	err := ctx.Run(&Globals{Root: cli.Root, Account: account})
	ctx.FatalIfErrorf(err)
}
