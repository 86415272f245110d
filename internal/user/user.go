// Package user implements the UserManager of spec.md §4.7: a
// process-wide registry of accounts, each with its own sequence of
// generations, and the live-set union `Store.RemoveUnused` consumes.
package user

import (
	"fmt"
	"os"
	"path/filepath"

	"hua/internal/generation"
	"hua/internal/store"
)

// User is one account's generation history.
type User struct {
	Name    string
	Manager *generation.Manager
}

// Manager holds every known account and tracks which one the running
// process belongs to.
type Manager struct {
	path    string
	users   []*User
	current int // index into users
}

// Open walks managerPath (one subdirectory per user), loading each
// account's generation state. If currentAccount has no entry yet, one
// is initialized and appended, per spec.md §4.7's "on open ... if the
// current account has no entry, init one and append it to the list".
func Open(managerPath, currentAccount string, s *store.LocalStore) (*Manager, error) {
	if err := os.MkdirAll(managerPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating user manager directory: %w", err)
	}

	entries, err := os.ReadDir(managerPath)
	if err != nil {
		return nil, fmt.Errorf("reading user manager directory: %w", err)
	}

	m := &Manager{path: managerPath, current: -1}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		gm, err := generation.OpenManager(filepath.Join(managerPath, e.Name()), s)
		if err != nil {
			return nil, fmt.Errorf("opening user %q: %w", e.Name(), err)
		}
		m.users = append(m.users, &User{Name: e.Name(), Manager: gm})
	}

	for i, u := range m.users {
		if u.Name == currentAccount {
			m.current = i
			break
		}
	}
	if m.current == -1 {
		gm, err := generation.InitManager(filepath.Join(managerPath, currentAccount), s)
		if err != nil {
			return nil, fmt.Errorf("initializing user %q: %w", currentAccount, err)
		}
		m.users = append(m.users, &User{Name: currentAccount, Manager: gm})
		m.current = len(m.users) - 1
	}

	return m, nil
}

// Current returns the account running the current process.
func (m *Manager) Current() *User { return m.users[m.current] }

// Users returns every known account.
func (m *Manager) Users() []*User { return m.users }

// Find returns the account named name, if any.
func (m *Manager) Find(name string) (*User, bool) {
	for _, u := range m.users {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}
