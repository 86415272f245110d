// Package sandbox abstracts over the host's bind-mount/exec primitive
// (spec.md §1 names it an external collaborator): a JailBuilder wraps
// an external launcher binary — bubblewrap by default — the same way
// overthink's build pipeline selects between docker and podman without
// reimplementing either.
package sandbox

import (
	"fmt"
	"os"
	"os/exec"
)

// Bind is a single filesystem bind-mount the jail applies before
// running a command inside it.
type Bind struct {
	Source   string
	Target   string
	ReadOnly bool
}

// JailBuilder accumulates binds, environment variables, and a working
// directory, then produces an immutable Jail.
type JailBuilder struct {
	launcher string
	binds    []Bind
	env      map[string]string
	dir      string
}

// NewJailBuilder starts a builder using launcher as the external
// process (e.g. "bwrap"). An empty launcher defaults to "bwrap".
func NewJailBuilder(launcher string) *JailBuilder {
	if launcher == "" {
		launcher = "bwrap"
	}
	return &JailBuilder{launcher: launcher, env: make(map[string]string)}
}

// Bind adds a bind-mount.
func (b *JailBuilder) Bind(bind Bind) *JailBuilder {
	b.binds = append(b.binds, bind)
	return b
}

// Env sets an environment variable visible inside the jail.
func (b *JailBuilder) Env(key, value string) *JailBuilder {
	b.env[key] = value
	return b
}

// Dir sets the working directory a command runs in inside the jail
// (an internal path, i.e. one end of a Bind's Target).
func (b *JailBuilder) Dir(path string) *JailBuilder {
	b.dir = path
	return b
}

// Build finalizes the jail configuration.
func (b *JailBuilder) Build() *Jail {
	return &Jail{
		launcher: b.launcher,
		binds:    append([]Bind(nil), b.binds...),
		env:      copyEnv(b.env),
		dir:      b.dir,
	}
}

func copyEnv(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Jail is an immutable sandbox configuration, ready to run commands.
type Jail struct {
	launcher string
	binds    []Bind
	env      map[string]string
	dir      string
}

// Run spawns command inside the jail via the configured launcher,
// waits for it to exit, and returns an error on nonzero exit — the
// same `exec.Command` + `cmd.Run()` idiom used to invoke external
// build engines, with the jail's binds/env/dir translated into
// launcher arguments ahead of the command itself.
func (j *Jail) Run(command string, args ...string) error {
	launcherArgs := j.launcherArgs()
	launcherArgs = append(launcherArgs, command)
	launcherArgs = append(launcherArgs, args...)

	cmd := exec.Command(j.launcher, launcherArgs...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sandbox: %s failed: %w", j.launcher, err)
	}
	return nil
}

// launcherArgs translates binds/env/dir into bubblewrap-style flags.
// A launcher other than bwrap that accepts the same flag shapes (or a
// wrapper script translating them) can be substituted via
// NewJailBuilder's launcher argument.
func (j *Jail) launcherArgs() []string {
	var args []string
	for _, b := range j.binds {
		if b.ReadOnly {
			args = append(args, "--ro-bind", b.Source, b.Target)
		} else {
			args = append(args, "--bind", b.Source, b.Target)
		}
	}
	for k, v := range j.env {
		args = append(args, "--setenv", k, v)
	}
	if j.dir != "" {
		args = append(args, "--chdir", j.dir)
	}
	return args
}
