package sandbox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeFakeLauncher writes a shell script standing in for bwrap: it
// records its full argument list to recordPath, then (if forward is
// true) execs its trailing arguments as the real command so Run's
// success/failure plumbing can be exercised without bwrap installed.
func writeFakeLauncher(t *testing.T, recordPath string, forward bool) string {
	t.Helper()
	script := "#!/bin/sh\necho \"$@\" > " + recordPath + "\n"
	if forward {
		script += "exec \"$@\"\n"
	}
	path := filepath.Join(t.TempDir(), "fake-launcher")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunTranslatesBindsEnvAndDir(t *testing.T) {
	record := filepath.Join(t.TempDir(), "record")
	launcher := writeFakeLauncher(t, record, false)

	jail := NewJailBuilder(launcher).
		Bind(Bind{Source: "/host/ro", Target: "/jail/ro", ReadOnly: true}).
		Bind(Bind{Source: "/host/rw", Target: "/jail/rw"}).
		Env("FOO", "bar").
		Dir("/jail/work").
		Build()

	if err := jail.Run("sh", "script.sh"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(record)
	if err != nil {
		t.Fatalf("reading record: %v", err)
	}
	got := string(data)
	for _, want := range []string{
		"--ro-bind /host/ro /jail/ro",
		"--bind /host/rw /jail/rw",
		"--setenv FOO bar",
		"--chdir /jail/work",
		"sh script.sh",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected launcher args to contain %q, got %q", want, got)
		}
	}
}

func TestRunPropagatesSuccessAndFailure(t *testing.T) {
	record := filepath.Join(t.TempDir(), "record")
	launcher := writeFakeLauncher(t, record, true)
	jail := NewJailBuilder(launcher).Build()

	if err := jail.Run("true"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if err := jail.Run("false"); err == nil {
		t.Fatalf("expected failure from a nonzero exit")
	}
}

func TestDefaultLauncherIsBwrap(t *testing.T) {
	jail := NewJailBuilder("").Build()
	if jail.launcher != "bwrap" {
		t.Fatalf("expected default launcher bwrap, got %q", jail.launcher)
	}
}
