package recipe

import (
	"os"
	"path/filepath"
	"testing"

	"hua/internal/store"
)

// fakeCache stands in for the external source-archive fetch/unpack
// collaborator spec.md §1 treats as out of scope: it just hands back a
// directory already containing the "extracted" source.
type fakeCache struct {
	dir string
}

func (c fakeCache) Fetch(sourceURL string) (string, error) {
	return c.dir, nil
}

type emptyCache struct{ dir string }

func (c emptyCache) Fetch(sourceURL string) (string, error) { return c.dir, nil }

func newTestStore(t *testing.T) *store.LocalStore {
	t.Helper()
	s, err := store.Init(filepath.Join(t.TempDir(), "store"))
	if err != nil {
		t.Fatalf("store.Init: %v", err)
	}
	return s
}

func baseRecipe(t *testing.T, sourceDir string) Recipe {
	t.Helper()
	return Recipe{
		Name:      "tool",
		Version:   "1.0.0",
		Archs:     HostArch(),
		Platforms: HostPlatform(),
		SourceURL: "file://" + sourceDir,
		Script:    "#!/bin/sh\nmkdir -p out\necho hi > out/file.txt\n",
		TargetDir: "out",
	}
}

// fakeLauncherPath writes a bwrap stand-in that translates this
// package's fixed bind layout (see PrepareRequirements/Build) back to
// real host paths so `sh` can actually execute the recipe script
// without a real mount namespace.
func fakeLauncherPath(t *testing.T) string {
	t.Helper()
	script := `#!/bin/sh
MAPFILE=$(mktemp)
chdir=""
while [ $# -gt 0 ]; do
  case "$1" in
    --bind|--ro-bind)
      printf '%s|%s\n' "$3" "$2" >> "$MAPFILE"
      shift 3 ;;
    --setenv)
      export "$2"="$3"
      shift 3 ;;
    --chdir)
      chdir="$2"
      shift 2 ;;
    *)
      break ;;
  esac
done

translate() {
  p="$1"
  while IFS='|' read -r dst src; do
    case "$p" in
      "$dst") printf '%s' "$src"; return 0 ;;
      "$dst"/*) printf '%s' "$src${p#"$dst"}"; return 0 ;;
    esac
  done < "$MAPFILE"
  printf '%s' "$p"
}

cmd="$1"
arg="$2"
realarg=$(translate "$arg")
if [ -n "$chdir" ]; then
  realchdir=$(translate "$chdir")
  cd "$realchdir" || exit 1
fi
rm -f "$MAPFILE"
exec "$cmd" "$realarg"
`
	path := filepath.Join(t.TempDir(), "fake-bwrap")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFullPipelineFetchPrepareBuildInstall(t *testing.T) {
	s := newTestStore(t)
	sourceDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(sourceDir, "README"), []byte("src"), 0o644); err != nil {
		t.Fatal(err)
	}
	resultPath := filepath.Join(t.TempDir(), "result")
	r := baseRecipe(t, sourceDir)

	fetched, err := NewFresh(r, resultPath).Fetch(fakeCache{dir: sourceDir})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer os.RemoveAll(fetched.TempDir)

	prepared, err := fetched.PrepareRequirements(s, filepath.Join(fetched.TempDir, "shell"), fakeLauncherPath(t))
	if err != nil {
		t.Fatalf("PrepareRequirements: %v", err)
	}

	built, err := prepared.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	pkg, err := built.Install(s)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if pkg.Desc.Name != "tool" {
		t.Fatalf("unexpected installed package: %+v", pkg)
	}
	if !s.Contains(pkg.ID) {
		t.Fatalf("expected installed package to be cataloged")
	}
	if _, err := os.Lstat(resultPath); err != nil {
		t.Fatalf("expected result symlink: %v", err)
	}

	derivations := s.DerivationsForPackage(pkg.ID)
	if len(derivations) != 1 || derivations[0].Recipe.Name != "tool" {
		t.Fatalf("expected one derivation recording the build, got %v", derivations)
	}
}

func TestFetchFailsIncompatibleArchitecture(t *testing.T) {
	sourceDir := t.TempDir()
	os.WriteFile(filepath.Join(sourceDir, "f"), []byte("x"), 0o644)
	r := baseRecipe(t, sourceDir)
	r.Archs = 0

	_, err := NewFresh(r, filepath.Join(t.TempDir(), "result")).Fetch(fakeCache{dir: sourceDir})
	if _, ok := err.(*IncompatibleArchitectureError); !ok {
		t.Fatalf("expected *IncompatibleArchitectureError, got %T: %v", err, err)
	}
}

func TestFetchFailsIncompatiblePlatform(t *testing.T) {
	sourceDir := t.TempDir()
	os.WriteFile(filepath.Join(sourceDir, "f"), []byte("x"), 0o644)
	r := baseRecipe(t, sourceDir)
	r.Platforms = 0

	_, err := NewFresh(r, filepath.Join(t.TempDir(), "result")).Fetch(fakeCache{dir: sourceDir})
	if _, ok := err.(*IncompatiblePlatformError); !ok {
		t.Fatalf("expected *IncompatiblePlatformError, got %T: %v", err, err)
	}
}

func TestFetchFailsResultLinkExists(t *testing.T) {
	sourceDir := t.TempDir()
	os.WriteFile(filepath.Join(sourceDir, "f"), []byte("x"), 0o644)
	r := baseRecipe(t, sourceDir)

	resultPath := filepath.Join(t.TempDir(), "result")
	if err := os.Symlink(sourceDir, resultPath); err != nil {
		t.Fatal(err)
	}

	_, err := NewFresh(r, resultPath).Fetch(fakeCache{dir: sourceDir})
	if _, ok := err.(*ResultLinkExistsError); !ok {
		t.Fatalf("expected *ResultLinkExistsError, got %T: %v", err, err)
	}
}

func TestFetchFailsMissingSourceFiles(t *testing.T) {
	r := baseRecipe(t, "")
	emptyDir := t.TempDir()

	_, err := NewFresh(r, filepath.Join(t.TempDir(), "result")).Fetch(emptyCache{dir: emptyDir})
	if _, ok := err.(*MissingSourceFilesError); !ok {
		t.Fatalf("expected *MissingSourceFilesError, got %T: %v", err, err)
	}
}

func TestPrepareRequirementsFailsMissingEnvironment(t *testing.T) {
	s := newTestStore(t)
	sourceDir := t.TempDir()
	os.WriteFile(filepath.Join(sourceDir, "f"), []byte("x"), 0o644)
	r := baseRecipe(t, sourceDir)
	r.Envs = map[string]string{"HUA_TEST_DEFINITELY_UNSET_VAR": ""}

	fetched, err := NewFresh(r, filepath.Join(t.TempDir(), "result")).Fetch(fakeCache{dir: sourceDir})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer os.RemoveAll(fetched.TempDir)

	_, err = fetched.PrepareRequirements(s, filepath.Join(fetched.TempDir, "shell"), fakeLauncherPath(t))
	if _, ok := err.(*MissingEnvironmentError); !ok {
		t.Fatalf("expected *MissingEnvironmentError, got %T: %v", err, err)
	}
}

func TestBuildFailsMissingTargetDir(t *testing.T) {
	s := newTestStore(t)
	sourceDir := t.TempDir()
	os.WriteFile(filepath.Join(sourceDir, "f"), []byte("x"), 0o644)
	r := baseRecipe(t, sourceDir)
	r.Script = "#!/bin/sh\ntrue\n" // never creates TargetDir

	fetched, err := NewFresh(r, filepath.Join(t.TempDir(), "result")).Fetch(fakeCache{dir: sourceDir})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer os.RemoveAll(fetched.TempDir)

	prepared, err := fetched.PrepareRequirements(s, filepath.Join(fetched.TempDir, "shell"), fakeLauncherPath(t))
	if err != nil {
		t.Fatalf("PrepareRequirements: %v", err)
	}

	_, err = prepared.Build()
	if _, ok := err.(*MissingTargetDirError); !ok {
		t.Fatalf("expected *MissingTargetDirError, got %T: %v", err, err)
	}
}
