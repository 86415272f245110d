package recipe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"hua/internal/generation"
	"hua/internal/id"
	"hua/internal/pkgfs"
	"hua/internal/sandbox"
	"hua/internal/store"
)

const internalBuildPath = "/build"
const internalScriptPath = "/recipe.sh"

// Fetched is a recipe whose source has been staged into a fresh build
// directory inside a leaked temp directory — leaked so the absolute
// target path computed in Build stays valid until Install.
type Fetched struct {
	Fresh   Fresh
	BuildDir string
	TempDir  string
}

// Fetch checks host compatibility and the result-link precondition,
// asks cache for the recipe's source, and copies it into a fresh
// build_dir (spec.md §4.8 step 1).
func (f Fresh) Fetch(cache SourceCache) (Fetched, error) {
	if f.Recipe.Archs&HostArch() == 0 {
		return Fetched{}, &IncompatibleArchitectureError{Recipe: f.Recipe.Name}
	}
	if f.Recipe.Platforms&HostPlatform() == 0 {
		return Fetched{}, &IncompatiblePlatformError{Recipe: f.Recipe.Name}
	}
	if _, err := os.Lstat(f.ResultPath); err == nil {
		return Fetched{}, &ResultLinkExistsError{Path: f.ResultPath}
	} else if !os.IsNotExist(err) {
		return Fetched{}, err
	}

	sourceDir, err := cache.Fetch(f.Recipe.SourceURL)
	if err != nil {
		return Fetched{}, fmt.Errorf("fetching source: %w", err)
	}
	entries, err := os.ReadDir(sourceDir)
	if err != nil || len(entries) == 0 {
		return Fetched{}, &MissingSourceFilesError{URL: f.Recipe.SourceURL}
	}

	tempDir, err := os.MkdirTemp("", "hua-build-*")
	if err != nil {
		return Fetched{}, fmt.Errorf("creating build temp dir: %w", err)
	}
	buildDir := filepath.Join(tempDir, "build")
	if err := copyTree(sourceDir, buildDir); err != nil {
		os.RemoveAll(tempDir)
		return Fetched{}, fmt.Errorf("staging source into build dir: %w", err)
	}

	return Fetched{Fresh: f, BuildDir: buildDir, TempDir: tempDir}, nil
}

// Prepared is a recipe with its build-time requirements resolved into
// a throwaway generation and a sandbox configured to see only that
// generation's component tree plus the build directory.
type Prepared struct {
	Fetched    Fetched
	Builder    *sandbox.JailBuilder
	Generation generation.Generation
}

// PrepareRequirements unions requires and requires_build, resolves and
// builds a shell generation for them under shellBase, and constructs a
// JailBuilder bound to build_dir (read-write) plus the shell's
// component tree (read-only) — spec.md §4.8 step 2. launcher selects
// the external sandbox binary (see internal/sandbox); an empty string
// uses its default.
func (f Fetched) PrepareRequirements(s *store.LocalStore, shellBase, launcher string) (Prepared, error) {
	union := append(append([]pkgfs.Requirement{}, f.Fresh.Recipe.Requires...), f.Fresh.Recipe.RequiresBuild...)

	b, err := generation.NewBuilder(shellGenerationID()).Under(shellBase).Requires(union).Resolve(s)
	if err != nil {
		return Prepared{}, fmt.Errorf("resolving build requirements: %w", err)
	}
	gen, err := b.Build(s)
	if err != nil {
		return Prepared{}, fmt.Errorf("building shell generation: %w", err)
	}

	jb := sandbox.NewJailBuilder(launcher).
		Bind(sandbox.Bind{Source: f.BuildDir, Target: internalBuildPath}).
		Dir(internalBuildPath)

	comps := gen.ComponentPaths()
	jb = jb.Bind(sandbox.Bind{Source: comps.Binary, Target: "/usr/bin", ReadOnly: true}).
		Bind(sandbox.Bind{Source: comps.Library, Target: "/usr/lib", ReadOnly: true}).
		Bind(sandbox.Bind{Source: comps.Config, Target: "/etc", ReadOnly: true}).
		Bind(sandbox.Bind{Source: comps.Share, Target: "/usr/share", ReadOnly: true})

	for k, v := range f.Fresh.Recipe.Envs {
		if v == "" {
			hostVal, ok := os.LookupEnv(k)
			if !ok {
				return Prepared{}, &MissingEnvironmentError{Name: k}
			}
			v = hostVal
		}
		jb = jb.Env(k, v)
	}

	return Prepared{Fetched: f, Builder: jb, Generation: gen}, nil
}

// shellGenerationID is 0: a build-time shell generation is a throwaway
// directory under its own temp base, never chained to a user's
// generation sequence, so there's no monotonic counter to respect.
func shellGenerationID() uint64 { return 0 }

// Built is a recipe whose build script has run to completion inside
// the jail, with TargetDir pointing at the produced output.
type Built struct {
	Prepared  Prepared
	TargetDir string
}

// Build writes the recipe's script to a temp file, bind-mounts it
// read-only into the jail, spawns `sh <script>`, and asserts success
// (spec.md §4.8 step 3).
func (p Prepared) Build() (Built, error) {
	scriptPath := filepath.Join(p.Fetched.TempDir, "recipe.sh")
	if err := os.WriteFile(scriptPath, []byte(p.Fetched.Fresh.Recipe.Script), 0o755); err != nil {
		return Built{}, fmt.Errorf("writing build script: %w", err)
	}

	jail := p.Builder.Bind(sandbox.Bind{Source: scriptPath, Target: internalScriptPath, ReadOnly: true}).Build()
	if err := jail.Run("sh", internalScriptPath); err != nil {
		return Built{}, fmt.Errorf("build script: %w", err)
	}

	targetDir := filepath.Join(p.Fetched.BuildDir, p.Fetched.Fresh.Recipe.TargetDir)
	if info, err := os.Stat(targetDir); err != nil || !info.IsDir() {
		return Built{}, &MissingTargetDirError{Path: targetDir}
	}
	return Built{Prepared: p, TargetDir: targetDir}, nil
}

// Install hashes TargetDir into a fresh Package, inserts it into s,
// creates the `./result` symlink, and records a store.Derivation
// capturing the recipe and its resolved build-time inputs (spec.md
// §4.8 step 4, supplemented per SPEC_FULL.md §3).
func (b Built) Install(s *store.LocalStore) (pkgfs.Package, error) {
	recipe := b.Prepared.Fetched.Fresh.Recipe
	desc := pkgfs.PackageDesc{
		Name:     recipe.Name,
		Desc:     recipe.Description,
		Version:  recipe.Version,
		Licenses: recipe.Licenses,
		Requires: recipe.Requires,
	}

	pid, _, err := pkgfs.HashPackage(b.TargetDir, desc.Name)
	if err != nil {
		return pkgfs.Package{}, fmt.Errorf("hashing build output: %w", err)
	}
	pkg := pkgfs.Package{ID: pid, Desc: desc}

	if _, err := s.Insert(pkg, b.TargetDir); err != nil {
		return pkgfs.Package{}, fmt.Errorf("inserting built package: %w", err)
	}

	resultPath := b.Prepared.Fetched.Fresh.ResultPath
	if err := os.Symlink(s.PackageDir(pid, desc), resultPath); err != nil {
		return pkgfs.Package{}, fmt.Errorf("creating result link: %w", err)
	}

	inputs := append([]id.PackageId(nil), b.Prepared.Generation.Packages...)
	did := derivationID(desc.Name, desc.Version, inputs, pid)
	s.RecordDerivation(did, store.Derivation{
		Recipe:  recipe.Desc(),
		Inputs:  inputs,
		Output:  pid,
		BuiltAt: time.Now().UTC().Format(time.RFC3339),
	})

	if err := s.Flush(); err != nil {
		return pkg, fmt.Errorf("flushing catalog after install: %w", err)
	}
	return pkg, nil
}

// derivationID derives a DerivationId from the recipe identity and its
// resolved build inputs, so rebuilding the same recipe against the
// same inputs yields the same record instead of accumulating
// duplicates on every Install.
func derivationID(name, version string, inputs []id.PackageId, output id.PackageId) id.DerivationId {
	parts := [][]byte{[]byte(name), []byte(version)}
	for _, in := range inputs {
		raw := in.Raw()
		parts = append(parts, raw[:])
	}
	outRaw := output.Raw()
	parts = append(parts, outRaw[:])
	return id.DerivationId(id.Hash(parts...))
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}
		if d.Type()&os.ModeSymlink != 0 {
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(target, destPath)
		}
		return copyFile(path, destPath)
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
