package recipe

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hua/internal/pkgfs"
)

// yamlRequirement is the on-disk shape of a Requires/RequiresBuild
// entry — Requirement itself has no yaml tags since pkgfs stays free
// of any one serialization format's concerns.
type yamlRequirement struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

func (r yamlRequirement) toRequirement() pkgfs.Requirement {
	return pkgfs.Requirement{Name: r.Name, VersionReq: r.Version}
}

// yamlRecipe is the file format a recipe is authored in: the same
// fields Recipe carries, with Archs/Platforms spelled as name lists
// instead of a caller-assembled bitset.
type yamlRecipe struct {
	Name          string            `yaml:"name"`
	Version       string            `yaml:"version"`
	Description   string            `yaml:"description"`
	Archs         []string          `yaml:"archs"`
	Platforms     []string          `yaml:"platforms"`
	SourceURL     string            `yaml:"source_url"`
	Licenses      []string          `yaml:"licenses"`
	Requires      []yamlRequirement `yaml:"requires"`
	RequiresBuild []yamlRequirement `yaml:"requires_build"`
	Script        string            `yaml:"script"`
	Envs          map[string]string `yaml:"envs"`
	TargetDir     string            `yaml:"target_dir"`
}

func archBit(name string) (uint64, error) {
	switch name {
	case "amd64":
		return ArchAMD64, nil
	case "arm64":
		return ArchARM64, nil
	default:
		return 0, fmt.Errorf("unknown architecture %q", name)
	}
}

func platformBit(name string) (uint64, error) {
	switch name {
	case "linux":
		return PlatformLinux, nil
	case "darwin":
		return PlatformDarwin, nil
	default:
		return 0, fmt.Errorf("unknown platform %q", name)
	}
}

func requirementsFrom(rs []yamlRequirement) []pkgfs.Requirement {
	if rs == nil {
		return nil
	}
	out := make([]pkgfs.Requirement, len(rs))
	for i, r := range rs {
		out[i] = r.toRequirement()
	}
	return out
}

// LoadFromYAML reads a recipe authored as a YAML file — the format a
// recipe collection is expected to store recipes in on disk, the
// build pipeline itself only ever consumes the assembled Recipe
// struct — and assembles it into a Recipe ready for NewFresh.
func LoadFromYAML(path string) (Recipe, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Recipe{}, fmt.Errorf("reading recipe file: %w", err)
	}

	var yr yamlRecipe
	if err := yaml.Unmarshal(raw, &yr); err != nil {
		return Recipe{}, fmt.Errorf("parsing recipe file: %w", err)
	}

	var archs uint64
	for _, a := range yr.Archs {
		bit, err := archBit(a)
		if err != nil {
			return Recipe{}, err
		}
		archs |= bit
	}
	var platforms uint64
	for _, p := range yr.Platforms {
		bit, err := platformBit(p)
		if err != nil {
			return Recipe{}, err
		}
		platforms |= bit
	}

	return Recipe{
		Name:          yr.Name,
		Version:       yr.Version,
		Description:   yr.Description,
		Archs:         archs,
		Platforms:     platforms,
		SourceURL:     yr.SourceURL,
		Licenses:      yr.Licenses,
		Requires:      requirementsFrom(yr.Requires),
		RequiresBuild: requirementsFrom(yr.RequiresBuild),
		Script:        yr.Script,
		Envs:          yr.Envs,
		TargetDir:     yr.TargetDir,
	}, nil
}
