package generation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"hua/internal/pkgfs"
	"hua/internal/store"
)

const stateFileName = "generations.db"

// managerState is the persisted shape of a Manager, written to
// generations.db beneath the user's generations directory. Unlike
// catalog's wireCatalog, no type here is an interface, so msgpack can
// round-trip it directly.
type managerState struct {
	Counter     uint64
	Current     uint64
	Generations map[uint64]Generation
	GlobalLinks []string
}

// Manager is the GenerationManager of spec.md §4.6: the monotonically
// increasing sequence of a single user's generations, plus the record
// of what's currently linked into the global component tree.
type Manager struct {
	dir         string // <user>/generations
	counter     uint64
	current     uint64
	generations map[uint64]Generation
	globalLinks map[string]struct{}
	store       *store.LocalStore
}

// InitManager creates <userPath>/generations/ and an empty generation
// 0, with current=0, counter=0 (spec.md §4.6 "init").
func InitManager(userPath string, s *store.LocalStore) (*Manager, error) {
	dir := filepath.Join(userPath, "generations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating generations directory: %w", err)
	}

	b, err := NewBuilder(0).Under(dir).Requires(nil).Resolve(s)
	if err != nil {
		return nil, err
	}
	gen0, err := b.Build(s)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		dir:         dir,
		counter:     0,
		current:     0,
		generations: map[uint64]Generation{0: gen0},
		globalLinks: make(map[string]struct{}),
		store:       s,
	}
	if err := m.Flush(); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenManager loads a previously-initialized user's generation state.
func OpenManager(userPath string, s *store.LocalStore) (*Manager, error) {
	dir := filepath.Join(userPath, "generations")
	path := filepath.Join(dir, stateFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading generation state: %w", err)
	}
	var st managerState
	if err := msgpack.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decoding generation state: %w", err)
	}
	links := make(map[string]struct{}, len(st.GlobalLinks))
	for _, p := range st.GlobalLinks {
		links[p] = struct{}{}
	}
	return &Manager{
		dir:         dir,
		counter:     st.Counter,
		current:     st.Current,
		generations: st.Generations,
		globalLinks: links,
		store:       s,
	}, nil
}

// Flush persists the manager's state atomically.
func (m *Manager) Flush() error {
	links := make([]string, 0, len(m.globalLinks))
	for p := range m.globalLinks {
		links = append(links, p)
	}
	st := managerState{
		Counter:     m.counter,
		Current:     m.current,
		Generations: m.generations,
		GlobalLinks: links,
	}
	data, err := msgpack.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding generation state: %w", err)
	}
	path := filepath.Join(m.dir, stateFileName)
	tmp, err := os.CreateTemp(m.dir, ".generations.db.tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}

// Current returns the currently-selected generation.
func (m *Manager) Current() Generation { return m.generations[m.current] }

// Get returns a generation by id.
func (m *Manager) Get(genID uint64) (Generation, bool) {
	g, ok := m.generations[genID]
	return g, ok
}

// IDs returns every generation id, sorted.
func (m *Manager) IDs() []uint64 {
	ids := make([]uint64, 0, len(m.generations))
	for id := range m.generations {
		ids = append(ids, id)
	}
	sortUint64s(ids)
	return ids
}

// InsertRequirement adds req to the current generation's requirement
// set, building and selecting a new generation. Returns false (no-op)
// if req is already present.
func (m *Manager) InsertRequirement(req pkgfs.Requirement, matcher store.Matcher) (bool, error) {
	cur := m.Current()
	for _, r := range cur.Requirements {
		if r.Equal(req) {
			return false, nil
		}
	}
	newReqs := append(append([]pkgfs.Requirement{}, cur.Requirements...), req)
	return true, m.commitNewGeneration(newReqs, matcher)
}

// RemoveRequirement drops req from the current generation's
// requirement set. Returns false (no-op) if req is not present.
func (m *Manager) RemoveRequirement(req pkgfs.Requirement, matcher store.Matcher) (bool, error) {
	cur := m.Current()
	newReqs := make([]pkgfs.Requirement, 0, len(cur.Requirements))
	removed := false
	for _, r := range cur.Requirements {
		if r.Equal(req) {
			removed = true
			continue
		}
		newReqs = append(newReqs, r)
	}
	if !removed {
		return false, nil
	}
	return true, m.commitNewGeneration(newReqs, matcher)
}

func (m *Manager) commitNewGeneration(reqs []pkgfs.Requirement, matcher store.Matcher) error {
	newID := m.counter + 1
	if _, exists := m.generations[newID]; exists {
		return &AlreadyPresentError{ID: newID}
	}
	b, err := NewBuilder(newID).Under(m.dir).Requires(reqs).Resolve(matcher)
	if err != nil {
		return err
	}
	gen, err := b.Build(m.store)
	if err != nil {
		return err
	}
	m.generations[newID] = gen
	m.counter = newID
	m.current = newID
	return m.Flush()
}

// SwitchTo makes genID the current generation and re-links the global
// component tree, per spec.md §4.6.
func (m *Manager) SwitchTo(genID uint64, globalPaths store.ComponentPaths) error {
	if _, ok := m.generations[genID]; !ok {
		return &NotFoundError{ID: genID}
	}
	m.current = genID
	if err := m.SwitchGlobalLinks(globalPaths); err != nil {
		return err
	}
	return m.Flush()
}

// RemoveGeneration deletes a non-current generation's record and
// on-disk directory. Rejects the current generation with *InUseError.
func (m *Manager) RemoveGeneration(genID uint64) (bool, error) {
	if genID == m.current {
		return false, &InUseError{ID: genID}
	}
	gen, ok := m.generations[genID]
	if !ok {
		return false, nil
	}
	if err := os.RemoveAll(gen.Dir); err != nil {
		return false, fmt.Errorf("removing generation directory: %w", err)
	}
	delete(m.generations, genID)
	return true, m.Flush()
}

// SwitchGlobalLinks unlinks everything globalLinks currently records,
// then links the current generation's component tree into globalPaths,
// recording the newly-created paths. globalLinks is the authoritative
// record consulted first, so a crash mid-switch leaves enough state on
// disk (once Flush has run) for the next SwitchGlobalLinks to finish
// unlinking stale paths rather than leaking them (spec.md §4.6).
func (m *Manager) SwitchGlobalLinks(globalPaths store.ComponentPaths) error {
	for p := range m.globalLinks {
		os.Remove(p)
	}
	m.globalLinks = make(map[string]struct{})

	created, err := linkComponentTree(m.Current().ComponentPaths(), globalPaths)
	if err != nil {
		return err
	}
	for _, p := range created {
		m.globalLinks[p] = struct{}{}
	}
	return nil
}

func linkComponentTree(src, dst store.ComponentPaths) ([]string, error) {
	var created []string
	pairs := [][2]string{
		{src.Binary, dst.Binary},
		{src.Library, dst.Library},
		{src.Config, dst.Config},
		{src.Share, dst.Share},
	}
	for _, pair := range pairs {
		srcDir, dstDir := pair[0], pair[1]
		entries, err := os.ReadDir(srcDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return created, err
		}
		if len(entries) == 0 {
			continue
		}
		if err := os.MkdirAll(dstDir, 0o755); err != nil {
			return created, err
		}
		for _, e := range entries {
			linkPath := filepath.Join(dstDir, e.Name())
			target := filepath.Join(srcDir, e.Name())
			os.Remove(linkPath)
			if err := os.Symlink(target, linkPath); err != nil {
				return created, fmt.Errorf("linking %s: %w", linkPath, err)
			}
			created = append(created, linkPath)
		}
	}
	return created, nil
}

func sortUint64s(ids []uint64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
