package store

// ComponentPaths is the four-way split a package's non-tree objects
// land in when linked into a generation or the global link tree,
// per spec.md §4.3 / §4.5.
type ComponentPaths struct {
	Binary  string
	Library string
	Config  string
	Share   string
}
