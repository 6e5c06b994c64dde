package sourceenv

import "github.com/pyscope-dev/pyscope/internal/depgraph"

// FileEventKind classifies a filesystem notification fed into Update.
type FileEventKind int

const (
	Unknown FileEventKind = iota
	CreatedOrChanged
	Deleted
)

// FileEvent is one filesystem notification, typically produced by
// internal/filetracker and fed straight into Environment.Update.
type FileEvent struct {
	Path ModulePath
	Kind FileEventKind
}

// UpdateResult reports the consequences of applying a batch of FileEvents.
type UpdateResult struct {
	InvalidatedModules    []string
	TriggeredDependencies []depgraph.Registered
	SyntaxErrors          []*ParseResult
}
