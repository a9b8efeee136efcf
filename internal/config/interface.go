package config

import "context"

// Loader is the interface for a source of logic definitions.
type Loader interface {
	// Load enumerates the definitions exposed by the source. It runs once, at
	// startup, before any route accepts traffic.
	Load(ctx context.Context) ([]*LogicDefinition, error)

	// Kind reports which discovery mode the loader implements.
	Kind() SourceKind
}
