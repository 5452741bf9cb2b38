package graph

import "errors"

var (
	// ErrStaleIdentity means a node's identity key no longer resolves to a
	// live source entity.
	ErrStaleIdentity = errors.New("stale identity")

	// ErrCycleRisk means a reparent would make an object its own ancestor.
	ErrCycleRisk = errors.New("reparent would create a cycle")

	// ErrRebuildInProgress means the graph guard is held by another operation.
	ErrRebuildInProgress = errors.New("rebuild in progress")

	// ErrStaleSnapshot means a persisted graph no longer matches the source
	// model it was built from.
	ErrStaleSnapshot = errors.New("snapshot does not match the source model")

	ErrNotDuplicable = errors.New("node is not duplicable")
	ErrNodeNotFound  = errors.New("node not found")
	ErrInvalidLink   = errors.New("invalid link")
)
