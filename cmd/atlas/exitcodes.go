package main

import (
	"errors"

	"github.com/matsen/atlas/internal/config"
	"github.com/matsen/atlas/internal/graph"
	"github.com/matsen/atlas/internal/interchange"
	"github.com/matsen/atlas/internal/storage"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no repository, invalid config)
	ExitDataError   = 3 // Data error (malformed input, validation failure, unreadable snapshot)
	ExitNotFound    = 4 // Node or edge not found
	ExitDuplicate   = 5 // Node name already taken
)

// exitCodeFor maps domain errors to exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, graph.ErrNodeNotFound), errors.Is(err, graph.ErrEdgeNotFound):
		return ExitNotFound
	case errors.Is(err, graph.ErrDuplicateNode):
		return ExitDuplicate
	case errors.Is(err, graph.ErrEmptyName),
		errors.Is(err, graph.ErrNegativeLevel),
		errors.Is(err, graph.ErrUnknownNodeType),
		errors.Is(err, interchange.ErrMalformedJSON),
		errors.Is(err, interchange.ErrNoValidNodes),
		errors.Is(err, storage.ErrCorruptSnapshot):
		return ExitDataError
	case errors.Is(err, config.ErrNotRepository),
		errors.Is(err, config.ErrAtlasPathNotExist),
		errors.Is(err, storage.ErrNoSnapshot):
		return ExitConfigError
	default:
		return ExitError
	}
}

// exitWithErr reports err with the exit code for its kind.
func exitWithErr(err error) {
	exitWithError(exitCodeFor(err), "%v", err)
}
