package api

import "errors"

// Shared error taxonomy. Layers add context with fmt.Errorf("...: %w", err);
// callers discriminate with errors.Is.
var (
	// ErrNotADirectory reports a directory argument that is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotRegistered reports an operation on a container name that was
	// never registered.
	ErrNotRegistered = errors.New("container not registered")

	// ErrArtifactUnavailable reports an index artifact that is missing or
	// corrupt at load time.
	ErrArtifactUnavailable = errors.New("index artifact unavailable")

	// ErrNotFound reports a read ID that is not present in a container's
	// index.
	ErrNotFound = errors.New("read id not found")

	// ErrInvalidArguments reports a malformed planner call.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrCorruptContainer reports a container file whose header or record
	// stream cannot be parsed.
	ErrCorruptContainer = errors.New("corrupt container file")
)
