package domain

import "errors"

var (
	// ErrLoaderUnavailable marks a vault backend that could not be reached.
	ErrLoaderUnavailable = errors.New("vault backend unavailable")

	// ErrEmptyInput marks a run that produced zero documents or chunks.
	// It is a recognized no-op state, not a failure.
	ErrEmptyInput = errors.New("no input documents")

	// ErrProviderFailure marks an embedding or generation backend error,
	// including timeouts.
	ErrProviderFailure = errors.New("provider request failed")

	// ErrStoreUnavailable marks a vector index whose backing storage
	// cannot be opened or reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrInvalidArgument marks a caller-side misuse of the vector index.
	ErrInvalidArgument = errors.New("invalid argument")
)
