package models

import "errors"

var (
	// ErrInvalidInput indicates a missing or malformed query.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceNotFound indicates the build source file does not exist.
	ErrSourceNotFound = errors.New("source file not found")

	// ErrNoChunks indicates the build source produced no content chunks.
	ErrNoChunks = errors.New("no content chunks to index")

	// ErrNotReady indicates the vector index has not been built or loaded.
	ErrNotReady = errors.New("index not ready: build it first")

	// ErrBuildInProgress indicates another process holds the build lock.
	ErrBuildInProgress = errors.New("index build already in progress")

	// ErrEmbedding indicates every embedding model failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates every generation model failed.
	ErrGeneration = errors.New("generation failed")

	// ErrSnapshotMissing indicates one or both persisted index artifacts are absent.
	ErrSnapshotMissing = errors.New("index snapshot missing")

	// ErrSnapshotCorrupt indicates the persisted artifacts could not be parsed
	// or do not agree with each other.
	ErrSnapshotCorrupt = errors.New("index snapshot corrupt")
)
