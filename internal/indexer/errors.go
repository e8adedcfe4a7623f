package indexer

import "errors"

// ErrIndexingInProgress is returned by Run when another pass for the same
// project already holds the lock.
var ErrIndexingInProgress = errors.New("indexing already in progress for this project")
