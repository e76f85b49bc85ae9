// Package store is the persistence seam of the engine: a hierarchical KV tree
// addressed by slash-separated paths, with an atomic multi-path commit and an
// optimistic transaction primitive. Commands and the tick stage a path-keyed
// update map and commit it once; readers never observe a partial write.
package store

import (
	"errors"
	"strings"
)

// ErrAbort is returned from a Transact callback to abandon the transaction
// without writing.
var ErrAbort = errors.New("store: transaction aborted")

// Store is a hierarchical KV with snapshot reads and atomic fan-out writes.
type Store interface {
	// Read returns a snapshot of the subtree at path, or nil if absent.
	Read(path string) (any, error)

	// Commit applies every (path, value) pair or none. A nil value deletes
	// the subtree at that path.
	Commit(updates map[string]any) error

	// Transact reads the subtree at root, passes it to fn, and writes the
	// returned value back. fn returning ErrAbort leaves the tree untouched.
	Transact(root string, fn func(current any) (any, error)) error
}

func splitPath(path string) ([]string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, errors.New("store: empty path")
	}
	parts := strings.Split(path, "/")
	for _, p := range parts {
		if p == "" {
			return nil, errors.New("store: empty path segment in " + path)
		}
	}
	return parts, nil
}

// docRoot returns the top-level document a path belongs to, e.g.
// "worlds/w1/chunks/0,0" -> "worlds/w1". Persistence batches writes per
// document, mirroring how commands and ticks scope their updates.
func docRoot(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "/" + parts[1]
}
