package world

import "strings"

// UpdateSet is an ordered list of staged writes. Order matters: tick phases
// may stage competing writes for the same path, and the conflict sanitiser
// needs to see all of them before the commit collapses the set to a map.
type UpdateSet struct {
	entries []Update
}

// Update is one staged write; a nil Value deletes the subtree.
type Update struct {
	Path  string
	Value any
}

func NewUpdateSet() *UpdateSet { return &UpdateSet{} }

func (u *UpdateSet) Set(path string, value any) {
	u.entries = append(u.entries, Update{Path: path, Value: value})
}

func (u *UpdateSet) Delete(path string) {
	u.entries = append(u.entries, Update{Path: path, Value: nil})
}

func (u *UpdateSet) Len() int { return len(u.entries) }

// Entries exposes the staged writes in stage order.
func (u *UpdateSet) Entries() []Update { return u.entries }

// Remove drops every staged write whose path matches keep==false.
func (u *UpdateSet) Filter(keep func(Update) bool) {
	out := u.entries[:0]
	for _, e := range u.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	u.entries = out
}

// Map collapses the set for commit. The last write to a path wins, and a
// write to a path supersedes everything staged beneath it earlier: a group
// delete staged after that group's field updates must not leave fragments
// behind once the map loses the stage order.
func (u *UpdateSet) Map() map[string]any {
	out := make(map[string]any, len(u.entries))
	for _, e := range u.entries {
		prefix := e.Path + "/"
		for k := range out {
			if strings.HasPrefix(k, prefix) {
				delete(out, k)
			}
		}
		out[e.Path] = e.Value
	}
	return out
}
