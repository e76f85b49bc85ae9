package store

import (
	"encoding/json"
	"fmt"
)

// The tree is nested map[string]any with JSON-shaped leaves. Every value is
// normalised through JSON on the way in so reads decode cleanly into typed
// records regardless of what the writer staged (struct, map, slice).

func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: unencodable value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}

func getPath(root map[string]any, parts []string) any {
	cur := any(root)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[p]
		if !ok {
			return nil
		}
	}
	return cur
}

// setPath writes value at parts, materialising intermediate maps. A non-map
// node on the way is replaced; last writer wins, as with the update fan-out.
func setPath(root map[string]any, parts []string, value any) {
	cur := root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = value
}

// deletePath removes the subtree at parts. Emptied parents are kept: a tile
// that loses its last group stays addressable.
func deletePath(root map[string]any, parts []string) {
	cur := root
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, parts[len(parts)-1])
}
