package store

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/gombiful/models"
)

// Apply returns a copy of doc with patch applied, using the same semantics
// as the database adapters.
func Apply(doc *models.GameSession, patch Patch) (*models.GameSession, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("store: encode document: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("store: decode document: %w", err)
	}

	for _, op := range patch {
		if len(op.Path) == 0 {
			return nil, fmt.Errorf("store: empty patch path")
		}
		parent, ok := walk(tree, op.Path[:len(op.Path)-1])
		if !ok {
			continue
		}
		key := op.Path[len(op.Path)-1]
		if op.Delete {
			delete(parent, key)
			continue
		}
		v, err := plain(op.Value)
		if err != nil {
			return nil, fmt.Errorf("store: value at %s: %w", op.Path, err)
		}
		parent[key] = v
	}

	raw, err = json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("store: encode patched document: %w", err)
	}
	out := new(models.GameSession)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("store: patched document: %w", err)
	}
	out.Normalize()
	return out, nil
}

func walk(tree map[string]any, path Path) (map[string]any, bool) {
	cur := tree
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// plain converts a Go value into the generic JSON form.
func plain(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode renders each op value as JSON for adapters that ship patches
// over the wire.
func (op Op) Encode() ([]byte, error) {
	return json.Marshal(op.Value)
}
