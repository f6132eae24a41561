// models/placement.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SkipIndex is the stored placement of a player who spent a skip token.
const SkipIndex = -1

// Placement is a player's answer for the current round: absent (JSON null),
// skipped (-1) or a gap index in the player's timeline.
type Placement struct {
	Index int
	Valid bool
}

// NoPlacement is the cleared state at the start of a round.
func NoPlacement() Placement { return Placement{} }

// PlacedAt returns a placement in gap i.
func PlacedAt(i int) Placement { return Placement{Index: i, Valid: true} }

// Skipped returns the token-skip marker.
func Skipped() Placement { return Placement{Index: SkipIndex, Valid: true} }

func (p Placement) IsSkip() bool { return p.Valid && p.Index == SkipIndex }
func (p Placement) IsNone() bool { return !p.Valid }

func (p Placement) String() string {
	switch {
	case !p.Valid:
		return "none"
	case p.Index == SkipIndex:
		return "skip"
	default:
		return fmt.Sprintf("gap %d", p.Index)
	}
}

func (p Placement) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Index)
}

func (p *Placement) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = Placement{}
		return nil
	}
	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("placement: %w", err)
	}
	if i < SkipIndex {
		return fmt.Errorf("placement: invalid index %d", i)
	}
	*p = Placement{Index: i, Valid: true}
	return nil
}
