package services

import "wayfarer/pkg/traveltypes"

// AppendTurn returns a new turn slice with turn as the last element. The
// input slice is never modified or aliased, so earlier snapshots stay valid.
func AppendTurn(turns []traveltypes.Turn, turn traveltypes.Turn) []traveltypes.Turn {
	out := make([]traveltypes.Turn, len(turns), len(turns)+1)
	copy(out, turns)
	return append(out, turn)
}
