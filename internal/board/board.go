// Package board holds the collage's 9-slot selection state. The TUI model is
// its sole writer; search controllers report picks through a callback and
// never touch it directly.
package board

import "covergrid/internal/catalog"

// Slots is the fixed number of collage positions.
const Slots = 9

// Board records the last committed candidate per slot, decoupled from the raw
// input text so a manual edit invalidates a stale pick without losing what
// was typed.
type Board struct {
	kind       catalog.Kind
	selections [Slots]*catalog.Candidate
}

// New returns an empty board for the given catalog kind.
func New(kind catalog.Kind) *Board {
	return &Board{kind: kind}
}

// Kind reports which catalog the board's selections came from.
func (b *Board) Kind() catalog.Kind { return b.kind }

// Set commits a candidate to a slot. Out-of-range slots are ignored.
func (b *Board) Set(slot int, candidate catalog.Candidate) {
	if slot < 0 || slot >= Slots {
		return
	}
	c := candidate
	b.selections[slot] = &c
}

// Clear empties a slot.
func (b *Board) Clear(slot int) {
	if slot < 0 || slot >= Slots {
		return
	}
	b.selections[slot] = nil
}

// Get returns the slot's selection, or nil.
func (b *Board) Get(slot int) *catalog.Candidate {
	if slot < 0 || slot >= Slots {
		return nil
	}
	return b.selections[slot]
}

// Invalidate drops a slot's selection when the slot's raw input text no
// longer matches the selected title. This is the invariant that keeps a
// half-edited input from exporting the previous pick.
func (b *Board) Invalidate(slot int, rawText string) {
	if slot < 0 || slot >= Slots {
		return
	}
	selection := b.selections[slot]
	if selection == nil {
		return
	}
	if rawText != selection.Title && rawText != selection.DisplayTitle() {
		b.selections[slot] = nil
	}
}

// Filled counts slots holding a selection.
func (b *Board) Filled() int {
	count := 0
	for _, selection := range b.selections {
		if selection != nil {
			count++
		}
	}
	return count
}

// Reset empties every slot and switches the board to a new catalog kind.
func (b *Board) Reset(kind catalog.Kind) {
	b.kind = kind
	for i := range b.selections {
		b.selections[i] = nil
	}
}

// Selections returns the slot array in row-major order. Entries may be nil.
func (b *Board) Selections() [Slots]*catalog.Candidate {
	return b.selections
}
