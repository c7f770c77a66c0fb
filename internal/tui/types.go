package tui

import (
	"covergrid/internal/catalog"
	"covergrid/internal/export"
	"covergrid/internal/history"
)

type stage int

const (
	stageBoard stage = iota
	stageTitle
)

const heroTagline = "Build a 3×3 collage from catalog searches."

const (
	inputWidth       = 26
	cellWidth        = 30
	maxDropdownRows  = 6
	recentShown      = 3
	titlePlaceholder = "Name this collage…"
)

// exportResultMsg reports the outcome of one export job.
type exportResultMsg struct {
	result export.Result
	record history.Record
	err    error
}

// quickFillMsg carries the outcome of a single-result lookup issued by Enter
// on a closed panel. The query it was issued for guards against the slot text
// having changed while the lookup was in flight.
type quickFillMsg struct {
	slot      int
	query     string
	candidate catalog.Candidate
	err       error
}
