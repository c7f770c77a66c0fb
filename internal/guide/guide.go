package guide

import (
	"fmt"

	"covergrid/internal/catalog"
)

// Step represents one actionable recommendation in the collage workflow.
type Step struct {
	Title       string
	Description string
}

// Build returns the onboarding checklist shown while the board is empty,
// tailored to the active catalog.
func Build(kind catalog.Kind) []Step {
	subject := subjectFor(kind)

	return []Step{
		{
			Title:       "1 – Search",
			Description: fmt.Sprintf("Start typing a %s title in the highlighted slot; matches from the catalog appear after a short pause.", subject),
		},
		{
			Title:       "2 – Pick",
			Description: "Move through the matches with ↑ and ↓ (the list wraps around) and press Enter to lock one into the slot. Esc dismisses the list without losing what you typed.",
		},
		{
			Title:       "3 – Fill the grid",
			Description: "Tab and Shift+Tab walk the nine slots; ↑/↓ jump a row when no match list is open. Ctrl+X empties a slot, Ctrl+T switches catalog.",
		},
		{
			Title:       "4 – Export",
			Description: fmt.Sprintf("Press Ctrl+E, give the collage a name, and a 3×3 %s grid lands in your export directory as an image file.", subject),
		},
	}
}

func subjectFor(kind catalog.Kind) string {
	switch kind {
	case catalog.KindAlbums:
		return "album"
	case catalog.KindBooks:
		return "book"
	default:
		return "movie"
	}
}
