package catalog

import (
	"context"
	"fmt"
)

// Kind selects which catalog a client searches.
type Kind string

const (
	KindMovies Kind = "movies"
	KindAlbums Kind = "albums"
	KindBooks  Kind = "books"
)

// Kinds lists the supported catalogs in cycling order.
var Kinds = []Kind{KindMovies, KindAlbums, KindBooks}

// ParseKind validates a kind string from config or flags.
func ParseKind(value string) (Kind, error) {
	for _, kind := range Kinds {
		if string(kind) == value {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown catalog kind %q (want movies, albums, or books)", value)
}

// Candidate is a normalized search result. It is produced by a Client and
// never mutated afterwards.
type Candidate struct {
	ID       string
	Title    string
	ImageURL string
	Year     int
	Rating   float64
	Artist   string
	Authors  []string
}

// DisplayTitle renders the candidate the way the dropdown and a committed
// slot show it, with the release year appended when known.
func (c Candidate) DisplayTitle() string {
	if c.Year > 0 {
		return fmt.Sprintf("%s (%d)", c.Title, c.Year)
	}
	return c.Title
}

// Client searches a single catalog. Implementations must honor context
// cancellation so a superseded request can be abandoned, and must return an
// empty slice (not an error) when the upstream source has zero matches.
type Client interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// Looker is implemented by clients that support the endpoint's single-result
// mode. The TUI uses it to lock a slot straight from typed text, skipping the
// candidate panel.
type Looker interface {
	Lookup(ctx context.Context, query string) (Candidate, error)
}
