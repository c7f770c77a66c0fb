package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"covergrid/internal/catalog"
)

func TestAppendAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exports.json")

	first := Record{
		Title:      "Best of 2024",
		Path:       "/tmp/Best_of_2024.png",
		Format:     "png",
		Kind:       catalog.KindMovies,
		Slots:      9,
		ExportedAt: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC),
	}
	if err := Append(path, first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := Append(path, Record{Title: "Albums", Kind: catalog.KindAlbums, Format: "jpeg"}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	records, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "Best of 2024" || records[0].Kind != catalog.KindMovies {
		t.Fatalf("first record mangled: %#v", records[0])
	}
	if !records[0].ExportedAt.Equal(first.ExportedAt) {
		t.Fatalf("timestamp not preserved: %v", records[0].ExportedAt)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exports.json")
	for _, title := range []string{"one", "two", "three"} {
		if err := Append(path, Record{Title: title}); err != nil {
			t.Fatalf("append %q: %v", title, err)
		}
	}

	recent := Recent(path, 2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Title != "three" || recent[1].Title != "two" {
		t.Fatalf("expected newest first, got %#v", recent)
	}

	if got := Recent(filepath.Join(t.TempDir(), "absent.json"), 5); got != nil {
		t.Fatalf("missing file should yield nil, got %#v", got)
	}
}
