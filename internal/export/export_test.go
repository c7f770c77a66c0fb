package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func testLayout() Layout {
	return Layout{Cols: 3, Rows: 3, CellSize: 40, Padding: 4, Banner: 10, Scale: 2}
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestExportProducesPNG(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())

	cover := pngBytes(t, 20, 30, color.RGBA{R: 200, A: 255})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/covers/good.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(cover)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	outDir := t.TempDir()
	pipeline := NewPipeline(outDir, testLayout(), server.Client())

	result, err := pipeline.Export(context.Background(), Request{
		Title: "2024: My Favorites!!",
		Tiles: []Tile{
			{Label: "Inception", ImageURL: server.URL + "/covers/good.png"},
			{Label: "Broken", ImageURL: server.URL + "/covers/missing.png"},
			{Label: "Empty"},
		},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.Format != "png" {
		t.Fatalf("format = %q, want png", result.Format)
	}
	if filepath.Base(result.Path) != "2024_My_Favorites.png" {
		t.Fatalf("unexpected artifact name %q", result.Path)
	}

	file, err := os.Open(result.Path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("artifact is not a png: %v", err)
	}
	wantW, wantH := testLayout().PixelSize()
	if img.Bounds().Dx() != wantW || img.Bounds().Dy() != wantH {
		t.Fatalf("artifact is %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), wantW, wantH)
	}
}

func TestExportSurvivesAllCoversFailing(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	pipeline := NewPipeline(t.TempDir(), testLayout(), server.Client())
	result, err := pipeline.Export(context.Background(), Request{
		Title: "all broken",
		Tiles: []Tile{
			{Label: "a", ImageURL: server.URL + "/a.png"},
			{Label: "b", ImageURL: server.URL + "/b.png"},
		},
	})
	if err != nil {
		t.Fatalf("per-image failures must not abort the export: %v", err)
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}

func TestExportFallsBackToJPEGWhenPNGDeliveryFails(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())

	outDir := t.TempDir()
	// Occupy the PNG target with a directory so the rename cannot land.
	if err := os.Mkdir(filepath.Join(outDir, "blocked.png"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	pipeline := NewPipeline(outDir, testLayout(), nil)
	result, err := pipeline.Export(context.Background(), Request{
		Title: "blocked",
		Tiles: []Tile{{Label: "a"}},
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.Format != "jpeg" {
		t.Fatalf("format = %q, want jpeg", result.Format)
	}
	if filepath.Base(result.Path) != "blocked.jpg" {
		t.Fatalf("unexpected artifact name %q", result.Path)
	}

	file, err := os.Open(result.Path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	defer file.Close()
	if _, err := jpeg.Decode(file); err != nil {
		t.Fatalf("artifact is not a jpeg: %v", err)
	}
}

func TestExportErrorsWhenBothEncodingsBlocked(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())

	outDir := t.TempDir()
	for _, name := range []string{"blocked.png", "blocked.jpg"} {
		if err := os.Mkdir(filepath.Join(outDir, name), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
	}

	pipeline := NewPipeline(outDir, testLayout(), nil)
	_, err := pipeline.Export(context.Background(), Request{
		Title: "blocked",
		Tiles: []Tile{{Label: "a"}},
	})
	if err == nil {
		t.Fatal("both encodings failing must surface an error")
	}
}

func TestExportFailsFastOnEmptyBoard(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())

	pipeline := NewPipeline(t.TempDir(), testLayout(), nil)
	if _, err := pipeline.Export(context.Background(), Request{Title: "x"}); err != ErrNoTiles {
		t.Fatalf("err = %v, want ErrNoTiles", err)
	}
}

func TestExportFailsFastOnZeroSizeLayout(t *testing.T) {
	t.Setenv(cacheEnvVar, t.TempDir())

	pipeline := NewPipeline(t.TempDir(), Layout{}, nil)
	_, err := pipeline.Export(context.Background(), Request{
		Title: "x",
		Tiles: []Tile{{Label: "a"}},
	})
	if err != ErrZeroSize {
		t.Fatalf("err = %v, want ErrZeroSize", err)
	}
}

func TestFitRectPreservesAspect(t *testing.T) {
	t.Parallel()

	cell := image.Rect(100, 100, 200, 200)

	tall := fitRect(image.Rect(0, 0, 50, 100), cell)
	if tall.Dy() != 100 || tall.Dx() != 50 {
		t.Fatalf("tall cover fit = %v", tall)
	}
	if tall.Min.X != 125 {
		t.Fatalf("tall cover should center horizontally, got %v", tall)
	}

	wide := fitRect(image.Rect(0, 0, 100, 50), cell)
	if wide.Dx() != 100 || wide.Dy() != 50 {
		t.Fatalf("wide cover fit = %v", wide)
	}
	if wide.Min.Y != 125 {
		t.Fatalf("wide cover should center vertically, got %v", wide)
	}

	degenerate := fitRect(image.Rect(0, 0, 0, 0), cell)
	if degenerate != cell {
		t.Fatalf("degenerate source should fill the cell, got %v", degenerate)
	}
}

func TestLayoutGeometry(t *testing.T) {
	t.Parallel()

	layout := testLayout()
	w, h := layout.PixelSize()
	if w != 2*(3*40+4*4) {
		t.Fatalf("width = %d", w)
	}
	if h != 2*(3*40+4*4+10) {
		t.Fatalf("height = %d", h)
	}

	first := layout.CellRect(0)
	if first.Min.X != 2*4 || first.Min.Y != 2*(10+4) {
		t.Fatalf("first cell origin = %v", first.Min)
	}
	last := layout.CellRect(8)
	if last.Max.X > w || last.Max.Y > h {
		t.Fatalf("last cell %v overflows %dx%d canvas", last, w, h)
	}
	if first.Dx() != 80 || first.Dy() != 80 {
		t.Fatalf("cell size = %dx%d, want 80x80", first.Dx(), first.Dy())
	}
}
