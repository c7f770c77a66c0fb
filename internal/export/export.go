// Package export converts the collage board into a raster image file. The
// pipeline normalizes cover fetches, waits for every image to settle with a
// per-image placeholder fallback, composites the grid at a supersampled
// scale, and delivers the file atomically with a lossy fallback encoding.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	// gif covers the odd upstream that serves animated cover art; png and
	// jpeg decoders come in with the encoder imports above.
	_ "image/gif"
)

var (
	// ErrNoTiles means the export target was absent: nothing on the board.
	ErrNoTiles = errors.New("export: no tiles to render")

	// ErrZeroSize means the layout collapses to a zero-area bitmap.
	ErrZeroSize = errors.New("export: layout has zero width or height")
)

const jpegFallbackQuality = 92

// Tile is one collage cell: a label plus an optional cover URL.
type Tile struct {
	Label    string
	ImageURL string
}

// Request describes one export: the board tiles in row-major order and the
// human-supplied collage title. Consumed synchronously, never persisted.
type Request struct {
	Tiles []Tile
	Title string
}

// Result reports where the artifact landed and which encoding succeeded.
type Result struct {
	Path   string
	Format string
}

// Layout fixes the collage geometry. Scale supersamples the whole bitmap.
type Layout struct {
	Cols     int
	Rows     int
	CellSize int
	Padding  int
	Banner   int
	Scale    int
}

// DefaultLayout is the 3×3 grid rendered at 2× supersampling.
var DefaultLayout = Layout{
	Cols:     3,
	Rows:     3,
	CellSize: 300,
	Padding:  12,
	Banner:   36,
	Scale:    2,
}

// PixelSize is the rendered bitmap's dimensions.
func (l Layout) PixelSize() (int, int) {
	width := l.Scale * (l.Cols*l.CellSize + (l.Cols+1)*l.Padding)
	height := l.Scale * (l.Rows*l.CellSize + (l.Rows+1)*l.Padding + l.Banner)
	return width, height
}

// CellRect is the pixel rectangle for tile index i (row-major).
func (l Layout) CellRect(i int) image.Rectangle {
	col := i % l.Cols
	row := i / l.Cols
	x0 := l.Scale * (l.Padding + col*(l.CellSize+l.Padding))
	y0 := l.Scale * (l.Banner + l.Padding + row*(l.CellSize+l.Padding))
	size := l.Scale * l.CellSize
	return image.Rect(x0, y0, x0+size, y0+size)
}

// Pipeline renders and delivers collages. One instance is safe to reuse; the
// caller is responsible for serializing exports (the TUI's busy flag).
type Pipeline struct {
	layout Layout
	outDir string
	client *http.Client
	cache  *imageCache
}

// NewPipeline returns a pipeline writing into outDir. A nil http.Client gets
// a default with a timeout; the cover cache is best-effort and a cache setup
// failure degrades to direct fetches.
func NewPipeline(outDir string, layout Layout, client *http.Client) *Pipeline {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	cache, err := newImageCache(client)
	if err != nil {
		cache = nil
	}
	return &Pipeline{layout: layout, outDir: outDir, client: client, cache: cache}
}

// Export runs the full pipeline. Per-image failures degrade to the
// transparent placeholder; only a missing target, a zero-area layout, or both
// encodings failing surface as errors.
func (p *Pipeline) Export(ctx context.Context, req Request) (Result, error) {
	if len(req.Tiles) == 0 {
		return Result{}, ErrNoTiles
	}
	width, height := p.layout.PixelSize()
	if width <= 0 || height <= 0 {
		return Result{}, ErrZeroSize
	}

	fetches := p.normalizeFetches(req.Tiles)
	images := p.awaitImages(ctx, fetches)
	canvas := p.rasterize(req.Title, images)

	return p.deliver(canvas, SafeBaseName(req.Title))
}

// fetchSpec is a fully normalized cover fetch, prepared before any request is
// issued so every fetch carries the same anonymous, cache-busting settings.
type fetchSpec struct {
	url    string
	header http.Header
}

// normalizeFetches is the pre-pass over every tile image: anonymous fetch
// semantics (no cookies, no referrer) and an upstream cache bust. Tiles
// without a URL get a zero spec and render as empty cells.
func (p *Pipeline) normalizeFetches(tiles []Tile) []fetchSpec {
	specs := make([]fetchSpec, len(tiles))
	for i, tile := range tiles {
		if tile.ImageURL == "" {
			continue
		}
		header := http.Header{}
		header.Set("Accept", "image/*")
		header.Set("Cache-Control", "no-cache")
		specs[i] = fetchSpec{url: tile.ImageURL, header: header}
	}
	return specs
}

// awaitImages fetches and decodes every cover concurrently and returns once
// all have settled. A failed fetch or decode settles as the transparent
// placeholder; this join never fails.
func (p *Pipeline) awaitImages(ctx context.Context, fetches []fetchSpec) []image.Image {
	images := make([]image.Image, len(fetches))
	var group errgroup.Group
	for i, spec := range fetches {
		if spec.url == "" {
			continue
		}
		i, spec := i, spec
		group.Go(func() error {
			img, err := p.fetchImage(ctx, spec)
			if err != nil {
				images[i] = transparentPixel()
				return nil
			}
			images[i] = img
			return nil
		})
	}
	group.Wait()
	return images
}

func (p *Pipeline) fetchImage(ctx context.Context, spec fetchSpec) (image.Image, error) {
	if p.cache != nil {
		path, err := p.cache.Fetch(ctx, spec.url, spec.header)
		if err == nil {
			return decodeFile(path)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.url, nil)
	if err != nil {
		return nil, err
	}
	for name, values := range spec.header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("cover fetch failed: %s", resp.Status)
	}
	img, _, err := image.Decode(resp.Body)
	return img, err
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	return img, err
}

// transparentPixel is the fixed substitute for an unavailable cover: it keeps
// the tile structurally present but contributes nothing visible and cannot
// fail during compositing.
func transparentPixel() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

// rasterize composites the settled images onto an opaque black canvas at the
// layout's supersampling scale, with the collage title in the banner drawn
// from the built-in bitmap face (no font fetching).
func (p *Pipeline) rasterize(title string, images []image.Image) *image.RGBA {
	width, height := p.layout.PixelSize()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if trimmed := strings.TrimSpace(title); trimmed != "" && p.layout.Banner > 0 {
		p.drawBanner(canvas, trimmed)
	}

	cells := p.layout.Cols * p.layout.Rows
	for i, img := range images {
		if i >= cells || img == nil {
			continue
		}
		cell := p.layout.CellRect(i)
		target := fitRect(img.Bounds(), cell)
		draw.ApproxBiLinear.Scale(canvas, target, img, img.Bounds(), draw.Over, nil)
	}
	return canvas
}

func (p *Pipeline) drawBanner(canvas *image.RGBA, title string) {
	drawer := font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot: fixed.P(
			p.layout.Scale*p.layout.Padding,
			p.layout.Scale*p.layout.Banner/2+basicfont.Face7x13.Ascent/2,
		),
	}
	drawer.DrawString(title)
}

// fitRect scales src into cell preserving aspect ratio, centered, so covers
// letterbox against the black background instead of stretching.
func fitRect(src, cell image.Rectangle) image.Rectangle {
	srcW, srcH := src.Dx(), src.Dy()
	if srcW <= 0 || srcH <= 0 {
		return cell
	}
	cellW, cellH := cell.Dx(), cell.Dy()
	w := cellW
	h := srcH * cellW / srcW
	if h > cellH {
		h = cellH
		w = srcW * cellH / srcH
	}
	x0 := cell.Min.X + (cellW-w)/2
	y0 := cell.Min.Y + (cellH-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// deliver encodes losslessly first and retries once with high-quality JPEG if
// the PNG path fails. Files land via tmp + rename so a failed encode leaves
// no partial artifact.
func (p *Pipeline) deliver(canvas *image.RGBA, baseName string) (Result, error) {
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return Result{}, err
	}

	pngPath := filepath.Join(p.outDir, baseName+".png")
	pngErr := writeImage(pngPath, func(f *os.File) error {
		return png.Encode(f, canvas)
	})
	if pngErr == nil {
		return Result{Path: pngPath, Format: "png"}, nil
	}

	jpegPath := filepath.Join(p.outDir, baseName+".jpg")
	jpegErr := writeImage(jpegPath, func(f *os.File) error {
		return jpeg.Encode(f, canvas, &jpeg.Options{Quality: jpegFallbackQuality})
	})
	if jpegErr == nil {
		return Result{Path: jpegPath, Format: "jpeg"}, nil
	}

	return Result{}, fmt.Errorf("export failed: png: %v; jpeg fallback: %w", pngErr, jpegErr)
}

func writeImage(path string, encode func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+partialSuffix)
	if err != nil {
		return err
	}
	if err := encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
