package export

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheEnvVar        = "COVERGRID_CACHE_DIR"
	cacheSubdir        = "covergrid/covers"
	cacheTTL           = 24 * time.Hour
	partialSuffix      = ".part"
	metaSuffix         = ".meta"
	defaultHTTPTimeout = 30 * time.Second
)

// imageCache keeps fetched cover art on disk so repeated exports do not
// re-download every cover. Entries are revalidated with conditional GETs once
// the TTL lapses, and a stale copy is served when revalidation fails.
type imageCache struct {
	dir    string
	client *http.Client
}

type imageCacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"lastModified"`
	CachedAt     time.Time `json:"cachedAt"`
	Size         int64     `json:"size"`
}

func newImageCache(client *http.Client) (*imageCache, error) {
	dir := os.Getenv(cacheEnvVar)
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "covergrid-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &imageCache{dir: dir, client: client}, nil
}

// Fetch returns a local path holding the image at imageURL, downloading or
// revalidating as needed. The supplied header is applied to any outbound
// request, so the pipeline's normalization pass covers cached fetches too.
func (c *imageCache) Fetch(ctx context.Context, imageURL string, header http.Header) (string, error) {
	key := cacheKey(imageURL)
	imgPath, metaPath, partialPath := c.pathsFor(key)

	if info, err := os.Stat(imgPath); err == nil && time.Since(info.ModTime()) < cacheTTL && info.Size() > 0 {
		return imgPath, nil
	}

	meta, _ := readMeta(metaPath)
	info, _ := os.Stat(imgPath)
	path, err := c.download(ctx, imageURL, imgPath, metaPath, partialPath, header, meta, info)
	if err == nil {
		return path, nil
	}
	if info != nil && info.Size() > 0 {
		return imgPath, nil
	}
	return "", err
}

func (c *imageCache) download(ctx context.Context, imageURL, imgPath, metaPath, partialPath string, header http.Header, meta imageCacheMeta, current os.FileInfo) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	for name, values := range header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	if current != nil && current.Size() > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		meta.CachedAt = time.Now().UTC()
		writeMeta(metaPath, meta)
		// Refresh the mtime so the TTL check is satisfied again.
		now := time.Now()
		os.Chtimes(imgPath, now, now)
		return imgPath, nil
	case http.StatusOK:
		return c.saveBody(resp, imgPath, metaPath, partialPath)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("cover download failed: %s (%s)", resp.Status, string(body))
	}
}

func (c *imageCache) saveBody(resp *http.Response, imgPath, metaPath, partialPath string) (string, error) {
	file, err := os.OpenFile(partialPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(partialPath, imgPath); err != nil {
		return "", err
	}

	meta := imageCacheMeta{
		URL:          resp.Request.URL.String(),
		ETag:         resp.Header.Get("Etag"),
		LastModified: resp.Header.Get("Last-Modified"),
		CachedAt:     time.Now().UTC(),
	}
	if info, err := os.Stat(imgPath); err == nil {
		meta.Size = info.Size()
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return "", err
	}
	return imgPath, nil
}

func (c *imageCache) pathsFor(key string) (string, string, string) {
	return filepath.Join(c.dir, key+".img"), filepath.Join(c.dir, key+metaSuffix), filepath.Join(c.dir, key+partialSuffix)
}

func cacheKey(imageURL string) string {
	sum := sha1.Sum([]byte(imageURL))
	return hex.EncodeToString(sum[:])
}

func readMeta(path string) (imageCacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return imageCacheMeta{}, err
	}
	var meta imageCacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return imageCacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta imageCacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
