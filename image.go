package xltag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// DefaultMaxImageBytes caps the size of a fetched image body.
const DefaultMaxImageBytes = 10 << 20

// ImageFetcher retrieves image bytes for an image tag value.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ImageFetcherFunc adapts a function to ImageFetcher.
type ImageFetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f(ctx, url).
func (f ImageFetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

var (
	absoluteURLRegex = regexp.MustCompile(`(?i)^https?://.+`)
	extensionRegex   = regexp.MustCompile(`.+\.(\w+)$`)
)

// ExtensionOf returns the trailing ".ext" of a URL without the dot, or "jpg".
func ExtensionOf(url string) string {
	if m := extensionRegex.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return "jpg"
}

// HTTPFetcher downloads images over HTTP(S).
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64 // body size limit; 0 means DefaultMaxImageBytes
}

// NewHTTPFetcher creates an HTTPFetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// Fetch downloads url. Only absolute http(s) URLs are accepted.
func (h *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if !absoluteURLRegex.MatchString(url) {
		return nil, fmt.Errorf("fetch %q: %w", url, ErrInvalidImageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %q: %w", url, err)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %q: unexpected status %s", url, resp.Status)
	}

	limit := h.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxImageBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read image body %q: %w", url, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("fetch %q: image exceeds %d bytes", url, limit)
	}
	return body, nil
}

// imageExtFromBytes sniffs the format of inline image data.
func imageExtFromBytes(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/bmp":
		return "bmp"
	case "image/jpeg":
		return "jpg"
	default:
		return "png"
	}
}

// imageAnchor computes where the k-th image of a cell goes: the image fills
// the cell, right/bottom aligned, each further image 20% smaller.
func imageAnchor(row, col, k int) ImageAnchor {
	adjust := 0.2 * float64(k)
	return ImageAnchor{
		TopLeft:     ImagePoint{Col: float64(col-1) + adjust, Row: float64(row-1) + adjust},
		BottomRight: ImagePoint{Col: float64(col), Row: float64(row)},
	}
}

// supportedImageExt lists the picture extensions the xlsx writer accepts.
var supportedImageExt = map[string]bool{
	"bmp": true, "emf": true, "emz": true, "gif": true, "jpeg": true, "jpg": true,
	"png": true, "svg": true, "tif": true, "tiff": true, "wmf": true, "wmz": true,
}

// imageExt picks the extension for fetched data: the URL's own extension when
// the writer supports it, otherwise whatever the bytes look like. The suffix
// check tells a real ".jpg" apart from ExtensionOf's default.
func imageExt(url string, data []byte) string {
	ext := strings.ToLower(ExtensionOf(url))
	if supportedImageExt[ext] && strings.HasSuffix(strings.ToLower(url), "."+ext) {
		return ext
	}
	return imageExtFromBytes(data)
}
