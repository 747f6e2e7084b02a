package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
)

var (
	// ErrTooLarge is returned when an image exceeds the configured pixel limit.
	ErrTooLarge = errors.New("image exceeds maximum pixel count")

	// ErrInvalidDataURI is returned for data URIs that are not base64 images.
	ErrInvalidDataURI = errors.New("invalid image data URI")
)

// Source is a decoded, orientation-corrected image ready for editing.
//
// A Source is immutable once returned by Decode and may be shared between
// editing sessions.
type Source struct {
	// Image is the decoded raster. EXIF orientation has already been applied,
	// so its bounds match what a browser would display.
	Image image.Image

	// Size is the natural size of Image in pixels.
	Size geometry.Size

	// Format is the decoder name reported by the image package ("jpeg", "png", ...).
	Format string

	// Orientation is the EXIF orientation tag found in the file (1-8).
	// It is 1 when the file carries no orientation.
	Orientation int
}

// Decode decodes raw image bytes into a Source.
//
// Parameters:
//   - ctx: Checked before and after decoding; a cancelled context aborts the load.
//   - data: Encoded image bytes. JPEG, PNG, GIF, BMP and TIFF are supported.
//   - maxPixels: Upper bound on width*height. Zero or negative disables the check.
//
// The header is inspected first so oversized images are rejected before any
// pixel memory is allocated.
func Decode(ctx context.Context, data []byte, maxPixels int) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("failed to decode image: empty input")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if maxPixels > 0 && cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orientation := readOrientation(data)
	img = applyOrientation(img, orientation)

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.New("failed to decode image: zero-sized image")
	}

	return &Source{
		Image:       img,
		Size:        geometry.Size{W: bounds.Dx(), H: bounds.Dy()},
		Format:      format,
		Orientation: orientation,
	}, nil
}

// ParseDataURI extracts the payload of a base64 data URI such as
// "data:image/png;base64,iVBOR...".
func ParseDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, ErrInvalidDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(header, ";base64") || !strings.HasPrefix(header, "image/") {
		return nil, ErrInvalidDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return data, nil
}

// SourceCache provides thread-safe caching of decoded sources keyed by file path.
//
// Sources are immutable, so one cached Source can back any number of editing
// sessions opened on the same file.
//
// # Memory Management
//
// Cached sources remain in memory until explicitly removed via Evict() or Clear().
type SourceCache struct {
	mu        sync.RWMutex
	sources   map[string]*Source
	maxPixels int
}

// NewSourceCache creates an empty cache that rejects images larger than
// maxPixels (zero disables the limit).
func NewSourceCache(maxPixels int) *SourceCache {
	return &SourceCache{
		sources:   make(map[string]*Source),
		maxPixels: maxPixels,
	}
}

// Load returns the cached Source for path, reading and decoding the file on
// first use.
//
// The source is cached using the exact path string provided. Different paths to the
// same file (e.g., relative vs absolute) will result in separate cache entries.
func (c *SourceCache) Load(ctx context.Context, path string) (*Source, error) {
	c.mu.RLock()
	if src, ok := c.sources[path]; ok {
		c.mu.RUnlock()
		return src, nil
	}
	c.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	src, err := Decode(ctx, data, c.maxPixels)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sources[path] = src
	c.mu.Unlock()

	return src, nil
}

// Clear removes all sources from the cache.
func (c *SourceCache) Clear() {
	c.mu.Lock()
	c.sources = make(map[string]*Source)
	c.mu.Unlock()
}

// Evict removes a specific source from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *SourceCache) Evict(path string) {
	c.mu.Lock()
	delete(c.sources, path)
	c.mu.Unlock()
}

// Len returns the number of cached sources.
func (c *SourceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}
