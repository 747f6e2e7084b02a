package imaging

import (
	"context"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sourcegraph/conc/pool"

	"github.com/ironsheep/image-editor-mcp/internal/geometry"
)

// DisplayRaster resamples the source to its display size. The result is the
// unmodified image every live preview is derived from.
func DisplayRaster(src *Source, display geometry.Size) *image.NRGBA {
	return imaging.Resize(src.Image, display.W, display.H, imaging.Lanczos)
}

// PreviewOptions describes a live preview frame.
type PreviewOptions struct {
	// Crop is drawn as an overlay when ShowCrop is set.
	Crop     geometry.Rect
	ShowCrop bool
	Style    OverlayStyle

	Rotation int
	FlipH    bool
	FlipV    bool
	Filters  FilterChain
}

// RenderPreview derives a preview frame from the display raster.
//
// The filter chain is the same one the compositor applies, so preview and
// output agree. The crop overlay is drawn in un-rotated display space and
// then the whole frame is oriented, the way a browser applies a CSS
// transform to the image element.
func RenderPreview(display image.Image, opts PreviewOptions) *image.NRGBA {
	frame := ApplyFilters(display, opts.Filters, 1)
	if opts.ShowCrop {
		frame = CropOverlay(frame, opts.Crop, opts.Style)
	}
	return Orient(frame, opts.Rotation, opts.FlipH, opts.FlipV)
}

// Thumbnails renders a square thumbnail of display for each named chain.
//
// Rendering fans out over a pool bounded to the number of CPUs. The first
// error (or context cancellation) stops scheduling and is returned.
func Thumbnails(ctx context.Context, display image.Image, size int, chains map[string]FilterChain) (map[string]image.Image, error) {
	base := imaging.Fill(display, size, size, imaging.Center, imaging.Lanczos)

	// Blur amounts are display-space pixels; shrink them with the thumbnail.
	b := display.Bounds()
	pxScale := float64(size) / float64(min(b.Dx(), b.Dy()))

	var mu sync.Mutex
	out := make(map[string]image.Image, len(chains))

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())
	for name, chain := range chains {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			thumb := ApplyFilters(base, chain, pxScale)
			mu.Lock()
			out[name] = thumb
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
