// Package imaging holds the raster side of the editor: decoding sources,
// applying filter chains, compositing the final output and drawing previews.
//
// All operations work with standard Go image.Image values in a coordinate
// system where (0,0) is the top-left corner, X grows rightward and Y grows
// downward. Rectangles come from the geometry package and are half-open:
// a Rect{X, Y, W, H} covers columns X..X+W-1 and rows Y..Y+H-1.
//
// # Loading
//
// Decode turns encoded bytes into a Source, applying any EXIF orientation so
// the natural size is the size the image displays at. ParseDataURI accepts
// the base64 data URIs browsers hand around. SourceCache keeps decoded files
// keyed by path and is safe for concurrent use.
//
// # Filters
//
// A FilterChain is an ordered list of CSS-style filter operations
// (brightness, contrast, saturate, sepia, grayscale, hue-rotate, blur).
// ApplyFilters evaluates the chain with the same formulas a browser uses, so
// the CSS string from FilterChain.CSS and the rendered pixels agree.
//
// # Compositing
//
// Composite maps a display-space crop into source pixels, filters the
// region, mirrors it and rotates it clockwise. The output size is the source
// region's size, with width and height swapped for quarter turns.
//
// # Previews
//
// RenderPreview derives a live frame from the display raster, optionally
// drawing the crop overlay from CropOverlay. Thumbnails renders one small
// square per filter chain concurrently.
package imaging
