package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the lossy quality used for saved edits.
const DefaultJPEGQuality = 85

// Format is an output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

// ParseFormat maps a user-supplied name ("jpg", "JPEG", "png") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// MimeType returns the media type of f.
func (f Format) MimeType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Encode writes img to w. quality applies to JPEG only; values outside 1-100
// fall back to DefaultJPEGQuality.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	if format == FormatPNG {
		return imaging.Encode(w, img, imaging.PNG)
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// EncodedImage is an encoded raster ready to be returned over a text protocol.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodeBase64 encodes img and wraps the bytes as base64.
func EncodeBase64(img image.Image, format Format, quality int) (*EncodedImage, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    format.MimeType(),
	}, nil
}
