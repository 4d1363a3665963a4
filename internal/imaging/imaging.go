// Package imaging validates image payloads before they are embedded in a
// workbook: format sniffing by magic bytes plus a real decode for the
// formats Excel accepts.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Info describes a validated image.
type Info struct {
	Extension string `json:"extension"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

var magics = []struct {
	prefix    []byte
	extension string
}{
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, ".png"},
	{[]byte{0xFF, 0xD8, 0xFF}, ".jpg"},
	{[]byte("GIF87a"), ".gif"},
	{[]byte("GIF89a"), ".gif"},
	{[]byte("BM"), ".bmp"},
	{[]byte("II*\x00"), ".tiff"},
	{[]byte("MM\x00*"), ".tiff"},
}

// Sniff identifies an image format from its leading bytes. WebP is detected
// through its RIFF container.
func Sniff(data []byte) (string, bool) {
	for _, m := range magics {
		if bytes.HasPrefix(data, m.prefix) {
			return m.extension, true
		}
	}
	if len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return ".webp", true
	}
	return "", false
}

// Validate sniffs the format and, for the formats the standard decoders
// cover, confirms the payload actually decodes. BMP, TIFF and WebP pass on
// the magic-byte check alone.
func Validate(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}

	ext, ok := Sniff(data)
	if !ok {
		return nil, fmt.Errorf("unrecognized image format (supported: png, jpg, gif, bmp, tiff, webp)")
	}

	switch ext {
	case ".png", ".jpg", ".gif":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("corrupt %s image: %w", ext[1:], err)
		}
		return &Info{Extension: ext, Width: cfg.Width, Height: cfg.Height}, nil
	default:
		return &Info{Extension: ext}, nil
	}
}
