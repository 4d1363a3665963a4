package imaging

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, ".png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, ".jpg"},
		{"gif", []byte("GIF89a...."), ".gif"},
		{"bmp", []byte("BM1234"), ".bmp"},
		{"tiff little endian", []byte("II*\x00rest"), ".tiff"},
		{"webp", append([]byte("RIFF"), append([]byte{0, 0, 0, 0}, []byte("WEBPdata")...)...), ".webp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ext, ok := Sniff(tc.data)
			require.True(t, ok)
			assert.Equal(t, tc.want, ext)
		})
	}

	_, ok := Sniff([]byte("plain text"))
	assert.False(t, ok)
}

func TestValidatePNG(t *testing.T) {
	info, err := Validate(tinyPNG(t))
	require.NoError(t, err)
	assert.Equal(t, ".png", info.Extension)
	assert.Equal(t, 2, info.Width)
	assert.Equal(t, 3, info.Height)
}

func TestValidateRejectsCorrupt(t *testing.T) {
	// A PNG signature followed by garbage sniffs fine but must not decode.
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []byte("garbage")...)
	_, err := Validate(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt png")
}

func TestValidateRejectsEmptyAndUnknown(t *testing.T) {
	_, err := Validate(nil)
	require.Error(t, err)

	_, err = Validate([]byte("definitely not an image"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized image format")
}

func TestValidateMagicOnlyFormats(t *testing.T) {
	info, err := Validate([]byte("BM-some-bitmap-bytes"))
	require.NoError(t, err)
	assert.Equal(t, ".bmp", info.Extension)
	assert.Zero(t, info.Width)
}
