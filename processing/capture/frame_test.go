package capture

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bgrFrame builds a width x height frame filled with one BGR color.
func bgrFrame(t *testing.T, width, height int, b, g, r byte) *Frame {
	t.Helper()

	pix := make([]byte, 0, width*height*3)
	for i := 0; i < width*height; i++ {
		pix = append(pix, b, g, r)
	}

	f, err := NewFrame(width, height, pix)
	require.NoError(t, err)
	return f
}

func TestNewFrameRejectsShortBuffer(t *testing.T) {
	_, err := NewFrame(4, 4, make([]byte, 10))
	assert.Error(t, err)

	_, err = NewFrame(0, 4, nil)
	assert.Error(t, err)
}

func TestNewFrameCopiesBuffer(t *testing.T) {
	pix := []byte{1, 2, 3}
	f, err := NewFrame(1, 1, pix)
	require.NoError(t, err)

	pix[0] = 99
	assert.Equal(t, byte(1), f.Pix[0])
}

func TestFrameRGBASwapsChannels(t *testing.T) {
	f := bgrFrame(t, 3, 2, 10, 20, 30)

	img := f.RGBA()
	require.Equal(t, 3, img.Bounds().Dx())
	require.Equal(t, 2, img.Bounds().Dy())

	c := img.RGBAAt(2, 1)
	assert.Equal(t, uint8(30), c.R)
	assert.Equal(t, uint8(20), c.G)
	assert.Equal(t, uint8(10), c.B)
	assert.Equal(t, uint8(255), c.A)
}

func TestFrameRGBAReturnsFreshImage(t *testing.T) {
	f := bgrFrame(t, 2, 2, 0, 0, 0)

	a := f.RGBA()
	b := f.RGBA()
	a.Pix[0] = 200

	assert.Equal(t, uint8(0), b.Pix[0])
}

func TestFrameJPEG(t *testing.T) {
	f := bgrFrame(t, 16, 8, 0, 0, 255)

	data, err := f.JPEG(90)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}))

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	r, g, b, _ := img.At(8, 4).RGBA()
	assert.Greater(t, r>>8, uint32(200))
	assert.Less(t, g>>8, uint32(60))
	assert.Less(t, b>>8, uint32(60))
}
