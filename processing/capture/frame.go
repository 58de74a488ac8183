package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

const bytesPerPixel = 3

// Frame is one color image in device-native BGR byte order.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewFrame copies pix, which must hold width*height BGR pixels.
func NewFrame(width, height int, pix []byte) (*Frame, error) {
	size := width * height * bytesPerPixel
	if width <= 0 || height <= 0 || len(pix) < size {
		return nil, fmt.Errorf("bad frame buffer: %dx%d with %d bytes", width, height, len(pix))
	}

	data := make([]byte, size)
	copy(data, pix[:size])

	return &Frame{
		Width:  width,
		Height: height,
		Stride: width * bytesPerPixel,
		Pix:    data,
	}, nil
}

// RGBA converts to display-native RGBA in a newly allocated image.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))

	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride : y*f.Stride+f.Width*bytesPerPixel]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]

		for x := 0; x < f.Width; x++ {
			s := src[x*bytesPerPixel:]
			d := dst[x*4:]
			d[0] = s[2]
			d[1] = s[1]
			d[2] = s[0]
			d[3] = 0xff
		}
	}

	return img
}

// JPEG encodes the frame. quality <= 0 uses the encoder default.
func (f *Frame) JPEG(quality int) ([]byte, error) {
	var opts *jpeg.Options
	if quality > 0 {
		opts = &jpeg.Options{Quality: quality}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.RGBA(), opts); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}

	return buf.Bytes(), nil
}
