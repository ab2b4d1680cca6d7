package frame

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

// BytesPerPixel is fixed: only 32-bit packed formats are supported.
const BytesPerPixel = 4

// Buffer is a view over one captured frame. Data may be backed by a
// shared-memory mapping; the view does not own the backing store.
// Stride is in bytes and may exceed Width*4 when the compositor pads
// scanlines.
type Buffer struct {
	Width  int
	Height int
	Stride int
	Format Format
	Data   []byte
}

// NewBuffer validates the geometry against the backing slice and
// returns a frame view. Stride*Height bytes must be addressable.
func NewBuffer(width, height, stride int, format Format, data []byte) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	if stride < width*BytesPerPixel {
		return nil, fmt.Errorf("frame: stride %d smaller than packed row %d", stride, width*BytesPerPixel)
	}
	if len(data) < stride*height {
		return nil, fmt.Errorf("frame: backing store holds %d bytes, need %d", len(data), stride*height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: format,
		Data:   data,
	}, nil
}

// Pixel returns the packed 32-bit pixel at (x, y). Coordinates are
// clamped independently per axis, so out-of-range reads resolve to the
// nearest edge pixel instead of faulting.
func (b *Buffer) Pixel(x, y int) uint32 {
	if x < 0 {
		x = 0
	} else if x >= b.Width {
		x = b.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= b.Height {
		y = b.Height - 1
	}
	off := y*b.Stride + x*BytesPerPixel
	return binary.LittleEndian.Uint32(b.Data[off:])
}

// SetPixel stores a packed 32-bit pixel at (x, y). Writes outside the
// frame are dropped.
func (b *Buffer) SetPixel(x, y int, px uint32) {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return
	}
	off := y*b.Stride + x*BytesPerPixel
	binary.LittleEndian.PutUint32(b.Data[off:], px)
}

// ToRGBA converts the buffer to an image.RGBA, swapping BGR-ordered
// channels as needed and forcing full opacity.
func (b *Buffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	bgr := b.Format == FormatARGB8888 || b.Format == FormatXRGB8888
	for y := 0; y < b.Height; y++ {
		row := b.Data[y*b.Stride:]
		for x := 0; x < b.Width; x++ {
			i := x * BytesPerPixel
			c := color.RGBA{R: row[i], G: row[i+1], B: row[i+2], A: 0xFF}
			if bgr {
				c.R, c.B = c.B, c.R
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
