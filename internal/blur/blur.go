// Package blur implements a parallel triple box blur over packed
// 32-bit pixel buffers. Three box passes per axis approximate a
// Gaussian; each pass is an O(n+k) sliding-window running sum, so the
// cost is independent of the radius.
package blur

import (
	"fmt"
	"math/bits"
)

// Radius carries a blur radius together with floor(log2(radius)) so
// the per-pixel averaging divides by shifting. The pair is validated
// at construction; the shift is exact only when the magnitude is a
// power of two, and a documented under-division approximation
// otherwise.
type Radius struct {
	px   int
	log2 int
}

// NewRadius validates a radius magnitude and derives its shift.
func NewRadius(px int) (Radius, error) {
	if px < 1 {
		return Radius{}, fmt.Errorf("blur: radius must be at least 1, got %d", px)
	}
	return Radius{px: px, log2: bits.Len(uint(px)) - 1}, nil
}

// ForScale returns the backdrop radius for an output scale factor,
// 32 pixels per scale unit. Scale factors below 1 are treated as 1.
func ForScale(scale int) Radius {
	if scale < 1 {
		scale = 1
	}
	r, _ := NewRadius(32 * scale)
	return r
}

// Pixels returns the radius magnitude.
func (r Radius) Pixels() int { return r.px }

// Log2 returns floor(log2(magnitude)).
func (r Radius) Log2() int { return r.log2 }

// boxBlurVertical runs one vertical box pass over the column band
// [x0, x1). src and dst are tightly packed width*4-stride buffers in
// B, G, R, A byte order. The running sum is seeded with the top pixel
// scaled by 2^log2, which stands in for replicate-edge handling at the
// leading boundary; trailing reads clamp to the last row. Output alpha
// is forced opaque.
func boxBlurVertical(dst, src []byte, width, height, x0, x1 int, rad Radius) {
	r, log2 := rad.px, uint(rad.log2)
	for x := x0; x < x1; x++ {
		o := x * 4
		sb := uint32(src[o]) << log2
		sg := uint32(src[o+1]) << log2
		sr := uint32(src[o+2]) << log2
		for y := 0; y < height+r; y++ {
			sy := y
			if sy >= height {
				sy = height - 1
			}
			in := (sy*width + x) * 4
			sb += uint32(src[in])
			sg += uint32(src[in+1])
			sr += uint32(src[in+2])

			if y >= r {
				ty := y - (r << 1)
				if ty < 0 {
					ty = 0
				}
				tail := (ty*width + x) * 4
				sb -= uint32(src[tail])
				sg -= uint32(src[tail+1])
				sr -= uint32(src[tail+2])

				out := ((y-r)*width + x) * 4
				dst[out] = byte(sb >> log2 >> 1)
				dst[out+1] = byte(sg >> log2 >> 1)
				dst[out+2] = byte(sr >> log2 >> 1)
				dst[out+3] = 0xFF
			}
		}
	}
}

// boxBlurHorizontal runs one horizontal box pass over the row band
// [y0, y1). Same window arithmetic as the vertical pass, along rows.
func boxBlurHorizontal(dst, src []byte, width, height, y0, y1 int, rad Radius) {
	r, log2 := rad.px, uint(rad.log2)
	for y := y0; y < y1; y++ {
		o := y * width * 4
		sb := uint32(src[o]) << log2
		sg := uint32(src[o+1]) << log2
		sr := uint32(src[o+2]) << log2
		for x := 0; x < width+r; x++ {
			sx := x
			if sx >= width {
				sx = width - 1
			}
			in := (y*width + sx) * 4
			sb += uint32(src[in])
			sg += uint32(src[in+1])
			sr += uint32(src[in+2])

			if x >= r {
				tx := x - (r << 1)
				if tx < 0 {
					tx = 0
				}
				tail := (y*width + tx) * 4
				sb -= uint32(src[tail])
				sg -= uint32(src[tail+1])
				sr -= uint32(src[tail+2])

				out := (y*width + x - r) * 4
				dst[out] = byte(sb >> log2 >> 1)
				dst[out+1] = byte(sg >> log2 >> 1)
				dst[out+2] = byte(sr >> log2 >> 1)
				dst[out+3] = 0xFF
			}
		}
	}
}

// verticalPasses runs the three vertical box passes for one column
// band, ping-ponging primary and scratch. The intermediate result
// lands in scratch.
func verticalPasses(primary, scratch []byte, width, height, x0, x1 int, rad Radius) {
	boxBlurVertical(scratch, primary, width, height, x0, x1, rad)
	boxBlurVertical(primary, scratch, width, height, x0, x1, rad)
	boxBlurVertical(scratch, primary, width, height, x0, x1, rad)
}

// horizontalPasses runs the three horizontal box passes for one row
// band. The final result lands in primary.
func horizontalPasses(primary, scratch []byte, width, height, y0, y1 int, rad Radius) {
	boxBlurHorizontal(primary, scratch, width, height, y0, y1, rad)
	boxBlurHorizontal(scratch, primary, width, height, y0, y1, rad)
	boxBlurHorizontal(primary, scratch, width, height, y0, y1, rad)
}
