package frame

// Normalize copies a captured frame into a tightly packed working
// buffer (stride == Width*4, top-down rows). When flip is set the row
// order is reversed: source row i lands on destination row height-1-i.
// Source rows are addressed by the source stride, which may include
// compositor padding that the working layout drops.
func Normalize(src *Buffer, flip bool) []byte {
	rowLen := src.Width * BytesPerPixel
	dst := make([]byte, rowLen*src.Height)
	for y := 0; y < src.Height; y++ {
		srcRow := src.Data[y*src.Stride : y*src.Stride+rowLen]
		dy := y
		if flip {
			dy = src.Height - 1 - y
		}
		copy(dst[dy*rowLen:(dy+1)*rowLen], srcRow)
	}
	return dst
}
