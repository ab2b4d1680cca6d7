package frame

import "fmt"

// Format identifies a 32-bit packed pixel format. The numeric values
// match the wl_shm format codes so a compositor-negotiated format can
// be stored without translation.
type Format uint32

const (
	FormatARGB8888 Format = 0
	FormatXRGB8888 Format = 1
	FormatABGR8888 Format = 0x34324241
	FormatXBGR8888 Format = 0x34324258
)

// Supported reports whether the format is one of the packed 32-bit
// formats the blur pipeline can process.
func (f Format) Supported() bool {
	switch f {
	case FormatARGB8888, FormatXRGB8888, FormatABGR8888, FormatXBGR8888:
		return true
	}
	return false
}

// Opaque returns the alpha-less variant of the format. The blur engine
// forces every output alpha byte to 0xFF, so the produced image is
// always one of the X-variants.
func (f Format) Opaque() Format {
	switch f {
	case FormatARGB8888:
		return FormatXRGB8888
	case FormatABGR8888:
		return FormatXBGR8888
	}
	return f
}

func (f Format) String() string {
	switch f {
	case FormatARGB8888:
		return "ARGB8888"
	case FormatXRGB8888:
		return "XRGB8888"
	case FormatABGR8888:
		return "ABGR8888"
	case FormatXBGR8888:
		return "XBGR8888"
	}
	return fmt.Sprintf("Format(0x%08x)", uint32(f))
}
