package backdrop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockveil/lockveil/internal/frame"
	"github.com/lockveil/lockveil/internal/screencopy"
	"github.com/lockveil/lockveil/internal/shm"
)

// scriptedService delivers one canned frame through the screencopy
// callback contract.
type scriptedService struct {
	format  frame.Format
	width   int
	height  int
	stride  int
	pixel   [4]byte
	yInvert bool
	fail    bool

	pending []func()
}

func (s *scriptedService) RequestCapture(output screencopy.OutputHandle, l screencopy.FrameListener) (screencopy.Session, error) {
	sess := &scriptedSession{svc: s, listener: l}
	s.pending = append(s.pending, func() {
		l.HandleBuffer(s.format, s.width, s.height, s.stride)
	})
	return sess, nil
}

func (s *scriptedService) DispatchPending() (int, error) {
	queued := s.pending
	s.pending = nil
	for _, fn := range queued {
		fn()
	}
	return len(queued), nil
}

type scriptedSession struct {
	svc      *scriptedService
	listener screencopy.FrameListener
}

func (sess *scriptedSession) SubmitBuffer(buf *shm.Buffer, width, height, stride int) error {
	svc := sess.svc
	if svc.fail {
		svc.pending = append(svc.pending, sess.listener.HandleFailed)
		return nil
	}
	data := buf.Data()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			copy(data[y*stride+x*4:], svc.pixel[:])
		}
	}
	svc.pending = append(svc.pending, func() { sess.listener.HandleFlags(svc.yInvert) })
	svc.pending = append(svc.pending, sess.listener.HandleReady)
	return nil
}

func (sess *scriptedSession) Destroy() {}

func TestProduceUniformRed(t *testing.T) {
	// Opaque red in ARGB8888 memory order (B, G, R, A) with non-opaque
	// alpha: the blur must leave the color untouched and force alpha.
	svc := &scriptedService{
		format: frame.FormatARGB8888,
		width:  4,
		height: 4,
		stride: 16,
		pixel:  [4]byte{0x00, 0x00, 0xFF, 0x80},
	}

	img, err := NewPipeline(svc, 1).Produce(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 4, img.Height)
	assert.Equal(t, 16, img.Stride)
	assert.Equal(t, frame.FormatXRGB8888, img.Format)
	require.Len(t, img.Pix, 4*4*4)

	for i := 0; i < len(img.Pix); i += 4 {
		require.Equal(t, byte(0x00), img.Pix[i], "blue at pixel %d", i/4)
		require.Equal(t, byte(0x00), img.Pix[i+1], "green at pixel %d", i/4)
		require.Equal(t, byte(0xFF), img.Pix[i+2], "red at pixel %d", i/4)
		require.Equal(t, byte(0xFF), img.Pix[i+3], "alpha at pixel %d", i/4)
	}
}

func TestProduceWorkerCountInvariant(t *testing.T) {
	newService := func() *scriptedService {
		return &scriptedService{
			format: frame.FormatXRGB8888,
			width:  31,
			height: 17,
			stride: 31 * 4,
			pixel:  [4]byte{0x12, 0x34, 0x56, 0x78},
		}
	}

	serial, err := NewPipeline(newService(), 1).Produce(context.Background(), 1, 1)
	require.NoError(t, err)

	parallel, err := NewPipeline(newService(), 4).Produce(context.Background(), 1, 1)
	require.NoError(t, err)

	assert.Equal(t, serial.Pix, parallel.Pix)
}

func TestProduceFlippedCapture(t *testing.T) {
	// Uniform pixels make the flip invisible in the output; this
	// checks the flipped path end to end for buffer-shape integrity.
	svc := &scriptedService{
		format:  frame.FormatXBGR8888,
		width:   8,
		height:  6,
		stride:  8 * 4,
		pixel:   [4]byte{0x40, 0x40, 0x40, 0xFF},
		yInvert: true,
	}

	img, err := NewPipeline(svc, 2).Produce(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, frame.FormatXBGR8888, img.Format)
	assert.Equal(t, 8*6*4, len(img.Pix))
}

func TestProduceCaptureFailure(t *testing.T) {
	svc := &scriptedService{
		format: frame.FormatARGB8888,
		width:  4,
		height: 4,
		stride: 16,
		fail:   true,
	}

	img, err := NewPipeline(svc, 1).Produce(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Nil(t, img, "a failed capture must never yield a partial image")

	var capErr *screencopy.CaptureError
	assert.ErrorAs(t, err, &capErr)
}

func TestImageToRGBA(t *testing.T) {
	img := &Image{
		Width:  2,
		Height: 1,
		Stride: 8,
		Format: frame.FormatXRGB8888,
		Pix:    []byte{0x10, 0x20, 0x30, 0xFF, 0x40, 0x50, 0x60, 0xFF},
	}
	rgba := img.ToRGBA()
	c := rgba.RGBAAt(1, 0)
	assert.Equal(t, byte(0x60), c.R)
	assert.Equal(t, byte(0x50), c.G)
	assert.Equal(t, byte(0x40), c.B)
	assert.Equal(t, byte(0xFF), c.A)
}
