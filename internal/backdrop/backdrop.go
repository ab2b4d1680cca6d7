// Package backdrop produces a heavily blurred screenshot of a display
// output, suitable for rendering behind a lock-screen UI.
package backdrop

import (
	"context"
	"image"
	"time"

	"github.com/lockveil/lockveil/internal/blur"
	"github.com/lockveil/lockveil/internal/frame"
	"github.com/lockveil/lockveil/internal/logger"
	"github.com/lockveil/lockveil/internal/screencopy"
)

// Image is a finished blurred backdrop. Rows are top-down and tightly
// packed (Stride == Width*4); the pixel format is always opaque. The
// image owns Pix.
type Image struct {
	Width  int
	Height int
	Stride int
	Format frame.Format
	Pix    []byte
}

// ToRGBA converts the backdrop into an image.RGBA for encoding or
// on-screen presentation.
func (img *Image) ToRGBA() *image.RGBA {
	buf := &frame.Buffer{
		Width:  img.Width,
		Height: img.Height,
		Stride: img.Stride,
		Format: img.Format,
		Data:   img.Pix,
	}
	return buf.ToRGBA()
}

// Pipeline captures frames through a screencopy service and blurs
// them. A Pipeline is safe for sequential reuse; each Produce call
// performs a full capture-and-blur cycle.
type Pipeline struct {
	coord *screencopy.Coordinator
	sched *blur.Scheduler
}

// NewPipeline builds a pipeline over the given capture service.
// workers <= 0 selects the logical CPU count.
func NewPipeline(svc screencopy.Service, workers int) *Pipeline {
	return &Pipeline{
		coord: screencopy.NewCoordinator(svc),
		sched: blur.NewScheduler(workers),
	}
}

// Produce captures the given output and returns its blurred backdrop.
// The blur radius is derived from the output scale factor. Errors are
// typed (shm.AllocationError, screencopy.CaptureError,
// screencopy.UnsupportedFormatError) and never partial: on error the
// returned image is nil and the caller should fall back to a plain
// backdrop.
func (p *Pipeline) Produce(ctx context.Context, output screencopy.OutputHandle, scale int) (*Image, error) {
	log := logger.WithComponent("backdrop")

	captured, err := p.coord.Capture(ctx, output)
	if err != nil {
		return nil, err
	}

	width := captured.Buffer.Width
	height := captured.Buffer.Height
	format := captured.Buffer.Format

	// Canonicalize into a packed working layout; the shared capture
	// buffer is released as soon as the copy is out.
	primary := frame.Normalize(captured.Buffer, captured.YInvert)
	captured.Release()

	scratch := make([]byte, len(primary))
	radius := blur.ForScale(scale)

	log.Debug().Int("radius", radius.Pixels()).Msg("Blur radius")

	start := time.Now()
	p.sched.Blur(primary, scratch, width, height, radius)

	log.Debug().
		Int("width", width).
		Int("height", height).
		Dur("elapsed", time.Since(start)).
		Msg("Blurring time")

	return &Image{
		Width:  width,
		Height: height,
		Stride: width * frame.BytesPerPixel,
		Format: format.Opaque(),
		Pix:    primary,
	}, nil
}
