package screencopy

import (
	"context"
	"fmt"

	"github.com/lockveil/lockveil/internal/frame"
	"github.com/lockveil/lockveil/internal/logger"
	"github.com/lockveil/lockveil/internal/shm"
)

// Coordinator drives one capture at a time against a Service: it
// issues the request, pumps the service's event dispatch until the
// frame is ready or failed, and yields the populated buffer.
type Coordinator struct {
	svc Service
}

// NewCoordinator returns a coordinator bound to a capture service.
func NewCoordinator(svc Service) *Coordinator {
	return &Coordinator{svc: svc}
}

// CapturedFrame is a successfully captured frame. Buffer views the
// shared-memory region; Release must be called once the pixels have
// been copied out, after which the view is invalid.
type CapturedFrame struct {
	Buffer  *frame.Buffer
	YInvert bool

	shm     *shm.Buffer
	session Session
}

// Release unmaps the shared-memory backing and destroys the capture
// session. The Buffer must not be used afterwards.
func (f *CapturedFrame) Release() {
	if f.session != nil {
		f.session.Destroy()
		f.session = nil
	}
	if f.shm != nil {
		f.shm.Close()
		f.shm = nil
	}
	f.Buffer = nil
}

// captureState holds all per-capture mutable state and receives the
// service callbacks. It is confined to the dispatching goroutine, so
// no locking is needed.
type captureState struct {
	session Session

	buf     *frame.Buffer
	shmBuf  *shm.Buffer
	yInvert bool
	done    bool
	err     error
}

func (st *captureState) HandleBuffer(format frame.Format, width, height, stride int) {
	if st.err != nil {
		return
	}
	if !format.Supported() {
		st.err = &UnsupportedFormatError{Format: format}
		return
	}

	shmBuf, err := shm.Create(stride * height)
	if err != nil {
		st.err = err
		return
	}

	buf, err := frame.NewBuffer(width, height, stride, format, shmBuf.Data())
	if err != nil {
		shmBuf.Close()
		st.err = fmt.Errorf("screencopy: rejecting negotiated geometry: %w", err)
		return
	}

	st.shmBuf = shmBuf
	st.buf = buf

	if err := st.session.SubmitBuffer(shmBuf, width, height, stride); err != nil {
		st.err = &CaptureError{Err: fmt.Errorf("submit buffer: %w", err)}
	}
}

func (st *captureState) HandleFlags(yInvert bool) {
	st.yInvert = yInvert
}

func (st *captureState) HandleReady() {
	st.done = true
}

func (st *captureState) HandleFailed() {
	if st.err == nil {
		st.err = &CaptureError{Err: ErrCaptureFailed}
	}
}

// Capture requests one frame of the given output and blocks, pumping
// the service dispatch loop, until the frame is ready, the service
// reports failure, or ctx is cancelled. On success the caller owns the
// returned frame and must Release it.
func (c *Coordinator) Capture(ctx context.Context, output OutputHandle) (*CapturedFrame, error) {
	log := logger.WithComponent("screencopy")

	st := &captureState{}
	session, err := c.svc.RequestCapture(output, st)
	if err != nil {
		return nil, &CaptureError{Err: fmt.Errorf("request capture: %w", err)}
	}
	st.session = session

	for !st.done && st.err == nil {
		select {
		case <-ctx.Done():
			st.err = &CaptureError{Err: ctx.Err()}
		default:
			if _, err := c.svc.DispatchPending(); err != nil {
				st.err = &CaptureError{Err: fmt.Errorf("dispatch: %w", err)}
			}
		}
	}

	if st.err != nil {
		session.Destroy()
		if st.shmBuf != nil {
			st.shmBuf.Close()
		}
		log.Error().Err(st.err).Uint32("output", uint32(output)).Msg("Capture failed")
		return nil, st.err
	}

	log.Debug().
		Int("width", st.buf.Width).
		Int("height", st.buf.Height).
		Int("stride", st.buf.Stride).
		Stringer("format", st.buf.Format).
		Bool("y_invert", st.yInvert).
		Msg("Frame captured")

	return &CapturedFrame{
		Buffer:  st.buf,
		YInvert: st.yInvert,
		shm:     st.shmBuf,
		session: session,
	}, nil
}
