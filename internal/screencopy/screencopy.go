// Package screencopy coordinates asynchronous single-frame captures
// against a compositor screen-capture service.
//
// The service follows an asymmetric allocate-then-copy handshake: it
// announces the frame geometry through a buffer callback, the client
// provisions a shared-memory buffer and submits it, and the service
// copies the frame in before signalling ready or failed. Callback
// delivery is driven by pumping DispatchPending.
package screencopy

import (
	"errors"
	"fmt"

	"github.com/lockveil/lockveil/internal/frame"
	"github.com/lockveil/lockveil/internal/shm"
)

// OutputHandle identifies a display output to capture from. For the
// X11 backend this is a drawable ID.
type OutputHandle uint32

// FrameListener receives the capture callbacks for one request, in
// order: HandleBuffer, optionally HandleFlags, then exactly one of
// HandleReady or HandleFailed.
type FrameListener interface {
	// HandleBuffer announces the negotiated frame geometry. The
	// listener must provision a buffer and submit it through the
	// session before the copy can proceed.
	HandleBuffer(format frame.Format, width, height, stride int)

	// HandleFlags carries orientation metadata; yInvert means the
	// copied rows are bottom-up.
	HandleFlags(yInvert bool)

	// HandleReady marks the copy complete.
	HandleReady()

	// HandleFailed marks the capture as terminally failed.
	HandleFailed()
}

// Session is one in-flight capture request.
type Session interface {
	// SubmitBuffer hands a provisioned shared buffer to the service
	// so it can copy the frame into it.
	SubmitBuffer(buf *shm.Buffer, width, height, stride int) error

	// Destroy releases the session's service-side resources.
	Destroy()
}

// Service is the compositor-side capture interface.
type Service interface {
	// RequestCapture begins an asynchronous capture of the given
	// output. Callbacks are delivered through DispatchPending.
	RequestCapture(output OutputHandle, l FrameListener) (Session, error)

	// DispatchPending delivers queued callbacks and returns how many
	// events were processed. An error means the connection to the
	// service is unrecoverable.
	DispatchPending() (int, error)
}

// ErrCaptureFailed is the sentinel cause when the service reports a
// failed frame copy.
var ErrCaptureFailed = errors.New("compositor reported capture failure")

// CaptureError wraps any terminal capture failure: a failed callback,
// a dispatch connection error, or a cancelled wait.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("screencopy: capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports a negotiated pixel format outside
// the supported packed 32-bit set. Checked eagerly at buffer
// negotiation, before any buffer is allocated.
type UnsupportedFormatError struct {
	Format frame.Format
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("screencopy: unsupported pixel format %s", e.Format)
}
