package screencopy

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/lockveil/lockveil/internal/frame"
	"github.com/lockveil/lockveil/internal/logger"
	"github.com/lockveil/lockveil/internal/shm"
)

// X11Service implements Service on top of an X server connection.
// X11 screen grabs are synchronous, so the service adapts them to the
// asynchronous callback contract by queueing the callback deliveries
// and replaying them from DispatchPending.
type X11Service struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo

	mu      sync.Mutex
	pending []func()
}

// NewX11Service connects to the X server named by DISPLAY.
func NewX11Service() (*X11Service, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	return &X11Service{
		conn:   conn,
		screen: screen,
	}, nil
}

// Root returns the root window of the default screen as an output
// handle, covering the whole screen.
func (s *X11Service) Root() OutputHandle {
	return OutputHandle(s.screen.Root)
}

// Close shuts down the X connection.
func (s *X11Service) Close() error {
	s.conn.Close()
	return nil
}

func (s *X11Service) enqueue(fn func()) {
	s.mu.Lock()
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

// RequestCapture looks up the output's geometry and queues the buffer
// negotiation callback. X11 ZPixmap data on 24/32-bit visuals is
// little-endian BGRX, which matches XRGB8888.
func (s *X11Service) RequestCapture(output OutputHandle, l FrameListener) (Session, error) {
	drawable := xproto.Drawable(output)
	geom, err := xproto.GetGeometry(s.conn, drawable).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get output geometry: %w", err)
	}

	width := int(geom.Width)
	height := int(geom.Height)

	logger.WithComponent("x11-screencopy").Debug().
		Uint32("output", uint32(output)).
		Int("width", width).
		Int("height", height).
		Msg("Capture requested")

	sess := &x11Session{
		svc:      s,
		listener: l,
		drawable: drawable,
		width:    width,
		height:   height,
	}

	s.enqueue(func() {
		l.HandleBuffer(frame.FormatXRGB8888, width, height, width*frame.BytesPerPixel)
	})

	return sess, nil
}

// DispatchPending replays queued callback deliveries. Returns the
// number of events delivered; zero when nothing is queued.
func (s *X11Service) DispatchPending() (int, error) {
	s.mu.Lock()
	queued := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range queued {
		fn()
	}
	return len(queued), nil
}

type x11Session struct {
	svc      *X11Service
	listener FrameListener
	drawable xproto.Drawable
	width    int
	height   int
}

// SubmitBuffer grabs the output pixels and copies them into the
// provided shared buffer, then queues the flags and ready callbacks.
// A grab failure is delivered as a failed callback, matching the
// service contract.
func (sess *x11Session) SubmitBuffer(buf *shm.Buffer, width, height, stride int) error {
	if width != sess.width || height != sess.height {
		return fmt.Errorf("submitted buffer is %dx%d, output is %dx%d",
			width, height, sess.width, sess.height)
	}

	reply, err := xproto.GetImage(
		sess.svc.conn,
		xproto.ImageFormatZPixmap,
		sess.drawable,
		0, 0,
		uint16(width), uint16(height),
		0xffffffff,
	).Reply()
	if err != nil {
		logger.WithComponent("x11-screencopy").Error().Err(err).Msg("GetImage failed")
		sess.svc.enqueue(sess.listener.HandleFailed)
		return nil
	}

	dst := buf.Data()
	rowLen := width * frame.BytesPerPixel
	for y := 0; y < height && y*rowLen < len(reply.Data); y++ {
		src := reply.Data[y*rowLen:]
		if len(src) > rowLen {
			src = src[:rowLen]
		}
		copy(dst[y*stride:], src)
	}

	// X11 rows are already top-down.
	sess.svc.enqueue(func() { sess.listener.HandleFlags(false) })
	sess.svc.enqueue(sess.listener.HandleReady)
	return nil
}

func (sess *x11Session) Destroy() {}
