// Package camera owns the lifecycle of a video device: opening the stream,
// grabbing single frames as JPEG and releasing the device.
package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"sync"

	"greenbite/domain"

	"github.com/gofiber/fiber/v2/log"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCapturing:
		return "capturing"
	default:
		return "closed"
	}
}

// Session is the state machine Closed -> Open -> Capturing -> Open -> Closed
// around one device stream. Callers must Close the session on every exit
// path; Close is idempotent.
type Session struct {
	devices     MediaDevices
	constraints Constraints
	quality     int

	mu     sync.Mutex
	state  State
	stream Stream
}

type Option func(*Session)

func WithConstraints(c Constraints) Option {
	return func(s *Session) {
		s.constraints = c
	}
}

func WithJPEGQuality(q int) Option {
	return func(s *Session) {
		s.quality = q
	}
}

func NewSession(devices MediaDevices, opts ...Option) *Session {
	s := &Session{
		devices:     devices,
		constraints: DefaultConstraints(),
		quality:     jpeg.DefaultQuality,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open acquires the stream and starts playback. On failure the session stays
// Closed and the returned error wraps domain.ErrDevice. Opening an open
// session does nothing.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return nil
	}

	stream, err := s.devices.GetUserMedia(ctx, s.constraints)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDevice, err)
	}
	if err := stream.Play(ctx); err != nil {
		stopAll(stream)
		return fmt.Errorf("%w: %v", domain.ErrDevice, err)
	}

	s.stream = stream
	s.state = StateOpen

	w, h := stream.VideoSize()
	log.Infof("camera session opened (%dx%d)", w, h)
	return nil
}

// Close stops every track and detaches the stream. A capture in flight is
// allowed to finish or fail; no new capture can start afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		stopAll(s.stream)
		s.stream = nil
		log.Info("camera session closed")
	}
	s.state = StateClosed
}

// CaptureFrame renders the current video frame into a buffer of the stream's
// native size and encodes it as JPEG. It is only valid while Open.
func (s *Session) CaptureFrame(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.state != StateOpen || s.stream == nil {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session is %s", domain.ErrCapture, state)
	}
	stream := s.stream
	s.state = StateCapturing
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.state == StateCapturing {
			s.state = StateOpen
		}
		s.mu.Unlock()
	}()

	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCapture, err)
	}

	width, height := stream.VideoSize()
	if width <= 0 || height <= 0 {
		b := frame.Bounds()
		width, height = b.Dx(), b.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), frame, frame.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("%w: encode frame: %v", domain.ErrCapture, err)
	}
	return buf.Bytes(), nil
}
