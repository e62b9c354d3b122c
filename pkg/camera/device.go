package camera

import (
	"context"
	"image"
	"sync/atomic"
)

const (
	FacingEnvironment = "environment"
	FacingUser        = "user"

	KindVideo = "video"
)

// Constraints describe the preferred stream. Width and Height are ideal
// values; a device may deliver a different native resolution.
type Constraints struct {
	Width      int
	Height     int
	FacingMode string
}

// DefaultConstraints asks for a 640x480 rear camera.
func DefaultConstraints() Constraints {
	return Constraints{
		Width:      640,
		Height:     480,
		FacingMode: FacingEnvironment,
	}
}

// Track is a single media track of a stream.
type Track interface {
	Kind() string
	Live() bool
	Stop()
}

// Stream is a live video stream handed out by MediaDevices.
//
// Implementations must guarantee:
//   - Play may be called once after acquisition
//   - VideoSize reports the native resolution of the frames
//   - Frame fails once every track is stopped
type Stream interface {
	Tracks() []Track
	Play(ctx context.Context) error
	VideoSize() (width, height int)
	Frame(ctx context.Context) (image.Image, error)
}

// MediaDevices grants access to a video stream.
type MediaDevices interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

type videoTrack struct {
	stopped atomic.Bool
}

func newVideoTrack() *videoTrack {
	return &videoTrack{}
}

func (t *videoTrack) Kind() string {
	return KindVideo
}

func (t *videoTrack) Live() bool {
	return !t.stopped.Load()
}

func (t *videoTrack) Stop() {
	t.stopped.Store(true)
}

// stopAll stops every track of s.
func stopAll(s Stream) {
	for _, track := range s.Tracks() {
		track.Stop()
	}
}
