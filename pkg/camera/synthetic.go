package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
)

var errTrackEnded = errors.New("video track ended")

// SyntheticDevices produces a moving test pattern at the requested ideal
// resolution. Useful for development without a camera.
type SyntheticDevices struct{}

func NewSyntheticDevices() *SyntheticDevices {
	return &SyntheticDevices{}
}

func (d *SyntheticDevices) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width, height := c.Width, c.Height
	if width <= 0 || height <= 0 {
		width, height = DefaultConstraints().Width, DefaultConstraints().Height
	}
	return &syntheticStream{
		width:  width,
		height: height,
		track:  newVideoTrack(),
	}, nil
}

type syntheticStream struct {
	width, height int
	track         *videoTrack

	mu  sync.Mutex
	seq uint64
}

func (s *syntheticStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *syntheticStream) Play(ctx context.Context) error {
	return ctx.Err()
}

func (s *syntheticStream) VideoSize() (int, int) {
	return s.width, s.height
}

func (s *syntheticStream) Frame(ctx context.Context) (image.Image, error) {
	if !s.track.Live() {
		return nil, errTrackEnded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	seq := s.seq
	s.seq++
	s.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shift := int(seq % 256)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x + shift) % 256),
				G: uint8((y + shift) % 256),
				B: uint8(shift),
				A: 255,
			})
		}
	}
	return img, nil
}
