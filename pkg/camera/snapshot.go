package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// SnapshotDevices reads frames from an image file that an external grabber
// (fswebcam, ffmpeg, a NVR export) keeps overwriting. The stream's native
// resolution is the resolution of the file at open time.
type SnapshotDevices struct {
	Path string
}

func NewSnapshotDevices(path string) *SnapshotDevices {
	return &SnapshotDevices{Path: path}
}

func (d *SnapshotDevices) GetUserMedia(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Path == "" {
		return nil, fmt.Errorf("snapshot path not configured")
	}

	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}

	return &snapshotStream{
		path:   d.Path,
		width:  cfg.Width,
		height: cfg.Height,
		track:  newVideoTrack(),
	}, nil
}

type snapshotStream struct {
	path          string
	width, height int
	track         *videoTrack
}

func (s *snapshotStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *snapshotStream) Play(ctx context.Context) error {
	return ctx.Err()
}

func (s *snapshotStream) VideoSize() (int, int) {
	return s.width, s.height
}

func (s *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	if !s.track.Live() {
		return nil, errTrackEnded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return img, nil
}
