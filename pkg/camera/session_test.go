package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"greenbite/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deniedDevices struct{}

func (deniedDevices) GetUserMedia(context.Context, Constraints) (Stream, error) {
	return nil, errors.New("permission denied")
}

// blockingStream holds Frame until release is closed.
type blockingStream struct {
	track   *videoTrack
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStream) Tracks() []Track           { return []Track{s.track} }
func (s *blockingStream) Play(context.Context) error { return nil }
func (s *blockingStream) VideoSize() (int, int)      { return 4, 4 }
func (s *blockingStream) Frame(context.Context) (image.Image, error) {
	close(s.entered)
	<-s.release
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.White)
	return img, nil
}

type blockingDevices struct {
	stream *blockingStream
}

func (d blockingDevices) GetUserMedia(context.Context, Constraints) (Stream, error) {
	return d.stream, nil
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	devices := NewSyntheticDevices()
	s := NewSession(devices)
	assert.Equal(t, StateClosed, s.State())

	require.NoError(t, s.Open(ctx))
	assert.Equal(t, StateOpen, s.State())
	tracks := s.stream.Tracks()

	frame, err := s.CaptureFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOpen, s.State())

	img, err := jpeg.Decode(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 480, img.Bounds().Dy())

	s.Close()
	assert.Equal(t, StateClosed, s.State())
	for _, tr := range tracks {
		assert.False(t, tr.Live())
	}

	_, err = s.CaptureFrame(ctx)
	assert.ErrorIs(t, err, domain.ErrCapture)

	// idempotent
	s.Close()
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionCaptureBeforeOpen(t *testing.T) {
	s := NewSession(NewSyntheticDevices())
	_, err := s.CaptureFrame(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapture)
}

func TestSessionOpenDenied(t *testing.T) {
	s := NewSession(deniedDevices{})
	err := s.Open(context.Background())
	require.ErrorIs(t, err, domain.ErrDevice)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionConstraints(t *testing.T) {
	s := NewSession(NewSyntheticDevices(), WithConstraints(Constraints{Width: 32, Height: 24}))
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	frame, err := s.CaptureFrame(context.Background())
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 24, cfg.Height)
}

func TestSessionCloseDuringCapture(t *testing.T) {
	stream := &blockingStream{
		track:   newVideoTrack(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewSession(blockingDevices{stream: stream})
	require.NoError(t, s.Open(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := s.CaptureFrame(context.Background())
		done <- err
	}()

	<-stream.entered
	assert.Equal(t, StateCapturing, s.State())

	_, err := s.CaptureFrame(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapture, "second capture while capturing")

	s.Close()
	assert.False(t, stream.track.Live())
	close(stream.release)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("capture did not finish")
	}
	assert.Equal(t, StateClosed, s.State())

	_, err = s.CaptureFrame(context.Background())
	assert.ErrorIs(t, err, domain.ErrCapture)
}

func TestSnapshotDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.png")
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	s := NewSession(NewSnapshotDevices(path))
	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	frame, err := s.CaptureFrame(context.Background())
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)
}

func TestSnapshotDevicesMissingFile(t *testing.T) {
	s := NewSession(NewSnapshotDevices(filepath.Join(t.TempDir(), "missing.jpg")))
	err := s.Open(context.Background())
	assert.ErrorIs(t, err, domain.ErrDevice)
	assert.Equal(t, StateClosed, s.State())
}
