package framesource

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrame(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	require.NoError(t, imaging.Save(img, path))
}

func nextFrame(t *testing.T, ch <-chan Frame) Frame {
	t.Helper()
	select {
	case f, ok := <-ch:
		require.True(t, ok, "frame channel closed")
		return f
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func TestWatch_EmitsDecodedFrames(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames, err := Watch(ctx, Config{Dir: dir, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o600))
	writeFrame(t, filepath.Join(dir, "capture_overlay.png"), 8, 8)
	writeFrame(t, filepath.Join(dir, "capture.png"), 64, 48)

	f := nextFrame(t, frames)
	assert.Equal(t, filepath.Join(dir, "capture.png"), f.Path)
	assert.Equal(t, image.Rect(0, 0, 64, 48), f.Image.Bounds())
	assert.Equal(t, 64, f.Meta.Width)
	assert.False(t, f.At.IsZero())

	select {
	case extra := <-frames:
		t.Fatalf("unexpected frame %s", extra.Path)
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case _, ok := <-frames:
		assert.False(t, ok, "channel closes after cancel")
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatch_Errors(t *testing.T) {
	_, err := Watch(context.Background(), Config{})
	require.Error(t, err)

	_, err = Watch(context.Background(), Config{Dir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "frame.png")
	writeFrame(t, file, 4, 4)
	_, err = Watch(context.Background(), Config{Dir: file})
	assert.ErrorContains(t, err, "not a directory")
}

func TestStable(t *testing.T) {
	now := time.Now()
	pending := map[string]time.Time{
		"b.png": now.Add(-2 * time.Second),
		"a.png": now.Add(-2 * time.Second),
		"c.png": now.Add(-3 * time.Second),
		"d.png": now,
	}
	assert.Equal(t, []string{"c.png", "a.png", "b.png"}, stable(pending, now, time.Second))
}

func TestExisting(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "b.jpg"), 4, 4)
	writeFrame(t, filepath.Join(dir, "a.png"), 4, 4)
	writeFrame(t, filepath.Join(dir, "a_overlay.png"), 4, 4)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), nil, 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o750))

	got, err := Existing(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.jpg")}, got)

	_, err = Existing(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
