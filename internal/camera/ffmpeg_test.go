package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/eleven-am/smart-selfie/internal/shared"
)

// installFakeFFmpeg puts a shell script named ffmpeg first on PATH. The
// script can read the test frame from $FRAME.
func installFakeFFmpeg(t *testing.T, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ffmpeg needs a POSIX shell")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	dir := t.TempDir()
	frame := filepath.Join(dir, "frame.jpg")
	if err := os.WriteFile(frame, testJPEG(t, 8, 8), 0o644); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
	script := "#!/bin/sh\nFRAME=" + frame + "\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(script), 0o755); err != nil {
		t.Fatalf("failed to write fake ffmpeg: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newTestFFmpegSource(warmup time.Duration) *FFmpegSource {
	return NewFFmpegSource(FFmpegConfig{Warmup: warmup})
}

func TestFFmpegSource_StartAndStop(t *testing.T) {
	installFakeFFmpeg(t, `cat "$FRAME"; exec sleep 30`)
	src := newTestFFmpegSource(2 * time.Second)

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !src.Running() {
		t.Error("expected running after start")
	}
	frame := src.CurrentFrame()
	if frame == nil || frame.Width != 8 || frame.Height != 8 {
		t.Fatalf("expected 8x8 frame, got %+v", frame)
	}
	if snap := src.Snapshot(); len(snap) < 2 || snap[0] != 0xFF || snap[1] != 0xD8 {
		t.Error("expected JPEG snapshot")
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if src.Running() || src.CurrentFrame() != nil {
		t.Error("expected stopped source without a frame")
	}
	select {
	case <-src.Lost():
		t.Error("Stop must not report a lost stream")
	default:
	}
	if src.Err() != nil {
		t.Errorf("expected no error after Stop, got %v", src.Err())
	}
}

func TestFFmpegSource_MissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	src := newTestFFmpegSource(time.Second)

	err := src.Start(context.Background())
	if !errors.Is(err, shared.ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestFFmpegSource_ExitBeforeFirstFrame(t *testing.T) {
	installFakeFFmpeg(t, `echo "/dev/video0: Permission denied" >&2; exit 1`)
	src := newTestFFmpegSource(2 * time.Second)

	err := src.Start(context.Background())
	if !errors.Is(err, shared.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Permission denied") {
		t.Errorf("expected stderr in error, got %v", err)
	}
	if src.Running() {
		t.Error("expected source to stay off")
	}
}

func TestFFmpegSource_WarmupTimeout(t *testing.T) {
	installFakeFFmpeg(t, `exec sleep 30`)
	src := newTestFFmpegSource(200 * time.Millisecond)

	start := time.Now()
	err := src.Start(context.Background())
	if !errors.Is(err, shared.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected Start to give up after warmup, took %v", elapsed)
	}
	if src.Running() {
		t.Error("expected source to stay off")
	}
}

func TestFFmpegSource_DeviceLostMidStream(t *testing.T) {
	installFakeFFmpeg(t, `cat "$FRAME"; sleep 0.3; echo "device disconnected" >&2; exit 1`)
	src := newTestFFmpegSource(2 * time.Second)

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-src.Lost():
	case <-time.After(3 * time.Second):
		t.Fatal("expected the lost signal after ffmpeg exited")
	}

	if src.Running() {
		t.Error("expected running=false after ffmpeg exited")
	}
	if src.CurrentFrame() != nil {
		t.Error("expected no stale frame after ffmpeg exited")
	}
	if err := src.Err(); !errors.Is(err, shared.ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Errorf("Stop() after loss error = %v", err)
	}
}

func TestFFmpegSource_RestartAfterLoss(t *testing.T) {
	installFakeFFmpeg(t, `cat "$FRAME"; sleep 0.2; exit 1`)
	src := newTestFFmpegSource(2 * time.Second)

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	first := src.Lost()
	<-first

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if src.Lost() == first {
		t.Error("expected a fresh lost channel per session")
	}
	if src.Err() != nil {
		t.Errorf("expected error reset on start, got %v", src.Err())
	}
	<-src.Lost()
}

func TestClampQuality(t *testing.T) {
	tests := map[int]int{0: DefaultQuality, 10: MinQuality, 80: 80, 85: 85, 90: 90, 100: MaxQuality}
	for in, want := range tests {
		if got := ClampQuality(in); got != want {
			t.Errorf("ClampQuality(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestFFmpegSource_Args(t *testing.T) {
	src := NewFFmpegSource(FFmpegConfig{Width: 640, Height: 480})
	args := src.args()

	want := map[string]bool{"/dev/video0": false, "v4l2": false, "640x480": false, "image2pipe": false}
	for _, a := range args {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("expected arg %q in %v", k, args)
		}
	}
}
