package camera

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStaticSource_NotReadyBeforeStart(t *testing.T) {
	src := NewStaticSource([][]byte{testJPEG(t, 8, 8)}, 30, 80)

	for i := 0; i < 3; i++ {
		if src.CurrentFrame() != nil {
			t.Fatal("expected nil frame before start")
		}
		if src.Snapshot() != nil {
			t.Fatal("expected nil snapshot before start")
		}
	}
}

func TestStaticSource_StartPublishesFrames(t *testing.T) {
	src := NewStaticSource([][]byte{testJPEG(t, 40, 30)}, 100, 80)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer src.Stop()

	select {
	case <-src.Frames():
	case <-time.After(time.Second):
		t.Fatal("expected frame-ready signal")
	}

	frame := src.CurrentFrame()
	if frame == nil {
		t.Fatal("expected current frame")
	}
	if frame.Width != 40 || frame.Height != 30 {
		t.Errorf("expected 40x30, got %dx%d", frame.Width, frame.Height)
	}

	snap := src.Snapshot()
	if len(snap) < 2 || snap[0] != 0xFF || snap[1] != 0xD8 {
		t.Error("expected snapshot to be a JPEG")
	}
}

func TestStaticSource_StopClearsFrame(t *testing.T) {
	src := NewStaticSource([][]byte{testJPEG(t, 8, 8)}, 100, 80)
	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.CurrentFrame() != nil {
		t.Error("expected nil frame after stop")
	}
	if err := src.Stop(); err != nil {
		t.Errorf("expected second stop to be a no-op, got %v", err)
	}
}

func TestStaticSource_AdvanceIncrementsSeq(t *testing.T) {
	src := NewStaticSource([][]byte{testJPEG(t, 8, 8), testJPEG(t, 16, 16)}, 30, 80)

	first := src.Advance()
	second := src.Advance()
	if first == nil || second == nil {
		t.Fatal("expected frames")
	}
	if second.Seq != first.Seq+1 {
		t.Errorf("expected sequential seq, got %d then %d", first.Seq, second.Seq)
	}
	if second.Width != 16 {
		t.Errorf("expected second frame width 16, got %d", second.Width)
	}
}

func TestStaticSource_EmptyFails(t *testing.T) {
	src := NewStaticSource(nil, 30, 80)
	if err := src.Start(context.Background()); err == nil {
		t.Error("expected error for empty source")
	}
}

func TestLoadStaticSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.jpg"), testJPEG(t, 16, 16), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jpeg"), testJPEG(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := LoadStaticSource(dir, 30, 80)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(src.frames))
	}
	if f := src.Advance(); f == nil || f.Width != 8 {
		t.Errorf("expected a.jpeg first")
	}
}

func TestEncodeSnapshot_RejectsEmpty(t *testing.T) {
	if _, err := EncodeSnapshot(nil, 80); err == nil {
		t.Error("expected error for nil frame")
	}
}
