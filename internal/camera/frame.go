package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
)

// Snapshot JPEG quality is kept within 80-90.
const (
	DefaultQuality = 80
	MinQuality     = 80
	MaxQuality     = 90
)

// Frame is a single JPEG-encoded image from the live stream. Frames are
// read-only once published.
type Frame struct {
	Seq       uint64
	Timestamp int64
	Data      []byte
	Width     int
	Height    int
}

// Source wraps a camera device. CurrentFrame and Snapshot return nil while the
// stream is not ready; callers must tolerate that on every call.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	CurrentFrame() *Frame
	Snapshot() []byte
	Frames() <-chan struct{}
	// Lost is closed when the running stream ends without Stop being
	// called. Err then reports why. Both are reset by Start.
	Lost() <-chan struct{}
	Err() error
}

// ClampQuality keeps a snapshot quality inside [MinQuality, MaxQuality].
// Zero selects DefaultQuality.
func ClampQuality(quality int) int {
	switch {
	case quality == 0:
		return DefaultQuality
	case quality < MinQuality:
		return MinQuality
	case quality > MaxQuality:
		return MaxQuality
	}
	return quality
}

// EncodeSnapshot re-encodes a frame at the given JPEG quality, clamped by
// ClampQuality.
func EncodeSnapshot(frame *Frame, quality int) ([]byte, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	quality = ClampQuality(quality)

	img, err := jpeg.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func frameDimensions(data []byte) (int, int, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
