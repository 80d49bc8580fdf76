package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// StaticSource replays a fixed list of JPEG frames in a loop.
type StaticSource struct {
	frames   [][]byte
	interval time.Duration
	quality  int
	ready    chan struct{}

	mu      sync.RWMutex
	latest  *Frame
	seq     uint64
	index   int
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	lost    chan struct{}
	err     error
}

func NewStaticSource(frames [][]byte, fps int, quality int) *StaticSource {
	if fps <= 0 {
		fps = 30
	}
	return &StaticSource{
		frames:   frames,
		interval: time.Second / time.Duration(fps),
		quality:  ClampQuality(quality),
		ready:    make(chan struct{}, 1),
	}
}

// LoadStaticSource reads every .jpg/.jpeg file in dir in name order.
func LoadStaticSource(dir string, fps int, quality int) (*StaticSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read replay dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".jpg" || ext == ".jpeg") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", name, err)
		}
		frames = append(frames, data)
	}
	return NewStaticSource(frames, fps, quality), nil
}

func (s *StaticSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if len(s.frames) == 0 {
		return fmt.Errorf("no frames to replay")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.index = 0
	s.lost = make(chan struct{})
	s.err = nil

	go s.run(runCtx, s.done)
	return nil
}

func (s *StaticSource) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Advance()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Advance()
		}
	}
}

// Advance publishes the next frame immediately. Tests use it to drive the
// stream without waiting on the ticker.
func (s *StaticSource) Advance() *Frame {
	s.mu.Lock()
	if len(s.frames) == 0 {
		s.mu.Unlock()
		return nil
	}
	data := s.frames[s.index%len(s.frames)]
	s.index++

	width, height, ok := frameDimensions(data)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.seq++
	frame := &Frame{
		Seq:       s.seq,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
		Width:     width,
		Height:    height,
	}
	s.latest = frame
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return frame
}

func (s *StaticSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.latest = nil
	s.mu.Unlock()
	return nil
}

func (s *StaticSource) CurrentFrame() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *StaticSource) Snapshot() []byte {
	frame := s.CurrentFrame()
	if frame == nil {
		return nil
	}
	data, err := EncodeSnapshot(frame, s.quality)
	if err != nil {
		return nil
	}
	return data
}

func (s *StaticSource) Frames() <-chan struct{} {
	return s.ready
}

// Lost never fires for a replay; the frames are already in memory.
func (s *StaticSource) Lost() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lost
}

func (s *StaticSource) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
