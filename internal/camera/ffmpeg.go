package camera

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/eleven-am/smart-selfie/internal/shared"
)

const megabyte = 1024 * 1024

type FFmpegConfig struct {
	Device  string
	Format  string
	Width   int
	Height  int
	FPS     int
	Quality int
	Warmup  time.Duration
	Logger  *slog.Logger
}

// FFmpegSource reads an MJPEG stream from ffmpeg's stdout and keeps the most
// recent complete frame.
type FFmpegSource struct {
	cfg    FFmpegConfig
	logger *slog.Logger
	ready  chan struct{}

	mu      sync.RWMutex
	latest  *Frame
	seq     uint64
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	lost    chan struct{}
	err     error
}

func NewFFmpegSource(cfg FFmpegConfig) *FFmpegSource {
	if cfg.Device == "" {
		cfg.Device = "/dev/video0"
	}
	if cfg.Format == "" {
		cfg.Format = "v4l2"
	}
	if cfg.FPS == 0 {
		cfg.FPS = 30
	}
	cfg.Quality = ClampQuality(cfg.Quality)
	if cfg.Warmup == 0 {
		cfg.Warmup = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &FFmpegSource{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "ffmpeg-source", "device", cfg.Device),
		ready:  make(chan struct{}, 1),
	}
}

func (s *FFmpegSource) args() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", s.cfg.Format}
	if s.cfg.FPS > 0 {
		args = append(args, "-framerate", strconv.Itoa(s.cfg.FPS))
	}
	if s.cfg.Width > 0 && s.cfg.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", s.cfg.Width, s.cfg.Height))
	}
	return append(args, "-i", s.cfg.Device, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

func (s *FFmpegSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("%w: ffmpeg not found", shared.ErrDeviceUnavailable)
	}

	// The stream outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(runCtx, "ffmpeg", s.args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", shared.ErrDeviceUnavailable, err)
	}

	first := make(chan struct{})
	done := make(chan struct{})

	go func() {
		var once sync.Once

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, megabyte), 16*megabyte)
		scanner.Split(SplitJpeg)

		for scanner.Scan() {
			if s.publish(scanner.Bytes()) {
				once.Do(func() { close(first) })
			}
		}
		if err := scanner.Err(); err != nil {
			s.logger.Warn("frame scanner stopped", "error", err)
		}
		waitErr := cmd.Wait()
		close(done)

		if runCtx.Err() == nil {
			s.logger.Error("ffmpeg exited", "error", waitErr, "stderr", stderr.String())
			s.streamLost(done, cancel, fmt.Errorf("%w: ffmpeg exited: %s", shared.ErrDeviceUnavailable, exitReason(waitErr, &stderr)))
		}
	}()

	timer := time.NewTimer(s.cfg.Warmup)
	defer timer.Stop()

	select {
	case <-first:
	case <-done:
		cancel()
		return fmt.Errorf("%w: %s", shared.ErrDeviceUnavailable, exitReason(nil, &stderr))
	case <-timer.C:
		cancel()
		<-done
		return fmt.Errorf("%w: no frames within %s", shared.ErrDeviceUnavailable, s.cfg.Warmup)
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}

	s.mu.Lock()
	select {
	case <-done:
		s.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: ffmpeg exited after the first frame: %s", shared.ErrDeviceUnavailable, exitReason(nil, &stderr))
	default:
	}
	s.cancel = cancel
	s.done = done
	s.running = true
	s.lost = make(chan struct{})
	s.err = nil
	s.mu.Unlock()

	s.logger.Info("camera stream started", "args", s.args())
	return nil
}

// streamLost marks the stream dead when ffmpeg exits on its own. It only
// applies to the session whose reader finished.
func (s *FFmpegSource) streamLost(done chan struct{}, cancel context.CancelFunc, err error) {
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.done != done {
		return
	}
	s.running = false
	s.latest = nil
	s.cancel = nil
	s.done = nil
	s.err = err
	close(s.lost)
}

func exitReason(err error, stderr *bytes.Buffer) string {
	if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
		return string(msg)
	}
	if err != nil {
		return err.Error()
	}
	return "no output"
}

func (s *FFmpegSource) publish(data []byte) bool {
	width, height, ok := frameDimensions(data)
	if !ok {
		return false
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.seq++
	s.latest = &Frame{
		Seq:       s.seq,
		Timestamp: time.Now().UnixMilli(),
		Data:      buf,
		Width:     width,
		Height:    height,
	}
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return true
}

func (s *FFmpegSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.latest = nil
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.latest = nil
	s.mu.Unlock()
	s.logger.Info("camera stream stopped")
	return nil
}

func (s *FFmpegSource) CurrentFrame() *Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *FFmpegSource) Snapshot() []byte {
	frame := s.CurrentFrame()
	if frame == nil {
		return nil
	}
	data, err := EncodeSnapshot(frame, s.cfg.Quality)
	if err != nil {
		s.logger.Debug("snapshot failed", "error", err)
		return nil
	}
	return data
}

func (s *FFmpegSource) Frames() <-chan struct{} {
	return s.ready
}

func (s *FFmpegSource) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *FFmpegSource) Lost() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lost
}

func (s *FFmpegSource) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}
