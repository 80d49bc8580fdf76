package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/smart-selfie/internal/camera"
	"github.com/eleven-am/smart-selfie/internal/gallery"
	"github.com/eleven-am/smart-selfie/internal/overlay"
	"github.com/eleven-am/smart-selfie/internal/vision"
)

const (
	DefaultInterval = time.Second
	fpsWindow       = time.Second
	messageHold     = 2 * time.Second
)

type Providers interface {
	Provider() vision.Provider
	Available() bool
}

type Detector interface {
	Detect(ctx context.Context, image []byte) (vision.DetectionResult, error)
}

type FrameStore interface {
	StoreFrame(ctx context.Context, sessionID string, frame *camera.Frame) error
	SaveResult(ctx context.Context, sessionID string, result vision.DetectionResult) error
}

// Publisher receives status changes and rendered frames.
type Publisher interface {
	PublishStatus(Status)
	PublishFrame([]byte)
	Active() bool
}

// LoopState is the per-session mutable state. It is reset on every start.
type LoopState struct {
	Running          bool
	LastDetection    time.Time
	FPS              int
	Analyzing        bool
	BackendAvailable bool
	DebugMode        bool
	Seq              uint64
	AcceptedSeq      uint64
}

type LoopConfig struct {
	SessionID string
	Source    camera.Source
	Providers Providers
	Debug     Detector
	Gallery   gallery.Gallery
	Store     FrameStore
	Publisher Publisher
	Policy    *Policy
	Interval  time.Duration
	Quality   int
	DebugMode bool
	Clock     Clock
	// Run launches background work. Defaults to a new goroutine per call.
	Run    func(func())
	Logger *slog.Logger
	// OnSourceLost runs on its own goroutine when the frame source ends
	// without Stop. The loop has already stopped by then.
	OnSourceLost func(error)
}

// Loop is one camera session's detection loop. Ticks are driven by the
// frame source's ready signal; detections run in the background and only
// the newest completion is applied.
type Loop struct {
	cfg    LoopConfig
	logger *slog.Logger
	clock  Clock
	run    func(func())
	bg     context.Context

	mu        sync.Mutex
	state     LoopState
	result    vision.DetectionResult
	renderer  *overlay.Renderer
	status    Status
	published Status
	holdUntil time.Time
	fpsCount  int
	fpsSince  time.Time

	stop chan struct{}
	done chan struct{}
}

type detection struct {
	seq      uint64
	frame    *camera.Frame
	debug    bool
	provider vision.Provider
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Run == nil {
		cfg.Run = func(fn func()) { go fn() }
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Policy == nil {
		cfg.Policy = NewPolicy(true, DefaultThreshold, DefaultCooldown)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nopPublisher{}
	}

	return &Loop{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "capture-loop", "session_id", cfg.SessionID),
		clock:    cfg.Clock,
		run:      cfg.Run,
		bg:       context.Background(),
		renderer: overlay.NewRenderer(cfg.Policy.Threshold()),
		result:   vision.DetectionResult{Faces: []vision.DetectedFace{}},
	}
}

// Start marks the loop running and begins consuming frame-ready signals.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.state.Running {
		l.mu.Unlock()
		return
	}
	l.state = LoopState{
		Running:          true,
		BackendAvailable: l.cfg.Providers.Available(),
		DebugMode:        l.cfg.DebugMode,
	}
	l.fpsSince = l.clock.Now()
	l.fpsCount = 0
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stop, l.done
	lost := l.cfg.Source.Lost()
	l.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-lost:
				l.sourceLost()
				return
			case <-l.cfg.Source.Frames():
				l.Tick()
			}
		}
	}()
}

// sourceLost ends the session after the device went away. Stop becomes a
// no-op for this loop.
func (l *Loop) sourceLost() {
	err := l.cfg.Source.Err()

	l.mu.Lock()
	if !l.state.Running {
		l.mu.Unlock()
		return
	}
	l.state.Running = false
	l.state.Analyzing = false
	l.mu.Unlock()

	l.logger.Error("camera stream lost", "error", err)
	if l.cfg.OnSourceLost != nil {
		go l.cfg.OnSourceLost(err)
	}
}

// Stop cancels scheduling. Detections already in flight finish on their own
// and their results are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.state.Running {
		l.mu.Unlock()
		return
	}
	l.state.Running = false
	l.state.Analyzing = false
	stop, done := l.stop, l.done
	l.mu.Unlock()

	close(stop)
	<-done
}

func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Running
}

func (l *Loop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop) Result() vision.DetectionResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked()
}

// publishLocked returns the current status and whether it differs from the
// last published one. Callers must hold l.mu.
func (l *Loop) publishLocked() (Status, bool) {
	s := l.statusLocked()
	changed := s != l.published
	l.published = s
	return s, changed
}

func (l *Loop) setMessageLocked(msg string, kind StatusKind) {
	if l.clock.Now().Before(l.holdUntil) {
		return
	}
	l.status.Message = msg
	l.status.Kind = kind
}

func (l *Loop) statusLocked() Status {
	s := l.status
	s.SessionID = l.cfg.SessionID
	s.FPS = l.state.FPS
	s.Faces = len(l.result.Faces)
	s.Analyzing = l.state.Analyzing
	s.BackendAvailable = l.state.BackendAvailable
	s.DebugMode = l.state.DebugMode
	s.AutoCapture = l.cfg.Policy.Enabled()
	s.Running = l.state.Running
	return s
}

// SetMessage pins a status line for a short while so per-tick face counts
// do not immediately replace it.
func (l *Loop) SetMessage(msg string, kind StatusKind) {
	l.mu.Lock()
	l.status.Message = msg
	l.status.Kind = kind
	l.holdUntil = l.clock.Now().Add(messageHold)
	s, _ := l.publishLocked()
	l.mu.Unlock()
	l.cfg.Publisher.PublishStatus(s)
}

func (l *Loop) SetDebugMode(enabled bool) {
	l.mu.Lock()
	l.state.DebugMode = enabled
	s, _ := l.publishLocked()
	l.mu.Unlock()
	l.cfg.Publisher.PublishStatus(s)
}

func (l *Loop) SetBackendAvailable(available bool) {
	l.mu.Lock()
	l.state.BackendAvailable = available
	l.mu.Unlock()
}

func (l *Loop) SetThreshold(threshold float64) {
	l.mu.Lock()
	l.renderer = overlay.NewRenderer(threshold)
	l.mu.Unlock()
}

// Tick runs one iteration: FPS accounting, throttled detection launch,
// auto-capture evaluation and overlay rendering.
func (l *Loop) Tick() {
	now := l.clock.Now()

	l.mu.Lock()
	if !l.state.Running {
		l.mu.Unlock()
		return
	}

	l.fpsCount++
	if now.Sub(l.fpsSince) >= fpsWindow {
		l.state.FPS = l.fpsCount
		l.fpsCount = 0
		l.fpsSince = now
	}

	frame := l.cfg.Source.CurrentFrame()
	if frame == nil {
		l.mu.Unlock()
		return
	}

	var job *detection
	if !l.state.Analyzing && (l.state.LastDetection.IsZero() || now.Sub(l.state.LastDetection) >= l.cfg.Interval) {
		l.state.Seq++
		l.state.Analyzing = true
		l.state.LastDetection = now
		job = &detection{
			seq:      l.state.Seq,
			frame:    frame,
			debug:    l.state.DebugMode && l.cfg.Providers.Available(),
			provider: l.cfg.Providers.Provider(),
		}
	}

	result := l.result
	renderer := l.renderer
	debugView := l.state.DebugMode && result.Source == vision.SourceDebug

	var captures []vision.DetectedFace
	if !debugView {
		l.setMessageLocked(facesMessage(len(result.Faces)))
		for _, face := range result.Faces {
			if l.cfg.Policy.Offer(face, now) {
				captures = append(captures, face)
			}
		}
	}
	status, changed := l.publishLocked()
	l.mu.Unlock()

	if changed {
		l.cfg.Publisher.PublishStatus(status)
	}
	if job != nil {
		l.run(func() { l.detect(job) })
	}
	for _, face := range captures {
		l.capture(face, now, false)
	}

	if !l.cfg.Publisher.Active() {
		return
	}
	if debugView {
		if len(result.DebugImage) > 0 {
			l.cfg.Publisher.PublishFrame(result.DebugImage)
		}
		return
	}
	annotated, err := renderer.Annotate(frame.Data, result.Faces, l.cfg.Quality)
	if err != nil {
		l.logger.Debug("overlay render failed", "error", err)
		return
	}
	l.cfg.Publisher.PublishFrame(annotated)
}

func (l *Loop) detect(job *detection) {
	var (
		result vision.DetectionResult
		err    error
	)
	if job.debug && l.cfg.Debug != nil {
		result, err = l.cfg.Debug.Detect(l.bg, job.frame.Data)
	} else {
		result = job.provider.Analyze(l.bg, job.frame)
	}
	result.Seq = job.seq
	l.complete(job, result, err)
}

// complete applies a finished detection if it is still the newest one and
// the loop has not been stopped in the meantime.
func (l *Loop) complete(job *detection, result vision.DetectionResult, err error) {
	l.mu.Lock()
	if !l.state.Running {
		l.mu.Unlock()
		l.logger.Debug("discarding detection after stop", "seq", job.seq)
		return
	}
	if job.seq == l.state.Seq {
		l.state.Analyzing = false
	}
	if err != nil {
		l.setMessageLocked(MsgDebugFailed, KindError)
		s, _ := l.publishLocked()
		l.mu.Unlock()
		l.logger.Warn("debug detection failed", "error", err, "seq", job.seq)
		l.cfg.Publisher.PublishStatus(s)
		return
	}
	if job.seq <= l.state.AcceptedSeq {
		l.mu.Unlock()
		l.logger.Debug("discarding stale detection", "seq", job.seq)
		return
	}

	if result.Faces == nil {
		result.Faces = []vision.DetectedFace{}
	}
	l.state.AcceptedSeq = job.seq
	l.result = result
	if result.Source == vision.SourceDebug {
		l.setMessageLocked(debugMessage(len(result.Faces)))
	} else {
		l.setMessageLocked(facesMessage(len(result.Faces)))
	}
	renderer := l.renderer
	s, _ := l.publishLocked()
	l.mu.Unlock()

	l.cfg.Publisher.PublishStatus(s)
	l.persist(job.frame, result, renderer)
}

func (l *Loop) persist(frame *camera.Frame, result vision.DetectionResult, renderer *overlay.Renderer) {
	if l.cfg.Store == nil {
		return
	}
	ctx := l.bg

	if err := l.cfg.Store.SaveResult(ctx, l.cfg.SessionID, result); err != nil {
		l.logger.Warn("failed to save detection result", "error", err)
	}

	data := result.DebugImage
	if len(data) == 0 {
		var err error
		data, err = renderer.Annotate(frame.Data, result.Faces, l.cfg.Quality)
		if err != nil {
			l.logger.Debug("failed to annotate frame", "error", err)
			return
		}
	}
	annotated := &camera.Frame{
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp,
		Data:      data,
		Width:     frame.Width,
		Height:    frame.Height,
	}
	if err := l.cfg.Store.StoreFrame(ctx, l.cfg.SessionID, annotated); err != nil {
		l.logger.Warn("failed to store annotated frame", "error", err)
	}
}

// capture snapshots the current frame and hands it to the gallery in the
// background.
func (l *Loop) capture(face vision.DetectedFace, now time.Time, manual bool) bool {
	snapshot := l.cfg.Source.Snapshot()
	if snapshot == nil {
		l.logger.Warn("capture skipped, no frame available")
		return false
	}

	photo := gallery.CapturedPhoto{Image: snapshot, Face: face, CapturedAt: now}
	l.run(func() {
		if err := l.cfg.Gallery.Save(l.bg, photo); err != nil {
			l.logger.Error("failed to save photo", "error", err, "manual", manual)
			if l.Running() {
				l.SetMessage(MsgCaptureFailed, KindError)
			}
			return
		}

		msg := MsgPhotoSimulated
		if l.cfg.Providers.Available() {
			msg = MsgPhotoCaptured
		}
		l.logger.Info("photo captured", "smile", face.SmileProbability, "manual", manual)
		if l.Running() {
			l.SetMessage(msg, KindSuccess)
		}
	})
	return true
}

// CaptureNow captures immediately with the first detected face, or an empty
// face when none is present.
func (l *Loop) CaptureNow() bool {
	l.mu.Lock()
	if !l.state.Running {
		l.mu.Unlock()
		return false
	}
	var face vision.DetectedFace
	if len(l.result.Faces) > 0 {
		face = l.result.Faces[0]
	}
	l.mu.Unlock()

	now := l.clock.Now()
	if !l.capture(face, now, true) {
		return false
	}
	l.cfg.Policy.Mark(now)
	return true
}

type nopPublisher struct{}

func (nopPublisher) PublishStatus(Status) {}
func (nopPublisher) PublishFrame([]byte)  {}
func (nopPublisher) Active() bool         { return false }
