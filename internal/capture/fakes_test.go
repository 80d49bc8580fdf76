package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/smart-selfie/internal/camera"
	"github.com/eleven-am/smart-selfie/internal/gallery"
	"github.com/eleven-am/smart-selfie/internal/settings"
	"github.com/eleven-am/smart-selfie/internal/vision"
)

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(offset time.Duration) {
	c.mu.Lock()
	c.now = testEpoch.Add(offset)
	c.mu.Unlock()
}

type fakeSource struct {
	mu       sync.Mutex
	frame    *camera.Frame
	started  bool
	stopped  int
	startErr error
	ready    chan struct{}
	lost     chan struct{}
	err      error

	// gate, when set, holds Start until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		frame: &camera.Frame{Seq: 1, Data: []byte("not-a-jpeg"), Width: 640, Height: 480},
		ready: make(chan struct{}),
		lost:  make(chan struct{}),
	}
}

func (s *fakeSource) Start(context.Context) error {
	s.mu.Lock()
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	s.lost = make(chan struct{})
	s.err = nil
	return nil
}

// hold makes the next Start calls block until the returned func is called.
func (s *fakeSource) hold() (entered <-chan struct{}, release func()) {
	gate := make(chan struct{})
	in := make(chan struct{}, 1)
	s.mu.Lock()
	s.gate, s.entered = gate, in
	s.mu.Unlock()
	return in, func() { close(gate) }
}

// lose simulates the device going away mid-stream.
func (s *fakeSource) lose(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.frame = nil
	s.err = err
	close(s.lost)
}

func (s *fakeSource) Lost() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lost
}

func (s *fakeSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.stopped++
	return nil
}

func (s *fakeSource) CurrentFrame() *camera.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *fakeSource) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return nil
	}
	return []byte("snapshot")
}

func (s *fakeSource) Frames() <-chan struct{} {
	return s.ready
}

// scriptedProvider returns a fixed set of faces and records call times.
type scriptedProvider struct {
	mu    sync.Mutex
	clock Clock
	faces []vision.DetectedFace
	calls []time.Time
}

func (p *scriptedProvider) Analyze(_ context.Context, _ *camera.Frame) vision.DetectionResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, p.clock.Now())
	faces := make([]vision.DetectedFace, len(p.faces))
	copy(faces, p.faces)
	return vision.DetectionResult{Faces: faces, Source: vision.SourceRemote}
}

func (p *scriptedProvider) setFaces(faces ...vision.DetectedFace) {
	p.mu.Lock()
	p.faces = faces
	p.mu.Unlock()
}

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeBackend struct {
	mu        sync.Mutex
	provider  vision.Provider
	available bool
	checkErr  error
}

func (b *fakeBackend) Provider() vision.Provider { return b.provider }

func (b *fakeBackend) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

func (b *fakeBackend) Check(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = b.checkErr == nil
	return b.checkErr
}

func (b *fakeBackend) fail(err error) {
	b.mu.Lock()
	b.checkErr = err
	b.mu.Unlock()
}

type fakeDebug struct {
	result vision.DetectionResult
	err    error
	calls  int
}

func (d *fakeDebug) Detect(context.Context, []byte) (vision.DetectionResult, error) {
	d.calls++
	return d.result, d.err
}

type recordingGallery struct {
	mu     sync.Mutex
	photos []gallery.CapturedPhoto
	err    error
}

func (g *recordingGallery) Save(_ context.Context, p gallery.CapturedPhoto) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.photos = append(g.photos, p)
	return nil
}

func (g *recordingGallery) saved() []gallery.CapturedPhoto {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gallery.CapturedPhoto(nil), g.photos...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	active   bool
	statuses []Status
	frames   [][]byte
}

func (p *recordingPublisher) PublishStatus(s Status) {
	p.mu.Lock()
	p.statuses = append(p.statuses, s)
	p.mu.Unlock()
}

func (p *recordingPublisher) PublishFrame(f []byte) {
	p.mu.Lock()
	p.frames = append(p.frames, f)
	p.mu.Unlock()
}

func (p *recordingPublisher) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *recordingPublisher) last() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.statuses) == 0 {
		return Status{}
	}
	return p.statuses[len(p.statuses)-1]
}

// queue defers background work so tests choose completion order.
type queue struct {
	mu   sync.Mutex
	jobs []func()
}

func (q *queue) run(fn func()) {
	q.mu.Lock()
	q.jobs = append(q.jobs, fn)
	q.mu.Unlock()
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *queue) runAt(i int) {
	q.mu.Lock()
	fn := q.jobs[i]
	q.mu.Unlock()
	fn()
}

func syncRun(fn func()) { fn() }

type staticSettings struct {
	s   settings.Settings
	err error
}

func (s staticSettings) Get(context.Context) (settings.Settings, error) {
	return s.s, s.err
}

var errBackendDown = errors.New("connection refused")

func smilingFace(smile float64) vision.DetectedFace {
	return vision.DetectedFace{
		X: 100, Y: 100, Width: 120, Height: 150,
		Emotion: "happiness", EmotionConfidence: smile,
		SmileProbability: smile,
		Age:              "(25-32)", AgeConfidence: 0.9,
		Gender: "Female", GenderConfidence: 0.8,
	}
}
