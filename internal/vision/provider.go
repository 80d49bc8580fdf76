package vision

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/smart-selfie/internal/camera"
)

// Provider produces a DetectionResult for a frame. Implementations never
// fail; errors degrade to a fallback result.
type Provider interface {
	Analyze(ctx context.Context, frame *camera.Frame) DetectionResult
}

var simulatedEmotions = []string{"happiness", "neutral", "surprise", "sadness"}

const simulatedFaceRate = 0.7

// SimulatedProvider fabricates plausible detections without a backend.
type SimulatedProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewSimulatedProvider(seed uint64) *SimulatedProvider {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SimulatedProvider{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

func (p *SimulatedProvider) Analyze(_ context.Context, frame *camera.Frame) DetectionResult {
	result := DetectionResult{
		Faces:      []DetectedFace{},
		ProducedAt: p.now(),
		Source:     SourceSimulated,
	}
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return result
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() >= simulatedFaceRate {
		return result
	}

	w, h := float64(frame.Width), float64(frame.Height)
	emotion := simulatedEmotions[p.rng.IntN(len(simulatedEmotions))]
	emotionConf := 0.6 + p.rng.Float64()*0.4

	smile := p.rng.Float64() * 0.3
	if emotion == "happiness" {
		smile = emotionConf
	}

	gender := "Female"
	if p.rng.Float64() >= 0.5 {
		gender = "Male"
	}

	result.Faces = append(result.Faces, DetectedFace{
		X:                 w*0.2 + p.rng.Float64()*w*0.6,
		Y:                 h*0.2 + p.rng.Float64()*h*0.6,
		Width:             w * 0.2,
		Height:            h * 0.25,
		Emotion:           emotion,
		EmotionConfidence: emotionConf,
		SmileProbability:  smile,
		Age:               "(25-32)",
		AgeConfidence:     0.8 + p.rng.Float64()*0.2,
		Gender:            gender,
		GenderConfidence:  0.7 + p.rng.Float64()*0.3,
	})
	return result
}

// RemoteProvider sends the frame to the analysis service and falls back to
// the simulated provider on any failure.
type RemoteProvider struct {
	client   *Client
	fallback Provider
	logger   *slog.Logger
}

func NewRemoteProvider(client *Client, fallback Provider, logger *slog.Logger) *RemoteProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteProvider{
		client:   client,
		fallback: fallback,
		logger:   logger.With("component", "remote-provider"),
	}
}

func (p *RemoteProvider) Analyze(ctx context.Context, frame *camera.Frame) DetectionResult {
	if frame == nil || len(frame.Data) == 0 {
		return p.fallback.Analyze(ctx, frame)
	}

	resp, err := p.client.Analyze(ctx, frame.Data)
	if err != nil {
		p.logger.Warn("analysis request failed, using simulation", "error", err, "frame_seq", frame.Seq)
		return p.fallback.Analyze(ctx, frame)
	}

	faces := resp.Faces
	if faces == nil {
		faces = []DetectedFace{}
	}
	return DetectionResult{
		Faces:      faces,
		ProducedAt: time.Now(),
		Source:     SourceRemote,
	}
}

// Selector owns the single backend-available flag and picks the provider
// variant from it.
type Selector struct {
	client    *Client
	remote    Provider
	simulated Provider
	available atomic.Bool
	logger    *slog.Logger
}

func NewSelector(client *Client, simulated Provider, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		client:    client,
		remote:    NewRemoteProvider(client, simulated, logger),
		simulated: simulated,
		logger:    logger.With("component", "provider-selector"),
	}
}

// Check runs the health check, records the outcome and returns the failure
// if there was one.
func (s *Selector) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := s.client.Health(ctx)
	ok := err == nil
	if prev := s.available.Swap(ok); prev != ok {
		s.logger.Info("analysis backend availability changed", "available", ok, "url", s.client.BaseURL())
	}
	return err
}

func (s *Selector) Available() bool {
	return s.available.Load()
}

func (s *Selector) Provider() Provider {
	if s.available.Load() {
		return s.remote
	}
	return s.simulated
}
