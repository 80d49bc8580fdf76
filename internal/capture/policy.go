package capture

import (
	"sync"
	"time"

	"github.com/eleven-am/smart-selfie/internal/vision"
)

const (
	DefaultThreshold = 0.6
	DefaultCooldown  = 2500 * time.Millisecond
)

// Policy decides when a smiling face triggers an automatic capture. It fires
// at most once per cooldown window.
type Policy struct {
	mu          sync.Mutex
	enabled     bool
	threshold   float64
	cooldown    time.Duration
	windowStart time.Time
	lastCapture time.Time
}

func NewPolicy(enabled bool, threshold float64, cooldown time.Duration) *Policy {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Policy{enabled: enabled, threshold: threshold, cooldown: cooldown}
}

// Offer reports whether face should be captured now and, if so, starts a new
// cooldown window.
func (p *Policy) Offer(face vision.DetectedFace, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || face.SmileProbability <= p.threshold {
		return false
	}
	if !p.windowStart.IsZero() && now.Sub(p.windowStart) < p.cooldown {
		return false
	}
	p.windowStart = now
	p.lastCapture = now
	return true
}

// Mark starts a cooldown window without a smile check, for manual captures.
func (p *Policy) Mark(now time.Time) {
	p.mu.Lock()
	p.windowStart = now
	p.lastCapture = now
	p.mu.Unlock()
}

// Arm starts a cooldown window without recording a capture.
func (p *Policy) Arm(now time.Time) {
	p.mu.Lock()
	p.windowStart = now
	p.mu.Unlock()
}

func (p *Policy) SetEnabled(enabled bool) {
	p.mu.Lock()
	p.enabled = enabled
	p.mu.Unlock()
}

func (p *Policy) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *Policy) Configure(threshold float64, cooldown time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if threshold > 0 && threshold < 1 {
		p.threshold = threshold
	}
	if cooldown > 0 {
		p.cooldown = cooldown
	}
}

func (p *Policy) Threshold() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threshold
}

func (p *Policy) Cooldown() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cooldown
}

// LastCapture is the time of the most recent capture, zero if none yet.
func (p *Policy) LastCapture() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCapture
}
