package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/smart-selfie/internal/camera"
	"github.com/eleven-am/smart-selfie/internal/gallery"
	"github.com/eleven-am/smart-selfie/internal/settings"
	"github.com/eleven-am/smart-selfie/internal/shared"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"github.com/google/uuid"
)

type Backend interface {
	Providers
	Check(ctx context.Context) error
}

type SessionStore interface {
	FrameStore
	GetLatestFrame(ctx context.Context, sessionID string) (*camera.Frame, error)
	LatestResult(ctx context.Context, sessionID string) (*vision.DetectionResult, error)
	DeleteFrames(ctx context.Context, sessionID string) error
}

type SettingsSource interface {
	Get(ctx context.Context) (settings.Settings, error)
}

type ManagerConfig struct {
	Source    camera.Source
	Backend   Backend
	Debug     Detector
	Gallery   gallery.Gallery
	Store     SessionStore
	Settings  SettingsSource
	Publisher Publisher
	Interval  time.Duration
	Quality   int
	Clock     Clock
	Run       func(func())
	Logger    *slog.Logger
}

// Manager owns the single camera session. Turning the camera off is the
// explicit deactivate transition that releases the device.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu        sync.Mutex
	loop      *Loop
	policy    *Policy
	sessionID string
	debugMode bool
	offline   Status
	starting  bool
	abort     bool
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nopPublisher{}
	}
	return &Manager{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "capture-manager"),
		offline: Status{Message: MsgCameraOff, Kind: KindScanning},
	}
}

func backendMessage(err error) string {
	if err == nil {
		return MsgBackendConnected
	}
	var statusErr *vision.StatusError
	if errors.As(err, &statusErr) {
		return MsgBackendUnavailable
	}
	return MsgBackendOffline
}

// TurnOn probes the backend, opens the camera and starts a new session. A
// device failure leaves the camera off. The lock is not held while the
// device warms up, so status reads stay responsive.
func (m *Manager) TurnOn(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.loop != nil {
		id := m.sessionID
		m.mu.Unlock()
		return id, nil
	}
	if m.starting {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: camera is already starting", shared.ErrConflict)
	}
	m.starting = true
	m.abort = false
	m.offline = Status{Message: MsgCameraStarting, Kind: KindScanning}
	m.cfg.Publisher.PublishStatus(m.offlineLocked())
	previous := m.sessionID
	m.mu.Unlock()

	prefs, err := m.cfg.Settings.Get(ctx)
	if err != nil {
		m.logger.Warn("failed to load settings, using defaults", "error", err)
	}

	backendErr := m.cfg.Backend.Check(ctx)
	if backendErr != nil {
		m.logger.Warn("analysis backend unavailable", "error", backendErr)
	}

	startErr := m.cfg.Source.Start(ctx)

	m.mu.Lock()
	m.starting = false

	if startErr != nil {
		m.logger.Error("failed to start camera", "error", startErr)
		m.offline = Status{Message: MsgCameraDenied, Kind: KindError}
		m.cfg.Publisher.PublishStatus(m.offlineLocked())
		m.mu.Unlock()
		if !errors.Is(startErr, shared.ErrDeviceUnavailable) {
			startErr = errors.Join(shared.ErrDeviceUnavailable, startErr)
		}
		return "", startErr
	}

	if m.abort {
		m.abort = false
		if err := m.cfg.Source.Stop(); err != nil {
			m.logger.Warn("failed to stop camera", "error", err)
		}
		m.mu.Unlock()
		m.logger.Info("camera turned off while starting")
		return "", fmt.Errorf("%w: camera turned off while starting", shared.ErrCameraNotReady)
	}

	sessionID := uuid.NewString()
	policy := NewPolicy(prefs.AutoCapture, prefs.SmileThreshold, prefs.Cooldown)
	// The first automatic capture waits one full cooldown.
	policy.Arm(m.cfg.Clock.Now())

	var loop *Loop
	onLost := func(err error) { m.sourceLost(loop, err) }
	loop = NewLoop(LoopConfig{
		SessionID:    sessionID,
		Source:       m.cfg.Source,
		Providers:    m.cfg.Backend,
		Debug:        m.cfg.Debug,
		Gallery:      m.cfg.Gallery,
		Store:        m.cfg.Store,
		Publisher:    m.cfg.Publisher,
		Policy:       policy,
		Interval:     m.cfg.Interval,
		Quality:      m.cfg.Quality,
		DebugMode:    m.debugMode,
		Clock:        m.cfg.Clock,
		Run:          m.cfg.Run,
		Logger:       m.cfg.Logger,
		OnSourceLost: onLost,
	})
	m.sessionID = sessionID
	m.policy = policy
	m.loop = loop
	loop.Start()

	if backendErr != nil {
		loop.SetMessage(backendMessage(backendErr), KindScanning)
	} else {
		loop.SetMessage(MsgCameraInitialized, KindSuccess)
	}
	m.mu.Unlock()

	m.logger.Info("camera session started",
		"session_id", sessionID,
		"backend_available", backendErr == nil,
		"auto_capture", prefs.AutoCapture,
		"smile_threshold", policy.Threshold())

	m.purge(ctx, previous)
	return sessionID, nil
}

// purge drops the annotated frames and result left by an earlier session.
func (m *Manager) purge(ctx context.Context, sessionID string) {
	if sessionID == "" || m.cfg.Store == nil {
		return
	}
	if err := m.cfg.Store.DeleteFrames(ctx, sessionID); err != nil {
		m.logger.Warn("failed to purge previous session", "session_id", sessionID, "error", err)
	}
}

// TurnOff stops the loop and releases the camera. Safe to call when off.
// A start still in progress is abandoned once the device answers.
func (m *Manager) TurnOff() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.starting {
		m.abort = true
		m.offline = Status{Message: MsgCameraOff, Kind: KindScanning}
		m.cfg.Publisher.PublishStatus(m.offlineLocked())
		return nil
	}
	if m.loop == nil {
		return nil
	}

	m.loop.Stop()
	err := m.cfg.Source.Stop()
	if err != nil {
		m.logger.Warn("failed to stop camera", "error", err)
	}

	m.logger.Info("camera session stopped", "session_id", m.sessionID)
	m.loop = nil
	m.policy = nil
	m.offline = Status{Message: MsgCameraOff, Kind: KindScanning}
	m.cfg.Publisher.PublishStatus(m.offlineLocked())
	return err
}

// sourceLost tears down a session whose device went away on its own.
func (m *Manager) sourceLost(loop *Loop, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loop != loop {
		return
	}
	if stopErr := m.cfg.Source.Stop(); stopErr != nil {
		m.logger.Warn("failed to release lost camera", "error", stopErr)
	}

	m.logger.Error("camera session lost", "session_id", m.sessionID, "error", err)
	m.loop = nil
	m.policy = nil
	m.offline = Status{Message: MsgCameraLost, Kind: KindError}
	m.cfg.Publisher.PublishStatus(m.offlineLocked())
}

// Reconnect re-runs the backend health check. It is the only way back from
// simulated detection once the backend has been marked unavailable.
func (m *Manager) Reconnect(ctx context.Context) (bool, string) {
	err := m.cfg.Backend.Check(ctx)
	msg := backendMessage(err)
	kind := KindSuccess
	if err != nil {
		kind = KindScanning
	}

	m.mu.Lock()
	loop := m.loop
	if loop == nil {
		m.offline.Message, m.offline.Kind = msg, kind
		m.cfg.Publisher.PublishStatus(m.offlineLocked())
	}
	m.mu.Unlock()

	if loop != nil {
		loop.SetBackendAvailable(err == nil)
		loop.SetMessage(msg, kind)
	}
	return err == nil, msg
}

func (m *Manager) SetAutoCapture(enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loop == nil {
		return shared.ErrCameraNotReady
	}
	m.policy.SetEnabled(enabled)
	return nil
}

func (m *Manager) SetDebugMode(enabled bool) {
	m.mu.Lock()
	m.debugMode = enabled
	loop := m.loop
	m.mu.Unlock()

	if loop != nil {
		loop.SetDebugMode(enabled)
	}
}

// ApplySettings pushes changed preferences into the running session.
func (m *Manager) ApplySettings(s settings.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loop == nil {
		return
	}
	m.policy.Configure(s.SmileThreshold, s.Cooldown)
	m.policy.SetEnabled(s.AutoCapture)
	m.loop.SetThreshold(m.policy.Threshold())
}

func (m *Manager) CaptureNow() error {
	m.mu.Lock()
	loop := m.loop
	m.mu.Unlock()

	if loop == nil || !loop.CaptureNow() {
		return shared.ErrCameraNotReady
	}
	return nil
}

func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop != nil
}

// Policy returns the running session's capture policy, or nil when off.
func (m *Manager) Policy() *Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loop != nil {
		return m.loop.Status()
	}
	return m.offlineLocked()
}

func (m *Manager) offlineLocked() Status {
	s := m.offline
	s.BackendAvailable = m.cfg.Backend.Available()
	s.DebugMode = m.debugMode
	s.Starting = m.starting
	return s
}

// LatestFrame returns the most recent annotated frame of the current or last
// session.
func (m *Manager) LatestFrame(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	sessionID := m.sessionID
	m.mu.Unlock()

	if sessionID == "" {
		return nil, shared.ErrCameraNotReady
	}
	if m.cfg.Store == nil {
		if snap := m.cfg.Source.Snapshot(); snap != nil {
			return snap, nil
		}
		return nil, shared.ErrNotFound
	}

	frame, err := m.cfg.Store.GetLatestFrame(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, shared.ErrNotFound
	}
	return frame.Data, nil
}

// LatestResult returns the newest accepted detection of the current or last
// session.
func (m *Manager) LatestResult(ctx context.Context) (*vision.DetectionResult, error) {
	m.mu.Lock()
	sessionID, loop := m.sessionID, m.loop
	m.mu.Unlock()

	if sessionID == "" {
		return nil, shared.ErrCameraNotReady
	}
	if m.cfg.Store == nil {
		if loop == nil {
			return nil, shared.ErrNotFound
		}
		result := loop.Result()
		return &result, nil
	}

	result, err := m.cfg.Store.LatestResult(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, shared.ErrNotFound
	}
	return result, nil
}
