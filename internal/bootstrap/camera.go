package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eleven-am/smart-selfie/internal/camera"
	"github.com/eleven-am/smart-selfie/internal/capture"
	"github.com/eleven-am/smart-selfie/internal/gallery"
	"github.com/eleven-am/smart-selfie/internal/settings"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"go.uber.org/fx"
)

func ProvideVisionClient(cfg *Config) *vision.Client {
	return vision.NewClient(vision.Config{
		BaseURL: cfg.AnalysisURL,
		Timeout: cfg.AnalysisTimeout,
	})
}

func ProvideSelector(client *vision.Client, logger *slog.Logger) *vision.Selector {
	simulated := vision.NewSimulatedProvider(uint64(time.Now().UnixNano()))
	return vision.NewSelector(client, simulated, logger)
}

func ProvideBackend(selector *vision.Selector) capture.Backend {
	return selector
}

func ProvideDebugDetector(client *vision.Client) *vision.DebugDetector {
	return vision.NewDebugDetector(client)
}

func ProvideFrameSource(cfg *Config, logger *slog.Logger) (camera.Source, error) {
	switch cfg.CameraSource {
	case SourceReplay:
		return camera.LoadStaticSource(cfg.ReplayDir, cfg.CameraFPS, cfg.SnapshotQuality)
	case SourceFFmpeg:
		return camera.NewFFmpegSource(camera.FFmpegConfig{
			Device:  cfg.CameraDevice,
			Format:  cfg.CameraFormat,
			Width:   cfg.CameraWidth,
			Height:  cfg.CameraHeight,
			FPS:     cfg.CameraFPS,
			Quality: cfg.SnapshotQuality,
			Warmup:  cfg.CameraWarmup,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown camera source %q", cfg.CameraSource)
	}
}

func ProvideLocalGallery(cfg *Config, store *gallery.Store, logger *slog.Logger) (*gallery.LocalGallery, error) {
	return gallery.NewLocalGallery(cfg.CaptureDir, store, logger)
}

func ProvideGallery(client *vision.Client, local *gallery.LocalGallery, selector *vision.Selector, logger *slog.Logger) gallery.Gallery {
	return gallery.NewRouter(gallery.NewRemoteGallery(client, logger), local, selector.Available)
}

func ProvideHub(logger *slog.Logger) *capture.Hub {
	return capture.NewHub(logger)
}

type ManagerParams struct {
	fx.In

	Config   *Config
	Source   camera.Source
	Backend  capture.Backend
	Debug    *vision.DebugDetector
	Gallery  gallery.Gallery
	Store    capture.SessionStore
	Settings *settings.Store
	Hub      *capture.Hub
	Logger   *slog.Logger
}

func ProvideManager(p ManagerParams) *capture.Manager {
	return capture.NewManager(capture.ManagerConfig{
		Source:    p.Source,
		Backend:   p.Backend,
		Debug:     p.Debug,
		Gallery:   p.Gallery,
		Store:     p.Store,
		Settings:  p.Settings,
		Publisher: p.Hub,
		Interval:  p.Config.DetectInterval,
		Quality:   p.Config.SnapshotQuality,
		Logger:    p.Logger,
	})
}

// ManageCamera probes the analysis backend at startup and releases the
// device on shutdown.
func ManageCamera(lc fx.Lifecycle, manager *capture.Manager, selector *vision.Selector, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := selector.Check(ctx); err != nil {
				logger.Warn("analysis backend unavailable, using simulation", "error", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return manager.TurnOff()
		},
	})
}

var CameraModule = fx.Options(
	fx.Provide(
		ProvideVisionClient,
		ProvideSelector,
		ProvideBackend,
		ProvideDebugDetector,
		ProvideFrameSource,
		ProvideLocalGallery,
		ProvideGallery,
		ProvideHub,
		ProvideManager,
	),
	fx.Invoke(ManageCamera),
)
