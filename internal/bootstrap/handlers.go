package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/smart-selfie/internal/capture"
	"github.com/eleven-am/smart-selfie/internal/gallery"
	"github.com/eleven-am/smart-selfie/internal/settings"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type HandlerParams struct {
	fx.In

	CameraHandler   *capture.Handler
	GalleryHandler  *gallery.Handler
	SettingsHandler *settings.Handler
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/api/v1")

	params.CameraHandler.RegisterRoutes(api.Group("/camera"))
	params.GalleryHandler.RegisterRoutes(api.Group("/gallery"))
	params.SettingsHandler.RegisterRoutes(api.Group("/settings"))
}

func ProvideCameraHandler(manager *capture.Manager, hub *capture.Hub, logger *slog.Logger) *capture.Handler {
	return capture.NewHandler(manager, hub, logger.With("handler", "camera"))
}

func ProvideGalleryHandler(local *gallery.LocalGallery, client *vision.Client, selector *vision.Selector, logger *slog.Logger) *gallery.Handler {
	return gallery.NewHandler(local, client, selector.Available, logger.With("handler", "gallery"))
}

func ProvideSettingsHandler(store *settings.Store, manager *capture.Manager, logger *slog.Logger) *settings.Handler {
	return settings.NewHandler(store, manager, logger.With("handler", "settings"))
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideCameraHandler,
		ProvideGalleryHandler,
		ProvideSettingsHandler,
	),
	fx.Invoke(RegisterRoutes),
)
