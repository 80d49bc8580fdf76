package bootstrap

import (
	"github.com/eleven-am/smart-selfie/internal/capture"
	"github.com/eleven-am/smart-selfie/internal/gallery"
	"github.com/eleven-am/smart-selfie/internal/settings"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideGalleryStore(db *gorm.DB) *gallery.Store {
	return gallery.NewStore(db)
}

func ProvideSettingsStore(redisClient *redis.Client, cfg *Config) *settings.Store {
	return settings.NewStore(redisClient, settings.Settings{
		SmileThreshold: cfg.SmileThreshold,
		Cooldown:       cfg.CaptureCooldown,
		AutoCapture:    cfg.AutoCapture,
		Theme:          settings.ThemeDark,
	})
}

func ProvideFrameStore(redisClient *redis.Client, cfg *Config) *vision.Store {
	return vision.NewStore(redisClient, cfg.FrameTTL)
}

func ProvideSessionStore(store *vision.Store) capture.SessionStore {
	return store
}

func RunMigrations(galleryStore *gallery.Store) error {
	return galleryStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideGalleryStore,
		ProvideSettingsStore,
		ProvideFrameStore,
		ProvideSessionStore,
	),
	fx.Invoke(RunMigrations),
)
