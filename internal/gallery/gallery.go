package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eleven-am/smart-selfie/internal/shared"
	"github.com/eleven-am/smart-selfie/internal/vision"
)

// Gallery persists captured photos.
type Gallery interface {
	Save(ctx context.Context, photo CapturedPhoto) error
}

// RemoteGallery hands photos to the analysis service. The response is only
// logged; the service is the source of truth for remote photos.
type RemoteGallery struct {
	client *vision.Client
	logger *slog.Logger
}

func NewRemoteGallery(client *vision.Client, logger *slog.Logger) *RemoteGallery {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteGallery{
		client: client,
		logger: logger.With("component", "remote-gallery"),
	}
}

func (g *RemoteGallery) Save(ctx context.Context, photo CapturedPhoto) error {
	resp, err := g.client.Capture(ctx, photo.Image, photo.Metadata())
	if err != nil {
		return fmt.Errorf("remote capture: %w", err)
	}
	g.logger.Info("photo stored remotely",
		"filename", resp.Filename,
		"success", resp.Success,
		"smile", photo.Face.SmileProbability)
	return nil
}

// LocalGallery writes images to disk and metadata to the database.
type LocalGallery struct {
	dir    string
	store  *Store
	logger *slog.Logger
}

func NewLocalGallery(dir string, store *Store, logger *slog.Logger) (*LocalGallery, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalGallery{
		dir:    dir,
		store:  store,
		logger: logger.With("component", "local-gallery"),
	}, nil
}

func (g *LocalGallery) Save(ctx context.Context, photo CapturedPhoto) error {
	if len(photo.Image) == 0 {
		return fmt.Errorf("empty image")
	}
	capturedAt := photo.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	filename := Filename(capturedAt)
	path := filepath.Join(g.dir, filename)
	if err := os.WriteFile(path, photo.Image, 0o644); err != nil {
		return fmt.Errorf("write photo: %w", err)
	}

	record := newPhoto(filename, capturedAt, photo.Metadata(), false)
	if err := g.store.Create(ctx, record); err != nil {
		os.Remove(path)
		return fmt.Errorf("save photo metadata: %w", err)
	}

	g.logger.Info("photo stored locally", "filename", filename, "smile", photo.Face.SmileProbability)
	return nil
}

func (g *LocalGallery) path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", shared.ErrNotFound
	}
	return filepath.Join(g.dir, filename), nil
}

func (g *LocalGallery) Image(filename string) ([]byte, error) {
	path, err := g.path(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, shared.ErrNotFound
	}
	return data, err
}

func (g *LocalGallery) Delete(ctx context.Context, filename string) error {
	path, err := g.path(filename)
	if err != nil {
		return err
	}
	if err := g.store.Delete(ctx, filename); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove photo: %w", err)
	}
	return nil
}

func (g *LocalGallery) Clear(ctx context.Context) (int64, error) {
	photos, err := g.store.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	n, err := g.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range photos {
		if path, err := g.path(p.Filename); err == nil {
			os.Remove(path)
		}
	}
	return n, nil
}

func (g *LocalGallery) Store() *Store {
	return g.store
}

// Router sends photos to the remote gallery while the backend is available
// and keeps them locally otherwise.
type Router struct {
	remote    Gallery
	local     Gallery
	available func() bool
}

func NewRouter(remote, local Gallery, available func() bool) *Router {
	return &Router{remote: remote, local: local, available: available}
}

func (r *Router) Save(ctx context.Context, photo CapturedPhoto) error {
	if r.available() {
		return r.remote.Save(ctx, photo)
	}
	return r.local.Save(ctx, photo)
}
