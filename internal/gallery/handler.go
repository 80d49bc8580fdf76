package gallery

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/smart-selfie/internal/dto"
	"github.com/eleven-am/smart-selfie/internal/shared"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	local     *LocalGallery
	client    *vision.Client
	available func() bool
	logger    *slog.Logger
}

func NewHandler(local *LocalGallery, client *vision.Client, available func() bool, logger *slog.Logger) *Handler {
	return &Handler{
		local:     local,
		client:    client,
		available: available,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:filename/image", h.Image)
	g.DELETE("/clear", h.Clear)
	g.DELETE("/:filename", h.Delete)
}

func metadataToDTO(m vision.CaptureMetadata) dto.PhotoMetadata {
	return dto.PhotoMetadata{
		SmileProb:    m.SmileProb,
		AgeLabel:     m.AgeLabel,
		AgeConf:      m.AgeConf,
		GenderLabel:  m.GenderLabel,
		GenderConf:   m.GenderConf,
		EmotionLabel: m.EmotionLabel,
		EmotionConf:  m.EmotionConf,
		X:            m.X,
		Y:            m.Y,
		W:            m.W,
		H:            m.H,
	}
}

func (h *Handler) remote(c echo.Context) bool {
	return c.QueryParam("source") == "remote"
}

// List godoc
// @Summary      List captured photos
// @Description  Returns the local gallery, or the analysis backend's gallery when source=remote
// @Tags         gallery
// @Produce      json
// @Param        source  query     string  false  "Set to remote to list the backend gallery"
// @Success      200     {object}  dto.PhotoListResponse
// @Failure      500     {object}  shared.APIError
// @Failure      503     {object}  shared.APIError  "Analysis backend unavailable"
// @Router       /gallery [get]
func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if h.remote(c) {
		if !h.available() {
			return shared.ServiceUnavailable("backend_unavailable", "analysis backend unavailable")
		}
		resp, err := h.client.Gallery(ctx)
		if err != nil {
			h.logger.Error("failed to fetch remote gallery", "error", err)
			return shared.ServiceUnavailable("gallery_failed", "failed to fetch remote gallery")
		}
		photos := make([]dto.PhotoResponse, len(resp.Photos))
		for i, p := range resp.Photos {
			photos[i] = dto.PhotoResponse{
				Filename:  p.Filename,
				Timestamp: p.Timestamp,
				Image:     p.Image,
				Metadata:  metadataToDTO(p.Metadata),
				Remote:    true,
			}
		}
		return c.JSON(http.StatusOK, dto.PhotoListResponse{Photos: photos, Count: len(photos)})
	}

	records, err := h.local.Store().List(ctx, 0)
	if err != nil {
		h.logger.Error("failed to list photos", "error", err)
		return shared.InternalError("list_failed", "failed to list photos")
	}

	photos := make([]dto.PhotoResponse, 0, len(records))
	for _, p := range records {
		resp := dto.PhotoResponse{
			Filename:  p.Filename,
			Timestamp: p.CapturedAt.Format(time.RFC3339),
			Metadata:  metadataToDTO(p.Metadata()),
		}
		if data, err := h.local.Image(p.Filename); err == nil {
			resp.Image = shared.EncodeJPEGDataURL(data)
		} else {
			h.logger.Warn("photo image missing", "filename", p.Filename, "error", err)
		}
		photos = append(photos, resp)
	}

	return c.JSON(http.StatusOK, dto.PhotoListResponse{Photos: photos, Count: len(photos)})
}

// Image godoc
// @Summary      Get a photo
// @Description  Returns the JPEG bytes of a locally captured photo
// @Tags         gallery
// @Produce      jpeg
// @Param        filename  path      string  true  "Photo filename"
// @Success      200       {file}    binary
// @Failure      404       {object}  shared.APIError
// @Failure      500       {object}  shared.APIError
// @Router       /gallery/{filename}/image [get]
func (h *Handler) Image(c echo.Context) error {
	data, err := h.local.Image(c.Param("filename"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("photo_not_found", "photo not found")
	}
	if err != nil {
		h.logger.Error("failed to read photo", "error", err, "filename", c.Param("filename"))
		return shared.InternalError("read_failed", "failed to read photo")
	}
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

// Delete godoc
// @Summary      Delete a photo
// @Description  Deletes one photo from the local gallery, or from the backend when source=remote
// @Tags         gallery
// @Param        filename  path   string  true   "Photo filename"
// @Param        source    query  string  false  "Set to remote to delete from the backend gallery"
// @Success      204  "No Content"
// @Failure      404  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /gallery/{filename} [delete]
func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	filename := c.Param("filename")

	if h.remote(c) {
		if err := h.client.DeletePhoto(ctx, filename); err != nil {
			h.logger.Error("failed to delete remote photo", "error", err, "filename", filename)
			return shared.ServiceUnavailable("delete_failed", "failed to delete remote photo")
		}
		return c.NoContent(http.StatusNoContent)
	}

	err := h.local.Delete(ctx, filename)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("photo_not_found", "photo not found")
	}
	if err != nil {
		h.logger.Error("failed to delete photo", "error", err, "filename", filename)
		return shared.InternalError("delete_failed", "failed to delete photo")
	}
	return c.NoContent(http.StatusNoContent)
}

// Clear godoc
// @Summary      Clear the gallery
// @Description  Deletes every photo from the local gallery, or from the backend when source=remote
// @Tags         gallery
// @Param        source  query  string  false  "Set to remote to clear the backend gallery"
// @Success      204  "No Content"
// @Failure      500  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError
// @Router       /gallery/clear [delete]
func (h *Handler) Clear(c echo.Context) error {
	ctx := c.Request().Context()

	if h.remote(c) {
		if err := h.client.ClearGallery(ctx); err != nil {
			h.logger.Error("failed to clear remote gallery", "error", err)
			return shared.ServiceUnavailable("clear_failed", "failed to clear remote gallery")
		}
		return c.NoContent(http.StatusNoContent)
	}

	n, err := h.local.Clear(ctx)
	if err != nil {
		h.logger.Error("failed to clear gallery", "error", err)
		return shared.InternalError("clear_failed", "failed to clear gallery")
	}
	h.logger.Info("gallery cleared", "removed", n)
	return c.NoContent(http.StatusNoContent)
}
