package settings

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eleven-am/smart-selfie/internal/dto"
	"github.com/eleven-am/smart-selfie/internal/shared"
	"github.com/labstack/echo/v4"
)

// Listener is notified after settings change.
type Listener interface {
	ApplySettings(Settings)
}

type Handler struct {
	store    *Store
	listener Listener
	logger   *slog.Logger
}

func NewHandler(store *Store, listener Listener, logger *slog.Logger) *Handler {
	return &Handler{
		store:    store,
		listener: listener,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Get)
	g.PUT("", h.Update)
}

func toResponse(s Settings) dto.SettingsResponse {
	return dto.SettingsResponse{
		SmileThreshold: s.SmileThreshold,
		CooldownMS:     s.Cooldown.Milliseconds(),
		AutoCapture:    s.AutoCapture,
		Theme:          s.Theme,
	}
}

// Get godoc
// @Summary      Get settings
// @Description  Returns the persisted capture preferences
// @Tags         settings
// @Produce      json
// @Success      200  {object}  dto.SettingsResponse
// @Failure      500  {object}  shared.APIError
// @Router       /settings [get]
func (h *Handler) Get(c echo.Context) error {
	s, err := h.store.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		return shared.InternalError("settings_failed", "failed to load settings")
	}
	return c.JSON(http.StatusOK, toResponse(s))
}

// Update godoc
// @Summary      Update settings
// @Description  Changes capture preferences and applies them to the running camera session
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        request  body      dto.UpdateSettingsRequest  true  "Fields to change"
// @Success      200      {object}  dto.SettingsResponse
// @Failure      400      {object}  shared.APIError
// @Failure      500      {object}  shared.APIError
// @Router       /settings [put]
func (h *Handler) Update(c echo.Context) error {
	var req dto.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	patch := Patch{
		SmileThreshold: req.SmileThreshold,
		AutoCapture:    req.AutoCapture,
		Theme:          req.Theme,
	}
	if req.CooldownMS != nil {
		d := time.Duration(*req.CooldownMS) * time.Millisecond
		patch.Cooldown = &d
	}

	s, err := h.store.Update(c.Request().Context(), patch)
	if errors.Is(err, ErrInvalid) {
		return shared.BadRequest("invalid_settings", err.Error())
	}
	if err != nil {
		h.logger.Error("failed to save settings", "error", err)
		return shared.InternalError("settings_failed", "failed to save settings")
	}

	if h.listener != nil {
		h.listener.ApplySettings(s)
	}
	return c.JSON(http.StatusOK, toResponse(s))
}
