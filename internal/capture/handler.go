package capture

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eleven-am/smart-selfie/internal/dto"
	"github.com/eleven-am/smart-selfie/internal/shared"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	manager *Manager
	hub     *Hub
	logger  *slog.Logger
}

func NewHandler(manager *Manager, hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		hub:     hub,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.PATCH("", h.Update)
	g.GET("/status", h.Status)
	g.POST("/on", h.TurnOn)
	g.POST("/off", h.TurnOff)
	g.POST("/capture", h.Capture)
	g.POST("/reconnect", h.Reconnect)
	g.GET("/frame", h.Frame)
	g.GET("/result", h.Result)
	g.GET("/ws", h.hub.Serve)
}

func (h *Handler) statusResponse() dto.CameraStatusResponse {
	s := h.manager.Status()
	resp := dto.CameraStatusResponse{
		SessionID:        s.SessionID,
		Running:          s.Running,
		Starting:         s.Starting,
		Message:          s.Message,
		Kind:             string(s.Kind),
		FPS:              s.FPS,
		Faces:            s.Faces,
		Analyzing:        s.Analyzing,
		BackendAvailable: s.BackendAvailable,
		DebugMode:        s.DebugMode,
		AutoCapture:      s.AutoCapture,
	}
	if p := h.manager.Policy(); p != nil {
		resp.SmileThreshold = p.Threshold()
		resp.CooldownMS = p.Cooldown().Milliseconds()
		if last := p.LastCapture(); !last.IsZero() {
			resp.LastCapture = &last
		}
	}
	return resp
}

// Status godoc
// @Summary      Get camera status
// @Description  Returns the current status line, counters and capture policy of the camera session
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.CameraStatusResponse
// @Router       /camera/status [get]
func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.statusResponse())
}

// TurnOn godoc
// @Summary      Turn the camera on
// @Description  Checks the analysis backend, opens the camera and starts a new detection session
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.CameraStatusResponse
// @Failure      409  {object}  shared.APIError  "Camera is already starting"
// @Failure      500  {object}  shared.APIError
// @Failure      503  {object}  shared.APIError  "Camera device unavailable"
// @Router       /camera/on [post]
func (h *Handler) TurnOn(c echo.Context) error {
	if _, err := h.manager.TurnOn(c.Request().Context()); err != nil {
		switch {
		case errors.Is(err, shared.ErrDeviceUnavailable):
			return shared.NewAPIError("camera_unavailable", MsgCameraDenied).
				WithDetails(err.Error()).
				ToHTTP(http.StatusServiceUnavailable)
		case errors.Is(err, shared.ErrConflict):
			return shared.Conflict("camera_starting", "camera is already starting")
		case errors.Is(err, shared.ErrCameraNotReady):
			return shared.Conflict("camera_off", "camera was turned off while starting")
		}
		h.logger.Error("failed to turn camera on", "error", err)
		return shared.InternalError("camera_failed", "failed to start camera")
	}
	return c.JSON(http.StatusOK, h.statusResponse())
}

// TurnOff godoc
// @Summary      Turn the camera off
// @Description  Stops the detection session and releases the camera device
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.CameraStatusResponse
// @Failure      500  {object}  shared.APIError
// @Router       /camera/off [post]
func (h *Handler) TurnOff(c echo.Context) error {
	if err := h.manager.TurnOff(); err != nil {
		h.logger.Error("failed to turn camera off", "error", err)
		return shared.InternalError("camera_failed", "failed to stop camera")
	}
	return c.JSON(http.StatusOK, h.statusResponse())
}

// Update godoc
// @Summary      Update camera toggles
// @Description  Switches auto-capture and debug mode. Auto-capture can only change while the camera is on
// @Tags         camera
// @Accept       json
// @Produce      json
// @Param        request  body      dto.UpdateCameraRequest  true  "Toggles to change"
// @Success      200      {object}  dto.CameraStatusResponse
// @Failure      400      {object}  shared.APIError
// @Failure      409      {object}  shared.APIError  "Camera is off"
// @Router       /camera [patch]
func (h *Handler) Update(c echo.Context) error {
	var req dto.UpdateCameraRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_request", "invalid request body")
	}

	// Auto-capture goes first so a rejected request changes nothing.
	if req.AutoCapture != nil {
		if err := h.manager.SetAutoCapture(*req.AutoCapture); err != nil {
			return shared.Conflict("camera_off", "camera is off")
		}
	}
	if req.DebugMode != nil {
		h.manager.SetDebugMode(*req.DebugMode)
	}
	return c.JSON(http.StatusOK, h.statusResponse())
}

// Capture godoc
// @Summary      Capture a photo now
// @Description  Saves the current frame to the gallery without waiting for a smile
// @Tags         camera
// @Produce      json
// @Success      202  {object}  dto.CaptureResponse
// @Failure      409  {object}  shared.APIError  "Camera is not streaming"
// @Router       /camera/capture [post]
func (h *Handler) Capture(c echo.Context) error {
	if err := h.manager.CaptureNow(); err != nil {
		return shared.Conflict("camera_not_ready", "camera is not streaming")
	}
	return c.JSON(http.StatusAccepted, dto.CaptureResponse{Captured: true, Message: "capture queued"})
}

// Reconnect godoc
// @Summary      Reconnect to the analysis backend
// @Description  Re-runs the backend health check and switches between remote and simulated detection
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.ReconnectResponse
// @Router       /camera/reconnect [post]
func (h *Handler) Reconnect(c echo.Context) error {
	ok, msg := h.manager.Reconnect(c.Request().Context())
	return c.JSON(http.StatusOK, dto.ReconnectResponse{BackendAvailable: ok, Message: msg})
}

// Frame godoc
// @Summary      Get the latest annotated frame
// @Description  Returns the newest frame with face overlays from the current or last session
// @Tags         camera
// @Produce      jpeg
// @Success      200  {file}    binary
// @Failure      404  {object}  shared.APIError
// @Failure      409  {object}  shared.APIError  "No camera session"
// @Failure      500  {object}  shared.APIError
// @Router       /camera/frame [get]
func (h *Handler) Frame(c echo.Context) error {
	data, err := h.manager.LatestFrame(c.Request().Context())
	switch {
	case errors.Is(err, shared.ErrCameraNotReady):
		return shared.Conflict("camera_not_ready", "no camera session")
	case errors.Is(err, shared.ErrNotFound):
		return shared.NotFound("frame_not_found", "no annotated frame yet")
	case err != nil:
		h.logger.Error("failed to load frame", "error", err)
		return shared.InternalError("frame_failed", "failed to load frame")
	}
	return c.Blob(http.StatusOK, "image/jpeg", data)
}

// Result godoc
// @Summary      Get the latest detection result
// @Description  Returns the newest accepted face detection of the current or last session
// @Tags         camera
// @Produce      json
// @Success      200  {object}  dto.DetectionResultResponse
// @Failure      404  {object}  shared.APIError
// @Failure      409  {object}  shared.APIError  "No camera session"
// @Failure      500  {object}  shared.APIError
// @Router       /camera/result [get]
func (h *Handler) Result(c echo.Context) error {
	result, err := h.manager.LatestResult(c.Request().Context())
	switch {
	case errors.Is(err, shared.ErrCameraNotReady):
		return shared.Conflict("camera_not_ready", "no camera session")
	case errors.Is(err, shared.ErrNotFound):
		return shared.NotFound("result_not_found", "no detection yet")
	case err != nil:
		h.logger.Error("failed to load detection result", "error", err)
		return shared.InternalError("result_failed", "failed to load detection result")
	}
	return c.JSON(http.StatusOK, resultToDTO(result))
}

func resultToDTO(r *vision.DetectionResult) dto.DetectionResultResponse {
	faces := make([]dto.FaceResponse, len(r.Faces))
	for i, f := range r.Faces {
		faces[i] = dto.FaceResponse{
			X:                 f.X,
			Y:                 f.Y,
			Width:             f.Width,
			Height:            f.Height,
			Emotion:           f.Emotion,
			EmotionConfidence: f.EmotionConfidence,
			SmileProbability:  f.SmileProbability,
			Age:               f.Age,
			AgeConfidence:     f.AgeConfidence,
			Gender:            f.Gender,
			GenderConfidence:  f.GenderConfidence,
		}
	}
	return dto.DetectionResultResponse{
		Seq:        r.Seq,
		Source:     string(r.Source),
		ProducedAt: r.ProducedAt,
		Faces:      faces,
	}
}
