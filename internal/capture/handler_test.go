package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eleven-am/smart-selfie/internal/dto"
	"github.com/eleven-am/smart-selfie/internal/shared"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *managerFixture) {
	f := newManagerFixture(t)
	return NewHandler(f.manager, NewHub(discardLogger()), discardLogger()), f
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	h.RegisterRoutes(e.Group("/camera"))

	expected := map[string]bool{
		"PATCH /camera":          false,
		"GET /camera/status":     false,
		"POST /camera/on":        false,
		"POST /camera/off":       false,
		"POST /camera/capture":   false,
		"POST /camera/reconnect": false,
		"GET /camera/frame":      false,
		"GET /camera/result":     false,
		"GET /camera/ws":         false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := expected[key]; ok {
			expected[key] = true
		}
	}
	for route, seen := range expected {
		if !seen {
			t.Errorf("expected route %s to be registered", route)
		}
	}
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) dto.CameraStatusResponse {
	t.Helper()
	var resp dto.CameraStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandler_TurnOnAndStatus(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.TurnOn(e.NewContext(httptest.NewRequest(http.MethodPost, "/camera/on", nil), rec)); err != nil {
		t.Fatalf("TurnOn() error = %v", err)
	}
	resp := decodeStatus(t, rec)
	if !resp.Running || resp.SessionID == "" || resp.SmileThreshold != 0.7 || resp.CooldownMS != 2000 {
		t.Errorf("unexpected response: %+v", resp)
	}

	rec = httptest.NewRecorder()
	if err := h.TurnOff(e.NewContext(httptest.NewRequest(http.MethodPost, "/camera/off", nil), rec)); err != nil {
		t.Fatalf("TurnOff() error = %v", err)
	}
	if resp := decodeStatus(t, rec); resp.Running || resp.Message != MsgCameraOff {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandler_TurnOnDenied(t *testing.T) {
	h, f := newTestHandler(t)
	f.source.startErr = fmt.Errorf("%w: busy", shared.ErrDeviceUnavailable)

	e := echo.New()
	err := h.TurnOn(e.NewContext(httptest.NewRequest(http.MethodPost, "/camera/on", nil), httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestHandler_Update(t *testing.T) {
	h, f := newTestHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPatch, "/camera", strings.NewReader(`{"auto_capture":false,"debug_mode":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := h.Update(e.NewContext(req, httptest.NewRecorder()))
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while camera is off, got %v", err)
	}
	if f.manager.Status().DebugMode {
		t.Fatal("expected a rejected update to leave debug mode unchanged")
	}

	req = httptest.NewRequest(http.MethodPatch, "/camera", strings.NewReader(`{"debug_mode":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if err := h.Update(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("expected debug mode to change while off, got %v", err)
	}
	if !f.manager.Status().DebugMode {
		t.Error("expected debug mode enabled")
	}

	f.manager.TurnOn(context.Background())

	req = httptest.NewRequest(http.MethodPatch, "/camera", strings.NewReader(`{"auto_capture":false,"debug_mode":true}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Update(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	resp := decodeStatus(t, rec)
	if resp.AutoCapture || !resp.DebugMode {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandler_CaptureRequiresCamera(t *testing.T) {
	h, f := newTestHandler(t)
	e := echo.New()

	err := h.Capture(e.NewContext(httptest.NewRequest(http.MethodPost, "/camera/capture", nil), httptest.NewRecorder()))
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}

	f.manager.TurnOn(context.Background())
	rec := httptest.NewRecorder()
	if err := h.Capture(e.NewContext(httptest.NewRequest(http.MethodPost, "/camera/capture", nil), rec)); err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rec.Code)
	}
}

func TestHandler_Reconnect(t *testing.T) {
	h, f := newTestHandler(t)
	f.backend.fail(errBackendDown)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.Reconnect(e.NewContext(httptest.NewRequest(http.MethodPost, "/camera/reconnect", nil), rec)); err != nil {
		t.Fatalf("Reconnect() error = %v", err)
	}
	var resp dto.ReconnectResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.BackendAvailable || resp.Message != MsgBackendOffline {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandler_FrameWithoutSession(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()

	err := h.Frame(e.NewContext(httptest.NewRequest(http.MethodGet, "/camera/frame", nil), httptest.NewRecorder()))
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_StatusLastCapture(t *testing.T) {
	h, f := newTestHandler(t)
	e := echo.New()
	f.manager.TurnOn(context.Background())

	rec := httptest.NewRecorder()
	h.Status(e.NewContext(httptest.NewRequest(http.MethodGet, "/camera/status", nil), rec))
	if resp := decodeStatus(t, rec); resp.LastCapture != nil {
		t.Errorf("expected no last capture yet, got %v", resp.LastCapture)
	}

	if err := f.manager.CaptureNow(); err != nil {
		t.Fatal(err)
	}
	rec = httptest.NewRecorder()
	h.Status(e.NewContext(httptest.NewRequest(http.MethodGet, "/camera/status", nil), rec))
	resp := decodeStatus(t, rec)
	if resp.LastCapture == nil || !resp.LastCapture.Equal(testEpoch) {
		t.Errorf("expected last capture %v, got %v", testEpoch, resp.LastCapture)
	}
}

func TestHandler_Result(t *testing.T) {
	h, f := newTestHandler(t)
	e := echo.New()

	err := h.Result(e.NewContext(httptest.NewRequest(http.MethodGet, "/camera/result", nil), httptest.NewRecorder()))
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a session, got %v", err)
	}

	f.provider.setFaces(smilingFace(0.5))
	f.manager.TurnOn(context.Background())
	f.manager.loop.Tick()

	rec := httptest.NewRecorder()
	if err := h.Result(e.NewContext(httptest.NewRequest(http.MethodGet, "/camera/result", nil), rec)); err != nil {
		t.Fatalf("Result() error = %v", err)
	}
	var resp dto.DetectionResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Seq != 1 || len(resp.Faces) != 1 || resp.Faces[0].SmileProbability != 0.5 {
		t.Errorf("unexpected result: %+v", resp)
	}
}

func TestHandler_TurnOnWhileStarting(t *testing.T) {
	h, f := newTestHandler(t)
	e := echo.New()
	entered, release := f.source.hold()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.manager.TurnOn(context.Background())
	}()
	<-entered

	err := h.TurnOn(e.NewContext(httptest.NewRequest(http.MethodPost, "/camera/on", nil), httptest.NewRecorder()))
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409 while starting, got %v", err)
	}

	release()
	<-done
}
