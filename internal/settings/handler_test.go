package settings

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/eleven-am/smart-selfie/internal/dto"
	"github.com/labstack/echo/v4"
)

type recordingListener struct {
	applied []Settings
}

func (l *recordingListener) ApplySettings(s Settings) {
	l.applied = append(l.applied, s)
}

func newTestHandler(t *testing.T) (*Handler, *recordingListener) {
	store, _ := newTestStore(t)
	listener := &recordingListener{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(store, listener, logger), listener
}

func TestHandler_Get(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/settings", nil), rec)

	if err := h.Get(c); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var resp dto.SettingsResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.SmileThreshold != 0.6 || resp.CooldownMS != 2500 || resp.Theme != "dark" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandler_Update(t *testing.T) {
	h, listener := newTestHandler(t)
	e := echo.New()

	body := `{"smile_threshold":0.7,"cooldown_ms":2000}`
	req := httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Update(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	var resp dto.SettingsResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.SmileThreshold != 0.7 || resp.CooldownMS != 2000 || !resp.AutoCapture {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(listener.applied) != 1 || listener.applied[0].SmileThreshold != 0.7 {
		t.Errorf("expected listener notified, got %+v", listener.applied)
	}
}

func TestHandler_UpdateInvalid(t *testing.T) {
	h, listener := newTestHandler(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"theme":"neon"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err := h.Update(e.NewContext(req, httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if len(listener.applied) != 0 {
		t.Error("expected listener not notified")
	}
}
