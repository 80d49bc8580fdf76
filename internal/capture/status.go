package capture

import "fmt"

type StatusKind string

const (
	KindSuccess  StatusKind = "success"
	KindError    StatusKind = "error"
	KindScanning StatusKind = "scanning"
)

const (
	MsgCameraInitialized  = "Camera initialized"
	MsgCameraOff          = "Camera off"
	MsgCameraDenied       = "Camera access denied"
	MsgCameraLost         = "Camera disconnected"
	MsgCameraStarting     = "Starting camera..."
	MsgScanning           = "Scanning for faces..."
	MsgBackendConnected   = "Backend connected"
	MsgBackendUnavailable = "Backend unavailable - using simulation"
	MsgBackendOffline     = "Backend offline - using simulation"
	MsgPhotoCaptured      = "Photo captured!"
	MsgPhotoSimulated     = "Photo captured (simulation)!"
	MsgCaptureFailed      = "Capture failed"
	MsgNoFrame            = "Camera not ready"
	MsgDebugNoFaces       = "Debug: No faces detected"
	MsgDebugFailed        = "Debug request failed"
)

// Status is the user-visible state of the capture session.
type Status struct {
	SessionID        string     `json:"session_id,omitempty"`
	Message          string     `json:"message"`
	Kind             StatusKind `json:"kind"`
	FPS              int        `json:"fps"`
	Faces            int        `json:"faces"`
	Analyzing        bool       `json:"analyzing"`
	BackendAvailable bool       `json:"backend_available"`
	DebugMode        bool       `json:"debug_mode"`
	AutoCapture      bool       `json:"auto_capture"`
	Running          bool       `json:"running"`
	Starting         bool       `json:"starting,omitempty"`
}

func facesMessage(n int) (string, StatusKind) {
	if n == 0 {
		return MsgScanning, KindScanning
	}
	return fmt.Sprintf("%d face(s) detected", n), KindSuccess
}

func debugMessage(n int) (string, StatusKind) {
	if n == 0 {
		return MsgDebugNoFaces, KindScanning
	}
	return fmt.Sprintf("Debug: %d faces detected with live AI predictions", n), KindSuccess
}
