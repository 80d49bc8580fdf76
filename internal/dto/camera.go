package dto

import "time"

type CameraStatusResponse struct {
	SessionID        string     `json:"session_id,omitempty"`
	Running          bool       `json:"running"`
	Starting         bool       `json:"starting,omitempty"`
	Message          string     `json:"message"`
	Kind             string     `json:"kind"`
	FPS              int        `json:"fps"`
	Faces            int        `json:"faces"`
	Analyzing        bool       `json:"analyzing"`
	BackendAvailable bool       `json:"backend_available"`
	DebugMode        bool       `json:"debug_mode"`
	AutoCapture      bool       `json:"auto_capture"`
	SmileThreshold   float64    `json:"smile_threshold"`
	CooldownMS       int64      `json:"cooldown_ms"`
	LastCapture      *time.Time `json:"last_capture,omitempty"`
}

type FaceResponse struct {
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	Width             float64 `json:"width"`
	Height            float64 `json:"height"`
	Emotion           string  `json:"emotion"`
	EmotionConfidence float64 `json:"emotion_confidence"`
	SmileProbability  float64 `json:"smile_probability"`
	Age               string  `json:"age"`
	AgeConfidence     float64 `json:"age_confidence"`
	Gender            string  `json:"gender"`
	GenderConfidence  float64 `json:"gender_confidence"`
}

type DetectionResultResponse struct {
	Seq        uint64         `json:"seq"`
	Source     string         `json:"source"`
	ProducedAt time.Time      `json:"produced_at"`
	Faces      []FaceResponse `json:"faces"`
}

type UpdateCameraRequest struct {
	AutoCapture *bool `json:"auto_capture,omitempty"`
	DebugMode   *bool `json:"debug_mode,omitempty"`
}

type CaptureResponse struct {
	Captured bool   `json:"captured"`
	Message  string `json:"message"`
}

type ReconnectResponse struct {
	BackendAvailable bool   `json:"backend_available"`
	Message          string `json:"message"`
}
