package vision

import (
	"encoding/json"
	"time"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// ResultSource tags where a DetectionResult came from.
type ResultSource string

const (
	SourceRemote    ResultSource = "remote"
	SourceSimulated ResultSource = "simulated"
	SourceDebug     ResultSource = "debug"
)

// DetectedFace is one face with its attribute estimates. Coordinates are in
// frame pixel space; every confidence is in [0,1].
type DetectedFace struct {
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

// DetectionResult is replaced wholesale on every accepted detection.
type DetectionResult struct {
	Faces      []DetectedFace `json:"faces"`
	ProducedAt time.Time      `json:"produced_at"`
	Seq        uint64         `json:"seq"`
	Source     ResultSource   `json:"source"`
	DebugImage []byte         `json:"-"`
}

type HealthStatus struct {
	Status string          `json:"status"`
	Models map[string]bool `json:"models,omitempty"`
}

type imageRequest struct {
	Image string `json:"image"`
}

type AnalyzeResponse struct {
	Success   *bool          `json:"success,omitempty"`
	Faces     []DetectedFace `json:"faces"`
	FaceCount int            `json:"face_count"`
	Timestamp string         `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
}

type DebugFace struct {
	ID                int       `json:"id"`
	BBox              []float64 `json:"bbox"`
	Emotion           string    `json:"emotion"`
	EmotionConfidence float64   `json:"emotion_confidence"`
	SmileProbability  float64   `json:"smile_probability"`
	Age               string    `json:"age"`
	AgeConfidence     float64   `json:"age_confidence"`
	Gender            string    `json:"gender"`
	GenderConfidence  float64   `json:"gender_confidence"`
}

type DebugResponse struct {
	Faces        []DebugFace `json:"faces"`
	FaceCount    int         `json:"face_count"`
	DebugImage   string      `json:"debug_image"`
	ModelsLoaded bool        `json:"models_loaded"`
}

// CaptureMetadata is the flat metadata payload attached to a captured photo.
type CaptureMetadata struct {
	SmileProb    float64 `json:"smile_prob"`
	AgeLabel     string  `json:"age_label"`
	AgeConf      float64 `json:"age_conf"`
	GenderLabel  string  `json:"gender_label"`
	GenderConf   float64 `json:"gender_conf"`
	EmotionLabel string  `json:"emotion_label"`
	EmotionConf  float64 `json:"emotion_conf"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	W            float64 `json:"w"`
	H            float64 `json:"h"`
}

func MetadataFromFace(face DetectedFace) CaptureMetadata {
	return CaptureMetadata{
		SmileProb:    face.SmileProbability,
		AgeLabel:     face.Age,
		AgeConf:      face.AgeConfidence,
		GenderLabel:  face.Gender,
		GenderConf:   face.GenderConfidence,
		EmotionLabel: face.Emotion,
		EmotionConf:  face.EmotionConfidence,
		X:            face.X,
		Y:            face.Y,
		W:            face.Width,
		H:            face.Height,
	}
}

func (m CaptureMetadata) Face() DetectedFace {
	return DetectedFace{
		X:                 m.X,
		Y:                 m.Y,
		Width:             m.W,
		Height:            m.H,
		Emotion:           m.EmotionLabel,
		EmotionConfidence: m.EmotionConf,
		SmileProbability:  m.SmileProb,
		Age:               m.AgeLabel,
		AgeConfidence:     m.AgeConf,
		Gender:            m.GenderLabel,
		GenderConfidence:  m.GenderConf,
	}
}

type captureRequest struct {
	Image    string          `json:"image"`
	Metadata CaptureMetadata `json:"metadata"`
}

type CaptureResponse struct {
	Success   bool            `json:"success"`
	Filename  string          `json:"filename"`
	Filepath  string          `json:"filepath"`
	Timestamp string          `json:"timestamp"`
	Analysis  json.RawMessage `json:"analysis,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type GalleryPhoto struct {
	Filename  string          `json:"filename"`
	Timestamp string          `json:"timestamp"`
	Image     string          `json:"image"`
	Metadata  CaptureMetadata `json:"metadata"`
}

type GalleryResponse struct {
	Photos []GalleryPhoto `json:"photos"`
	Count  int            `json:"count"`
}
