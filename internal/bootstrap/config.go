package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/smart-selfie/internal/camera"
)

type Config struct {
	ServerAddr string
	LogLevel   string
	LogFormat  string

	AnalysisURL     string
	AnalysisTimeout time.Duration

	CameraSource    string
	CameraDevice    string
	CameraFormat    string
	CameraWidth     int
	CameraHeight    int
	CameraFPS       int
	CameraWarmup    time.Duration
	ReplayDir       string
	SnapshotQuality int

	DetectInterval  time.Duration
	CaptureCooldown time.Duration
	SmileThreshold  float64
	AutoCapture     bool

	DatabaseDSN string
	GalleryDB   string
	CaptureDir  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	FrameTTL      time.Duration
}

const (
	SourceFFmpeg = "ffmpeg"
	SourceReplay = "replay"
)

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),

		AnalysisURL:     getEnv("ANALYSIS_URL", "http://localhost:5000/api"),
		AnalysisTimeout: getEnvDuration("ANALYSIS_TIMEOUT", 0),

		CameraSource:    strings.ToLower(getEnv("CAMERA_SOURCE", SourceFFmpeg)),
		CameraDevice:    getEnv("CAMERA_DEVICE", "/dev/video0"),
		CameraFormat:    getEnv("CAMERA_FORMAT", "v4l2"),
		CameraWidth:     getEnvInt("CAMERA_WIDTH", 1280),
		CameraHeight:    getEnvInt("CAMERA_HEIGHT", 720),
		CameraFPS:       getEnvInt("CAMERA_FPS", 30),
		CameraWarmup:    getEnvDuration("CAMERA_WARMUP", 5*time.Second),
		ReplayDir:       getEnv("REPLAY_DIR", "./testdata/frames"),
		SnapshotQuality: camera.ClampQuality(getEnvInt("SNAPSHOT_QUALITY", camera.DefaultQuality)),

		DetectInterval:  getEnvDuration("DETECT_INTERVAL", time.Second),
		CaptureCooldown: getEnvDuration("CAPTURE_COOLDOWN", 2500*time.Millisecond),
		SmileThreshold:  getEnvFloat("SMILE_THRESHOLD", 0.6),
		AutoCapture:     getEnvBool("AUTO_CAPTURE", true),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),
		GalleryDB:   getEnv("GALLERY_DB", "./data/gallery.db"),
		CaptureDir:  getEnv("CAPTURE_DIR", "./data/captures"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		FrameTTL:      getEnvDuration("FRAME_TTL", time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("1s") or bare milliseconds ("2500").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
