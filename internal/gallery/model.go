package gallery

import (
	"fmt"
	"time"

	"github.com/eleven-am/smart-selfie/internal/vision"
)

type Photo struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Filename     string    `gorm:"uniqueIndex;not null" json:"filename"`
	CapturedAt   time.Time `gorm:"not null;index" json:"captured_at"`
	SmileProb    float64   `json:"smile_prob"`
	AgeLabel     string    `json:"age_label"`
	AgeConf      float64   `json:"age_conf"`
	GenderLabel  string    `json:"gender_label"`
	GenderConf   float64   `json:"gender_conf"`
	EmotionLabel string    `json:"emotion_label"`
	EmotionConf  float64   `json:"emotion_conf"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	W            float64   `json:"w"`
	H            float64   `json:"h"`
	Remote       bool      `json:"remote"`
	CreatedAt    time.Time `json:"created_at"`
}

// CapturedPhoto is a snapshot plus the face that triggered it.
type CapturedPhoto struct {
	Image      []byte
	Face       vision.DetectedFace
	CapturedAt time.Time
}

func (p CapturedPhoto) Metadata() vision.CaptureMetadata {
	return vision.MetadataFromFace(p.Face)
}

func (p *Photo) Metadata() vision.CaptureMetadata {
	return vision.CaptureMetadata{
		SmileProb:    p.SmileProb,
		AgeLabel:     p.AgeLabel,
		AgeConf:      p.AgeConf,
		GenderLabel:  p.GenderLabel,
		GenderConf:   p.GenderConf,
		EmotionLabel: p.EmotionLabel,
		EmotionConf:  p.EmotionConf,
		X:            p.X,
		Y:            p.Y,
		W:            p.W,
		H:            p.H,
	}
}

func newPhoto(filename string, capturedAt time.Time, meta vision.CaptureMetadata, remote bool) *Photo {
	return &Photo{
		Filename:     filename,
		CapturedAt:   capturedAt,
		SmileProb:    meta.SmileProb,
		AgeLabel:     meta.AgeLabel,
		AgeConf:      meta.AgeConf,
		GenderLabel:  meta.GenderLabel,
		GenderConf:   meta.GenderConf,
		EmotionLabel: meta.EmotionLabel,
		EmotionConf:  meta.EmotionConf,
		X:            meta.X,
		Y:            meta.Y,
		W:            meta.W,
		H:            meta.H,
		Remote:       remote,
	}
}

// Filename returns the YYYYMMDD_HHMMSS_mmm.jpg name for a capture time.
func Filename(t time.Time) string {
	return fmt.Sprintf("%s_%03d.jpg", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}
