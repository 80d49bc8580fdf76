package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/eleven-am/smart-selfie/internal/shared"
)

// DebugDetector runs the server-side debug pipeline, which returns an
// already-annotated frame.
type DebugDetector struct {
	client *Client
}

func NewDebugDetector(client *Client) *DebugDetector {
	return &DebugDetector{client: client}
}

func (d *DebugDetector) Detect(ctx context.Context, image []byte) (DetectionResult, error) {
	resp, err := d.client.DebugFaces(ctx, image)
	if err != nil {
		return DetectionResult{}, err
	}

	faces := make([]DetectedFace, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		faces = append(faces, f.toFace())
	}

	result := DetectionResult{
		Faces:      faces,
		ProducedAt: time.Now(),
		Source:     SourceDebug,
	}
	if resp.DebugImage != "" {
		img, err := shared.DecodeDataURL(resp.DebugImage)
		if err != nil {
			return DetectionResult{}, fmt.Errorf("debug image: %w", err)
		}
		result.DebugImage = img
	}
	return result, nil
}

func (f DebugFace) toFace() DetectedFace {
	face := DetectedFace{
		Emotion:           f.Emotion,
		EmotionConfidence: f.EmotionConfidence,
		SmileProbability:  f.SmileProbability,
		Age:               f.Age,
		AgeConfidence:     f.AgeConfidence,
		Gender:            f.Gender,
		GenderConfidence:  f.GenderConfidence,
	}
	if len(f.BBox) == 4 {
		face.X, face.Y, face.Width, face.Height = f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3]
	}
	return face
}
