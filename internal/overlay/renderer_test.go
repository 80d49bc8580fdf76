package overlay

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/eleven-am/smart-selfie/internal/vision"
)

func sampleFace(smile float64) vision.DetectedFace {
	return vision.DetectedFace{
		X: 100, Y: 150, Width: 100, Height: 100,
		Emotion: "happiness", EmotionConfidence: 0.904,
		SmileProbability: smile,
		Age:              "(25-32)", AgeConfidence: 0.875,
		Gender: "Female", GenderConfidence: 0.7949,
	}
}

func TestRenderer_IsSmiling_Boundary(t *testing.T) {
	r := NewRenderer(0.6)

	tests := []struct {
		smile float64
		want  bool
	}{
		{0.59, false},
		{0.6, false},
		{0.6001, true},
		{0.95, true},
	}
	for _, tt := range tests {
		if got := r.IsSmiling(sampleFace(tt.smile)); got != tt.want {
			t.Errorf("IsSmiling(%v) = %v, want %v", tt.smile, got, tt.want)
		}
	}
}

func TestNewRenderer_InvalidThreshold(t *testing.T) {
	if r := NewRenderer(0); r.Threshold != DefaultThreshold {
		t.Errorf("expected default threshold, got %v", r.Threshold)
	}
	if r := NewRenderer(1.5); r.Threshold != DefaultThreshold {
		t.Errorf("expected default threshold, got %v", r.Threshold)
	}
}

func TestRenderer_Labels(t *testing.T) {
	r := NewRenderer(0.6)
	got := r.Labels(sampleFace(0.655))
	want := []string{
		"happiness (90%)",
		"Smile: 66%",
		"Female (79%)",
		"Age: (25-32) (88%)",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d labels, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestRenderer_Draw_StrokeColor(t *testing.T) {
	r := NewRenderer(0.6)

	tests := []struct {
		name  string
		smile float64
		want  color.RGBA
	}{
		{"default", 0.3, DefaultColor},
		{"smiling", 0.9, SmilingColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, 400, 400))
			r.Draw(img, sampleFace(tt.smile))

			if got := rgbaAt(img, 100, 200); got != tt.want {
				t.Errorf("left edge: expected %v, got %v", tt.want, got)
			}
			if got := rgbaAt(img, 150, 250); got != tt.want {
				t.Errorf("bottom edge: expected %v, got %v", tt.want, got)
			}
			if got := rgbaAt(img, 150, 200); got.A != 0 {
				t.Errorf("expected interior untouched, got %v", got)
			}
		})
	}
}

func TestRenderer_Draw_Panel(t *testing.T) {
	r := NewRenderer(0.6)
	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	r.Draw(img, sampleFace(0.3))

	if got := rgbaAt(img, 340, 140); got.A != 204 || got.R != 0 {
		t.Errorf("expected translucent black panel, got %v", got)
	}
	if got := rgbaAt(img, 340, 50); got.A != 0 {
		t.Errorf("expected nothing above panel, got %v", got)
	}
}

func TestRenderer_Draw_GlowOnlyWhenSmiling(t *testing.T) {
	r := NewRenderer(0.6)

	plain := image.NewRGBA(image.Rect(0, 0, 400, 400))
	r.Draw(plain, sampleFace(0.3))
	if got := rgbaAt(plain, 94, 200); got.A != 0 {
		t.Errorf("expected no glow, got %v", got)
	}

	glowing := image.NewRGBA(image.Rect(0, 0, 400, 400))
	r.Draw(glowing, sampleFace(0.9))
	if got := rgbaAt(glowing, 94, 200); got.A == 0 {
		t.Error("expected glow outside the rectangle")
	}
}

func TestRenderer_Draw_OutOfBounds(t *testing.T) {
	r := NewRenderer(0.6)
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))

	faces := []vision.DetectedFace{
		{X: -500, Y: -500, Width: 10, Height: 10, SmileProbability: 0.9},
		{X: 1000, Y: 1000, Width: 100, Height: 100},
		{X: 40, Y: 5, Width: 100, Height: 100, SmileProbability: 0.9},
	}
	for _, f := range faces {
		r.Draw(img, f)
	}
}

func TestRenderer_Annotate(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 320, 240))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatal(err)
	}

	r := NewRenderer(0.6)
	out, err := r.Annotate(buf.Bytes(), []vision.DetectedFace{sampleFace(0.9)}, 80)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected valid jpeg: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("expected 320x240, got %v", img.Bounds())
	}

	if _, err := r.Annotate([]byte("nope"), nil, 80); err == nil {
		t.Error("expected decode error")
	}
}
