package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"github.com/disintegration/gift"
	"github.com/eleven-am/smart-selfie/internal/vision"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultThreshold = 0.6

	strokeWidth = 2
	panelWidth  = 250
	panelHeight = 85
	panelOffset = 90
	glowSpread  = 2
	glowBlur    = 5
	glowMargin  = 16
)

var (
	SmilingColor = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	DefaultColor = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
	panelColor   = color.NRGBA{A: 204}
	textColor    = color.White
)

// Renderer draws face boxes and attribute labels onto frames. A face is
// smiling when its smile probability is strictly greater than Threshold.
type Renderer struct {
	Threshold    float64
	SmilingColor color.Color
	DefaultColor color.Color

	face font.Face
	glow *gift.GIFT
}

func NewRenderer(threshold float64) *Renderer {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}
	return &Renderer{
		Threshold:    threshold,
		SmilingColor: SmilingColor,
		DefaultColor: DefaultColor,
		face:         basicfont.Face7x13,
		glow:         gift.New(gift.GaussianBlur(glowBlur)),
	}
}

func (r *Renderer) IsSmiling(face vision.DetectedFace) bool {
	return face.SmileProbability > r.Threshold
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}

// Labels returns the four panel lines in draw order.
func (r *Renderer) Labels(face vision.DetectedFace) []string {
	return []string{
		fmt.Sprintf("%s (%d%%)", face.Emotion, percent(face.EmotionConfidence)),
		fmt.Sprintf("Smile: %d%%", percent(face.SmileProbability)),
		fmt.Sprintf("%s (%d%%)", face.Gender, percent(face.GenderConfidence)),
		fmt.Sprintf("Age: %s (%d%%)", face.Age, percent(face.AgeConfidence)),
	}
}

func faceRect(face vision.DetectedFace) image.Rectangle {
	x0 := int(math.Round(face.X))
	y0 := int(math.Round(face.Y))
	return image.Rect(x0, y0, x0+int(math.Round(face.Width)), y0+int(math.Round(face.Height)))
}

// Draw renders one face onto dst. Anything outside dst's bounds is clipped.
func (r *Renderer) Draw(dst draw.Image, face vision.DetectedFace) {
	rect := faceRect(face)
	smiling := r.IsSmiling(face)

	stroke := r.DefaultColor
	if smiling {
		stroke = r.SmilingColor
		r.drawGlow(dst, rect.Inset(-glowSpread), stroke)
	}

	strokeRect(dst, rect, stroke)
	r.drawPanel(dst, rect.Min, r.Labels(face))
}

func strokeRect(dst draw.Image, rect image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	half := strokeWidth / 2
	outer := rect.Inset(-half)
	inner := rect.Inset(strokeWidth - half)

	edges := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y),
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y),
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y),
	}
	for _, e := range edges {
		e = e.Intersect(dst.Bounds())
		if e.Empty() {
			continue
		}
		draw.Draw(dst, e, src, image.Point{}, draw.Over)
	}
}

func (r *Renderer) drawGlow(dst draw.Image, rect image.Rectangle, c color.Color) {
	area := rect.Inset(-glowMargin)
	if area.Intersect(dst.Bounds()).Empty() {
		return
	}

	layer := image.NewRGBA(area)
	strokeRect(layer, rect, c)

	blurred := image.NewRGBA(r.glow.Bounds(layer.Bounds()))
	r.glow.Draw(blurred, layer)

	target := area.Intersect(dst.Bounds())
	draw.Draw(dst, target, blurred, target.Min.Sub(area.Min).Add(blurred.Bounds().Min), draw.Over)
}

func (r *Renderer) drawPanel(dst draw.Image, origin image.Point, lines []string) {
	panel := image.Rect(origin.X, origin.Y-panelOffset, origin.X+panelWidth, origin.Y-panelOffset+panelHeight)
	if clipped := panel.Intersect(dst.Bounds()); !clipped.Empty() {
		draw.Draw(dst, clipped, image.NewUniform(panelColor), image.Point{}, draw.Over)
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor),
		Face: r.face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(origin.X+10, origin.Y-75+i*15)
		d.DrawString(line)
	}
}

// Annotate decodes a JPEG frame, draws every face and re-encodes it.
func (r *Renderer) Annotate(data []byte, faces []vision.DetectedFace, quality int) ([]byte, error) {
	src, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	canvas := image.NewRGBA(src.Bounds())
	draw.Draw(canvas, canvas.Bounds(), src, src.Bounds().Min, draw.Src)
	for _, face := range faces {
		r.Draw(canvas, face)
	}

	if quality <= 0 || quality > 100 {
		quality = 80
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
