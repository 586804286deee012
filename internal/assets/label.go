package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// LabelRasterizer turns label text into a sprite texture.
type LabelRasterizer interface {
	RasterizeLabel(text string) (Texture, error)
}

// BitmapLabeler draws labels with the Go regular font onto a transparent
// background.
type BitmapLabeler struct {
	face    font.Face
	color   color.Color
	padding int
}

// NewBitmapLabeler parses the embedded font at the given point size.
func NewBitmapLabeler(size float64, col color.Color) (*BitmapLabeler, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse label font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("label font face: %w", err)
	}
	if col == nil {
		col = color.White
	}
	return &BitmapLabeler{face: face, color: col, padding: 4}, nil
}

// RasterizeLabel implements LabelRasterizer. The texture is named
// "label:<text>".
func (b *BitmapLabeler) RasterizeLabel(text string) (Texture, error) {
	metrics := b.face.Metrics()
	advance := font.MeasureString(b.face, text).Ceil()
	w := advance + 2*b.padding
	h := (metrics.Ascent + metrics.Descent).Ceil() + 2*b.padding

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(b.color),
		Face: b.face,
		Dot:  fixed.P(b.padding, b.padding+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Texture{}, fmt.Errorf("encode label %q: %w", text, err)
	}
	return Texture{
		Name:   "label:" + text,
		Width:  w,
		Height: h,
		Format: "png",
		Data:   buf.Bytes(),
	}, nil
}
