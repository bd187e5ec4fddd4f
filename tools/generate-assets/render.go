// render.go implements PNG rendering for the gen-assets tool.
// [RenderAsset] draws a short label centered on a solid square background,
// sized according to [IconStyle].

package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// maxLabelFraction is the share of the canvas width a label may cover.
const maxLabelFraction = 0.8

// RenderAsset renders text centered on a colored square and returns the
// PNG bytes. Labels wider than the canvas allows are drawn smaller.
func RenderAsset(style IconStyle, text string, otFont *opentype.Font) ([]byte, error) {
	if text == "" {
		return nil, errors.New("empty label")
	}
	if style.Size <= 0 || style.FontSize <= 0 {
		return nil, fmt.Errorf("invalid size %d / font size %d", style.Size, style.FontSize)
	}
	bgColor, err := ParseHexColor(style.BgColor)
	if err != nil {
		return nil, fmt.Errorf("parse bg_color: %w", err)
	}
	fgColor, err := ParseHexColor(style.FgColor)
	if err != nil {
		return nil, fmt.Errorf("parse fg_color: %w", err)
	}

	size := style.Size
	face, bounds, err := fitFace(otFont, text, float64(style.FontSize), maxLabelFraction*float64(size))
	if err != nil {
		return nil, err
	}
	defer face.Close()

	// Center the visual bounds of the glyphs, not the advance box.
	glyphW := (bounds.Max.X - bounds.Min.X).Ceil()
	glyphH := (bounds.Max.Y - bounds.Min.Y).Ceil()
	originX := (size-glyphW)/2 - bounds.Min.X.Floor()
	originY := (size-glyphH)/2 - bounds.Min.Y.Floor()

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bgColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fgColor),
		Face: face,
		Dot:  fixed.P(originX, originY),
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// fitFace returns a face at fontSize, or smaller when text would be wider
// than maxWidth pixels, together with the text bounds at that size.
func fitFace(otFont *opentype.Font, text string, fontSize, maxWidth float64) (font.Face, fixed.Rectangle26_6, error) {
	face, err := newFace(otFont, fontSize)
	if err != nil {
		return nil, fixed.Rectangle26_6{}, err
	}
	bounds, _ := font.BoundString(face, text)
	width := float64((bounds.Max.X - bounds.Min.X).Ceil())
	if width <= maxWidth {
		return face, bounds, nil
	}

	face.Close()
	face, err = newFace(otFont, fontSize*maxWidth/width)
	if err != nil {
		return nil, fixed.Rectangle26_6{}, err
	}
	bounds, _ = font.BoundString(face, text)
	return face, bounds, nil
}

func newFace(otFont *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(otFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}
