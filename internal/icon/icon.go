// Package icon renders the site icon and initials avatars as PNG.
package icon

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	MinSize     = 16
	MaxSize     = 512
	DefaultSize = 64

	// glyphs are drawn on a small canvas and scaled up
	baseSize = 24
)

var (
	brand      = color.RGBA{R: 0x1f, G: 0x2a, B: 0x44, A: 0xff}
	foreground = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	palette = []color.RGBA{
		{R: 0x4f, G: 0x46, B: 0xe5, A: 0xff},
		{R: 0x05, G: 0x96, B: 0x69, A: 0xff},
		{R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
		{R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
		{R: 0x08, G: 0x91, B: 0xb2, A: 0xff},
		{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
		{R: 0xdb, G: 0x27, B: 0x77, A: 0xff},
		{R: 0x65, G: 0xa3, B: 0x0d, A: 0xff},
	}
)

// ParseSize reads a ?size= value: empty or malformed means DefaultSize,
// anything else is clamped to [MinSize, MaxSize].
func ParseSize(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultSize
	}
	return ClampSize(n)
}

func ClampSize(n int) int {
	switch {
	case n < MinSize:
		return MinSize
	case n > MaxSize:
		return MaxSize
	default:
		return n
	}
}

// ColorFor picks a stable background for seed.
func ColorFor(seed string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return palette[h.Sum32()%uint32(len(palette))]
}

// SiteIcon is the brand square with an "M".
func SiteIcon(size int) ([]byte, error) {
	return render("M", brand, ClampSize(size), false)
}

// Avatar is a round initials badge coloured by seed (the profile id).
func Avatar(initials, seed string, size int) ([]byte, error) {
	if initials == "" {
		initials = "?"
	}
	return render(strings.ToUpper(initials), ColorFor(seed), ClampSize(size), true)
}

func render(text string, bg color.RGBA, size int, round bool) ([]byte, error) {
	face := basicfont.Face7x13
	src := image.NewRGBA(image.Rect(0, 0, baseSize, baseSize))
	draw.Draw(src, src.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: src, Src: &image.Uniform{C: foreground}, Face: face}
	width := d.MeasureString(text).Ceil()
	x := (baseSize - width) / 2
	y := (baseSize-face.Height)/2 + face.Ascent
	d.Dot = fixed.P(x, y)
	d.DrawString(text)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	if round {
		clipCircle(dst)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func clipCircle(img *image.RGBA) {
	b := img.Bounds()
	r := float64(b.Dx()) / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - r
			dy := float64(y) + 0.5 - r
			if dx*dx+dy*dy > r*r {
				img.SetRGBA(x, y, color.RGBA{})
			}
		}
	}
}
