package validate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"marrowmap/pkg/domain"
)

var (
	backgroundColor = color.White
	baseCellColor   = color.RGBA{160, 160, 160, 255}
	highlightColor  = color.RGBA{204, 0, 51, 255}
)

// RenderOverlay draws a region's cells as dots on a white canvas, with cells
// carrying any of the given labels highlighted, and returns the encoded PNG.
// Coordinates are drawn in stored orientation (origin bottom-left), matching
// the reference imagery the overlay is compared against.
func RenderOverlay(region domain.Region, column string, labels []string) ([]byte, error) {
	if region.Width <= 0 || region.Height <= 0 {
		return nil, fmt.Errorf("region %s has no bounds to render", region.ID)
	}
	labelSet := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		labelSet[l] = struct{}{}
	}

	width := int(region.Width) + 1
	height := int(region.Height) + 1
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)

	for _, cell := range region.Cells {
		c := baseCellColor
		if value, ok := region.Metadata.Value(column, cell.LocalID); ok {
			if _, highlighted := labelSet[value]; highlighted {
				c = highlightColor
			}
		}
		drawDot(img, int(cell.X), height-1-int(cell.Y), c)
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("encode overlay for %s: %w", region.ID, err)
	}
	return buf.Bytes(), nil
}

// drawDot paints a 3x3 square centered on (x, y), clipped to the image.
func drawDot(img *image.RGBA, x, y int, c color.Color) {
	bounds := img.Bounds()
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.Set(px, py, c)
			}
		}
	}
}
