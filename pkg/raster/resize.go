package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales img to w×h with Catmull-Rom filtering.
func Resize(img image.Image, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
