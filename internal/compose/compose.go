// Package compose renders the overlay on top of the face photo and encodes
// the result for preview and export.
package compose

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"

	"github.com/ayusman/tryon/internal/interaction"
	"github.com/ayusman/tryon/internal/overlay"
)

// ExportFilename is the download name of exported previews.
const ExportFilename = "hairstyle-preview.png"

// ErrNoBase is returned when a scene has no photo to draw on.
var ErrNoBase = errors.New("scene has no base image")

// Selection chrome appearance.
var (
	outlineColor = color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	handleFill   = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

const (
	outlineWidth = 2
	handleSize   = 8
)

// Scene is everything visible on the canvas.
type Scene struct {
	Base      image.Image
	Overlay   image.Image
	Transform overlay.Transform
	Selected  bool
}

// Options controls optional parts of the rendering.
type Options struct {
	// ShowSelection draws the outline and resize handles when the scene
	// is selected. Exports never set it.
	ShowSelection bool
}

// Render composites the scene into a new image the size of the base.
// Parts of the overlay outside the base are clipped.
func Render(scene Scene, opts Options) (*image.RGBA, error) {
	if scene.Base == nil {
		return nil, ErrNoBase
	}

	bounds := scene.Base.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), scene.Base, bounds.Min, draw.Src)

	if scene.Overlay != nil {
		if err := scene.Transform.Validate(); err != nil {
			return nil, fmt.Errorf("render overlay: %w", err)
		}
		draw.CatmullRom.Scale(dst, targetRect(scene.Transform), scene.Overlay, scene.Overlay.Bounds(), draw.Over, nil)
	}

	if opts.ShowSelection && scene.Selected {
		drawSelection(dst, scene.Transform)
	}

	return dst, nil
}

func targetRect(t overlay.Transform) image.Rectangle {
	return image.Rect(
		int(math.Round(t.Left)),
		int(math.Round(t.Top)),
		int(math.Round(t.Right())),
		int(math.Round(t.Bottom())),
	)
}

func drawSelection(dst *image.RGBA, t overlay.Transform) {
	r := targetRect(t)

	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+outlineWidth), outlineColor)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-outlineWidth, r.Max.X, r.Max.Y), outlineColor)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+outlineWidth, r.Max.Y), outlineColor)
	fill(dst, image.Rect(r.Max.X-outlineWidth, r.Min.Y, r.Max.X, r.Max.Y), outlineColor)

	for _, p := range interaction.HandlePositions(t) {
		x, y := int(math.Round(p.X)), int(math.Round(p.Y))
		box := image.Rect(x-handleSize/2, y-handleSize/2, x+handleSize/2, y+handleSize/2)
		fill(dst, box, outlineColor)
		fill(dst, box.Inset(1), handleFill)
	}
}

func fill(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r.Intersect(dst.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	return encode(img, gocv.PNGFileExt, nil)
}

// EncodeJPEG encodes img as JPEG with the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return encode(img, gocv.JPEGFileExt, []int{gocv.IMWriteJpegQuality, quality})
}

func encode(img image.Image, ext gocv.FileExt, params []int) ([]byte, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	var buf *gocv.NativeByteBuffer
	if params == nil {
		buf, err = gocv.IMEncode(ext, mat)
	} else {
		buf, err = gocv.IMEncodeWithParams(ext, mat, params)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
