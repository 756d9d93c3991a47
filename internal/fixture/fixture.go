// Package fixture builds test inputs: a small hairstyle catalog and
// synthetic photos.
package fixture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

// Catalog asset sizes. "bob" has ratio 0.8.
const (
	BobWidth    = 100
	BobHeight   = 80
	CurlsWidth  = 200
	CurlsHeight = 300
)

const catalogTOML = `default = "bob"

[[asset]]
id = "bob"
name = "Classic bob"
file = "bob.png"

[[asset]]
id = "curls"
name = "Long curls"
file = "curls.png"
`

// Catalog writes a two-asset catalog into a temporary directory and returns it.
func Catalog(tb testing.TB) string {
	tb.Helper()

	dir := tb.TempDir()
	writePNG(tb, filepath.Join(dir, "bob.png"), hair(BobWidth, BobHeight))
	writePNG(tb, filepath.Join(dir, "curls.png"), hair(CurlsWidth, CurlsHeight))
	if err := os.WriteFile(filepath.Join(dir, "catalog.toml"), []byte(catalogTOML), 0644); err != nil {
		tb.Fatalf("write catalog: %v", err)
	}
	return dir
}

// Photo returns a PNG-encoded w x h image that stands in for a face photo.
func Photo(tb testing.TB, w, h int) []byte {
	tb.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 224, G: uint8(160 + y%40), B: 140, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		tb.Fatalf("encode photo: %v", err)
	}
	return buf.Bytes()
}

// Frame decodes Photo into a BGR matrix. The caller closes it.
func Frame(tb testing.TB, w, h int) gocv.Mat {
	tb.Helper()

	mat, err := gocv.IMDecode(Photo(tb, w, h), gocv.IMReadColor)
	if err != nil {
		tb.Fatalf("decode frame: %v", err)
	}
	if mat.Empty() {
		tb.Fatalf("decode frame: empty %dx%d matrix", w, h)
	}
	return mat
}

// hair is a half transparent brown block.
func hair(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 90, G: 50, B: 20, A: 200})
		}
	}
	return img
}

func writePNG(tb testing.TB, path string, img image.Image) {
	tb.Helper()

	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		tb.Fatalf("encode %s: %v", path, err)
	}
}
