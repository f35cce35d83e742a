// Package imaging scales tag photos for thumbnails and catalog uploads.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	ThumbSize   = 400
	UploadSize  = 1920
	JPEGQuality = 85
)

// Fit returns the largest w×h that fits inside maxW×maxH with the aspect
// ratio of src. It never upscales.
func Fit(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}
	w, h := maxW, srcH*maxW/srcW
	if h > maxH {
		w, h = srcW*maxH/srcH, maxH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Scale returns img resized to fit maxW×maxH, or img itself when it already fits.
func Scale(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), maxW, maxH)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Thumbnail writes a copy of src scaled to fit maxW×maxH to dst. The
// encoding follows the extension of dst.
func Thumbnail(src, dst string, maxW, maxH int) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("imaging: open %s: %w", src, err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("imaging: decode %s: %w", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if err := encode(out, Scale(img, maxW, maxH), filepath.Ext(dst)); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("imaging: encode %s: %w", dst, err)
	}
	return out.Close()
}

// Normalize decodes r, downscales it to fit UploadSize and re-encodes it as
// JPEG.
func Normalize(r io.Reader) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("imaging: decode: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Scale(img, UploadSize, UploadSize), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("imaging: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func encode(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	default:
		return fmt.Errorf("unsupported extension %q", ext)
	}
}
