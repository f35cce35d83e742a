// Package ocr turns tag photographs into raw text.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shashiranjanraj/tagcatalog/config"
	"github.com/shashiranjanraj/tagcatalog/pkg/metrics"
)

// ErrCorruptImage is returned when the file cannot be decoded as an image.
var ErrCorruptImage = errors.New("ocr: corrupt image")

// Recognizer extracts text from an image on disk.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Tesseract runs the tesseract executable.
type Tesseract struct {
	Bin  string
	Args []string
}

// NewTesseract builds a recognizer from TESSERACT_BIN and TESSERACT_ARGS.
func NewTesseract() *Tesseract {
	return &Tesseract{Bin: config.TesseractBin(), Args: config.TesseractArgs()}
}

// Recognize verifies imagePath decodes, then OCRs it.
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := Verify(imagePath); err != nil {
		return "", err
	}

	start := time.Now()
	defer func() { metrics.OCRDuration.Observe(time.Since(start).Seconds()) }()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.bin(), t.command(imagePath)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("ocr: tesseract %s: %w", imagePath, err)
		}
		return "", fmt.Errorf("ocr: tesseract %s: %w: %s", imagePath, err, msg)
	}
	return stdout.String(), nil
}

func (t *Tesseract) bin() string {
	if t.Bin == "" {
		return "tesseract"
	}
	return t.Bin
}

// command returns the argv after the binary: input, "stdout", engine flags.
func (t *Tesseract) command(imagePath string) []string {
	args := make([]string, 0, len(t.Args)+2)
	args = append(args, imagePath, "stdout")
	return append(args, t.Args...)
}

// Verify decodes the image header and pixels and reports ErrCorruptImage
// when that fails.
func Verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("ocr: open %s: %w", path, err)
	}
	defer f.Close()

	if _, _, err := image.Decode(f); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptImage, path, err)
	}
	return nil
}
