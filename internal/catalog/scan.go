// Package catalog is the batch ingest pipeline: tag photos are OCR'd and
// parsed, matched against the rate list and written out as a CSV and a
// browsable HTML catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shashiranjanraj/tagcatalog/internal/imaging"
	"github.com/shashiranjanraj/tagcatalog/internal/ocr"
	"github.com/shashiranjanraj/tagcatalog/internal/tagparse"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
	"github.com/shashiranjanraj/tagcatalog/pkg/metrics"
	"github.com/shashiranjanraj/tagcatalog/pkg/workerpool"
)

const (
	thumbDir = "thumbs"
	cacheDir = "ocr"
)

// Item is one tag photo and the fields read from it. It is also the shape
// of the per-image OCR cache file.
type Item struct {
	Image     string `json:"image"`
	ImagePath string `json:"image_path"`
	Thumb     string `json:"thumb"`
	tagparse.Fields
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// ListImages returns the jpg/jpeg/png file names in dir, sorted.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Scanner OCRs a folder of tag photos with a bounded number of workers,
// reusing cached results unless Force is set.
type Scanner struct {
	OCR     ocr.Recognizer
	Workers int
	Force   bool
}

// Scan processes every image in imagesDir and returns one Item per image in
// file-name order. Thumbnails and cache files are written below outDir.
func (s *Scanner) Scan(ctx context.Context, imagesDir, outDir string) ([]Item, error) {
	names, err := ListImages(imagesDir)
	if err != nil {
		return nil, err
	}
	for _, d := range []string{thumbDir, cacheDir} {
		if err := os.MkdirAll(filepath.Join(outDir, d), 0o755); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}

	items := make([]Item, len(names))
	pool := workerpool.New(s.Workers)
	var wg sync.WaitGroup

	for i, name := range names {
		wg.Add(1)
		err := pool.SubmitWait(ctx, func() {
			defer wg.Done()
			items[i] = s.process(ctx, filepath.Join(imagesDir, name), outDir)
		})
		if err != nil {
			wg.Done()
			pool.Shutdown()
			return nil, err
		}
	}

	wg.Wait()
	pool.Shutdown()
	return items, ctx.Err()
}

func (s *Scanner) process(ctx context.Context, imgPath, outDir string) Item {
	name := filepath.Base(imgPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	thumbPath := filepath.Join(outDir, thumbDir, name)
	cachePath := filepath.Join(outDir, cacheDir, stem+".json")
	log := logger.WithCtx(ctx).With("image", name)

	if _, err := os.Stat(thumbPath); err != nil {
		if err := imaging.Thumbnail(imgPath, thumbPath, imaging.ThumbSize, imaging.ThumbSize); err != nil {
			log.Warn("thumbnail failed", "error", err)
		}
	}

	if !s.Force {
		if item, ok := readCache(cachePath); ok {
			metrics.ImagesProcessed.WithLabelValues("cache").Inc()
			return item
		}
	}

	text, err := s.OCR.Recognize(ctx, imgPath)
	if err != nil {
		log.Warn("ocr failed", "error", err)
		metrics.ImagesProcessed.WithLabelValues("failed").Inc()
	} else {
		metrics.ImagesProcessed.WithLabelValues("ocr").Inc()
	}

	item := Item{
		Image:     name,
		ImagePath: imgPath,
		Thumb:     filepath.ToSlash(filepath.Join(thumbDir, name)),
		Fields:    tagparse.Parse(text),
	}
	if err := writeCache(cachePath, item); err != nil {
		log.Warn("ocr cache write failed", "error", err)
	}
	return item
}

func readCache(path string) (Item, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, false
	}
	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return Item{}, false
	}
	return item, true
}

func writeCache(path string, item Item) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
