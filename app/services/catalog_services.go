package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shashiranjanraj/tagcatalog/internal/ocr"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/internal/tagparse"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
	"github.com/shashiranjanraj/tagcatalog/pkg/storage"
)

// RateListKey is where the last uploaded rate list is kept on the local disk.
const RateListKey = "ratelist/current.pdf"

// ScanResult is what one tag photo reads as, with its rate-list match.
type ScanResult struct {
	Fields tagparse.Fields `json:"fields"`
	Match  ratelist.Match  `json:"match"`
}

// CatalogService reads tag photos and owns the live rate list.
type CatalogService struct {
	ocr       ocr.Recognizer
	rates     *ratelist.Index
	threshold float64
	files     storage.Disk

	mu       sync.Mutex
	loadedAt time.Time
}

func NewCatalogService(rec ocr.Recognizer, rates *ratelist.Index, threshold float64, files storage.Disk) *CatalogService {
	return &CatalogService{ocr: rec, rates: rates, threshold: threshold, files: files}
}

func (s *CatalogService) Rates() *ratelist.Index { return s.rates }

// Scan OCRs an uploaded tag photo and matches its article. Nothing is
// persisted.
func (s *CatalogService) Scan(ctx context.Context, r io.Reader, filename string) (*ScanResult, error) {
	tmp, err := spool(r, "scan-*"+strings.ToLower(filepath.Ext(filename)))
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	text, err := s.ocr.Recognize(ctx, tmp)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Fields: tagparse.Parse(text)}
	if res.Fields.Article != "" {
		res.Match = s.rates.Match(res.Fields.Article, s.threshold)
	}
	return res, nil
}

// Match looks q up in the live rate list.
func (s *CatalogService) Match(q string) ratelist.Match {
	return s.rates.Match(q, s.threshold)
}

// ReplaceRateList parses an uploaded PDF, swaps it in as the live rate list
// and keeps a copy so the next boot starts from it. It returns the row count.
func (s *CatalogService) ReplaceRateList(ctx context.Context, r io.Reader) (int, error) {
	tmp, err := spool(r, "ratelist-*.pdf")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp)

	rows, err := ratelist.Parse(tmp)
	if err != nil {
		return 0, err
	}

	if s.files != nil {
		if f, err := os.Open(tmp); err == nil {
			if err := s.files.Put(ctx, RateListKey, f, "application/pdf"); err != nil {
				logger.WithCtx(ctx).Warn("rate list copy not kept", "error", err)
			}
			f.Close()
		}
	}

	s.rates.Replace(rows, RateListKey)
	logger.WithCtx(ctx).Info("rate list replaced", "rows", len(rows))
	return len(rows), nil
}

// LoadRateList fills the index at boot from path, or from the last uploaded
// copy on the local disk when path is empty.
func (s *CatalogService) LoadRateList(ctx context.Context, path string) error {
	if path == "" {
		local, ok := s.files.(*storage.LocalDisk)
		if !ok {
			return nil
		}
		path = filepath.Join(local.Root(), filepath.FromSlash(RateListKey))
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}

	if err := s.rates.Load(path); err != nil {
		return err
	}
	s.mu.Lock()
	s.loadedAt = time.Now()
	s.mu.Unlock()
	logger.WithCtx(ctx).Info("rate list loaded", "path", path, "rows", s.rates.Len())
	return nil
}

// ReloadIfChanged reloads path when the file changed after the last load.
func (s *CatalogService) ReloadIfChanged(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	stale := info.ModTime().After(s.loadedAt)
	s.mu.Unlock()
	if !stale {
		return nil
	}
	return s.LoadRateList(ctx, path)
}

// spool copies r into a temp file and returns its path.
func spool(r io.Reader, pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("services: temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("services: spool upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
