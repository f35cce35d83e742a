package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shashiranjanraj/tagcatalog/internal/ocr"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
)

// Entry is an Item with its rate-list match attached.
type Entry struct {
	Item
	ratelist.Match
}

// Importer persists pipeline output, e.g. as catalog products.
type Importer interface {
	Import(ctx context.Context, entries []Entry, outDir string) (int, error)
}

// Options configures one pipeline run.
type Options struct {
	ImagesDir string
	RateList  string
	OutDir    string
	Force     bool
	Workers   int
	Threshold float64
	Importer  Importer
}

// Result summarises a run.
type Result struct {
	Entries  []Entry
	RateRows int
	Matched  int
	Imported int
	CSVPath  string
	HTMLPath string
}

// Run executes the four ingest stages (OCR, rate list, match, outputs) and,
// when opts.Importer is set, hands the entries to it.
func Run(ctx context.Context, rec ocr.Recognizer, opts Options) (*Result, error) {
	log := logger.WithCtx(ctx)
	start := time.Now()

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	log.Info("[1/4] OCR images", "dir", opts.ImagesDir)
	scanner := &Scanner{OCR: rec, Workers: opts.Workers, Force: opts.Force}
	items, err := scanner.Scan(ctx, opts.ImagesDir, opts.OutDir)
	if err != nil {
		return nil, err
	}
	log.Info("OCR items", "count", len(items))

	log.Info("[2/4] Parse rate list", "path", opts.RateList)
	rows, err := ratelist.Parse(opts.RateList)
	if err != nil {
		return nil, err
	}
	log.Info("Rate rows", "count", len(rows))

	log.Info("[3/4] Match")
	entries := Match(items, ratelist.NewIndex(rows), opts.Threshold)
	res := &Result{Entries: entries, RateRows: len(rows)}
	for _, e := range entries {
		if e.Matched {
			res.Matched++
		}
	}
	log.Info(fmt.Sprintf("Matched: %d / %d", res.Matched, len(entries)))

	log.Info("[4/4] Write outputs")
	res.CSVPath = filepath.Join(opts.OutDir, "catalog.csv")
	res.HTMLPath = filepath.Join(opts.OutDir, "catalog.html")
	if err := WriteCSVFile(res.CSVPath, entries); err != nil {
		return nil, err
	}
	if err := WriteHTMLFile(res.HTMLPath, entries); err != nil {
		return nil, err
	}

	if opts.Importer != nil {
		n, err := opts.Importer.Import(ctx, entries, opts.OutDir)
		res.Imported = n
		if err != nil {
			return res, fmt.Errorf("catalog: import: %w", err)
		}
		log.Info("Imported", "count", n)
	}

	log.Info("Done", "csv", res.CSVPath, "html", res.HTMLPath, "took", time.Since(start).String())
	return res, nil
}

// Match pairs every item's article with its best rate row.
func Match(items []Item, ix *ratelist.Index, threshold float64) []Entry {
	entries := make([]Entry, len(items))
	for i, it := range items {
		entries[i] = Entry{Item: it}
		if it.Article != "" {
			entries[i].Match = ix.Match(it.Article, threshold)
		}
	}
	return entries
}
