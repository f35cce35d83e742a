package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/tagcatalog/config"
	"github.com/shashiranjanraj/tagcatalog/internal/catalog"
	"github.com/shashiranjanraj/tagcatalog/internal/ocr"
	"github.com/shashiranjanraj/tagcatalog/internal/ratelist"
	"github.com/shashiranjanraj/tagcatalog/internal/server"
	"github.com/shashiranjanraj/tagcatalog/internal/tagparse"
	"github.com/shashiranjanraj/tagcatalog/pkg/logger"
)

var ingestFlags struct {
	images    string
	rateList  string
	out       string
	force     bool
	workers   int
	threshold float64
	doImport  bool
}

// tagcatalog ingest
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "OCR a folder of tag photos, price them from the rate list and write catalog.csv/html",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := config.Load(); err != nil {
			return err
		}

		threshold := ingestFlags.threshold
		if threshold <= 0 {
			threshold = config.MatchThreshold()
		}
		opts := catalog.Options{
			ImagesDir: ingestFlags.images,
			RateList:  ingestFlags.rateList,
			OutDir:    ingestFlags.out,
			Force:     ingestFlags.force,
			Workers:   ingestFlags.workers,
			Threshold: threshold,
		}

		var app *server.App
		if ingestFlags.doImport {
			a, err := server.Boot(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			app = a
			opts.Importer = a.Product
		}

		res, err := catalog.Run(ctx, ocr.NewTesseract(), opts)
		if err != nil {
			return err
		}

		if app != nil && !app.Durable() {
			n := app.Queue.Drain(ctx)
			logger.Info("image uploads processed", "count", n)
		}

		fmt.Printf("OCR items: %d\nRate rows: %d\nMatched: %d / %d\n",
			len(res.Entries), res.RateRows, res.Matched, len(res.Entries))
		if ingestFlags.doImport {
			fmt.Printf("Imported: %d\n", res.Imported)
		}
		fmt.Println("Wrote", res.CSVPath)
		fmt.Println("Wrote", res.HTMLPath)
		return nil
	},
}

var ratelistMatchFlag string

// tagcatalog ratelist
var ratelistCmd = &cobra.Command{
	Use:   "ratelist <file.pdf>",
	Short: "Parse a rate-list PDF and print its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := ratelist.Parse(args[0])
		if err != nil {
			return err
		}

		if ratelistMatchFlag != "" {
			m := ratelist.NewIndex(rows).Match(ratelistMatchFlag, config.MatchThreshold())
			return printJSON(m)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PAGE\tPRICE\tROW")
		for _, r := range rows {
			price := "-"
			if p, ok := r.Price(); ok {
				price = p.String()
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", r.Page, price, r.Raw)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("Rate rows: %d\n", len(rows))
		return nil
	},
}

var ocrRawFlag bool

// tagcatalog ocr
var ocrCmd = &cobra.Command{
	Use:   "ocr <image>",
	Short: "OCR one tag photo and print the extracted fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := ocr.NewTesseract().Recognize(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if ocrRawFlag {
			fmt.Print(text)
			return nil
		}
		return printJSON(tagparse.Parse(text))
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestFlags.images, "images", "images", "Folder of tag photos (jpg/png)")
	f.StringVar(&ingestFlags.rateList, "rate-list", "rate_list.pdf", "Supplier rate-list PDF")
	f.StringVar(&ingestFlags.out, "out", "out", "Output folder for thumbs, OCR cache and catalog files")
	f.BoolVar(&ingestFlags.force, "force", false, "Re-run OCR even when a cached result exists")
	f.IntVar(&ingestFlags.workers, "workers", 4, "Concurrent OCR workers")
	f.Float64Var(&ingestFlags.threshold, "threshold", 0, "Match threshold 0-100 (default MATCH_THRESHOLD)")
	f.BoolVar(&ingestFlags.doImport, "import", false, "Create catalog products and upload their images")

	ratelistCmd.Flags().StringVar(&ratelistMatchFlag, "match", "", "Print the best row for this article instead of all rows")
	ocrCmd.Flags().BoolVar(&ocrRawFlag, "raw", false, "Print the raw OCR text")
}
