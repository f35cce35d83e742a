package catalog

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed catalog.html.tmpl
var catalogHTML string

var htmlTmpl = template.Must(template.New("catalog").Funcs(template.FuncMap{
	"search": func(e Entry) string {
		return strings.ToLower(strings.Join([]string{e.Image, e.Article, e.Colour, e.Size, e.Pair, e.Description}, " "))
	},
	"score": func(f float64) string { return strconv.FormatFloat(f, 'f', 1, 64) },
}).Parse(catalogHTML))

var csvHeader = []string{
	"image", "image_path", "thumb",
	"article", "colour", "size", "pair", "description", "raw_text",
	"matched", "score", "rate_row", "price",
}

// WriteCSV writes one row per entry below a fixed header.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		var rateRaw, price, score string
		if e.Row != nil {
			rateRaw = e.Row.Raw
			score = strconv.FormatFloat(e.Score, 'f', 1, 64)
		}
		if e.Price.Valid {
			price = e.Price.Decimal.String()
		}
		rec := []string{
			e.Image, e.ImagePath, e.Thumb,
			e.Article, e.Colour, e.Size, e.Pair, e.Description, e.RawText,
			strconv.FormatBool(e.Matched), score, rateRaw, price,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHTML renders the searchable card grid.
func WriteHTML(w io.Writer, entries []Entry) error {
	matched := 0
	for _, e := range entries {
		if e.Matched {
			matched++
		}
	}
	return htmlTmpl.Execute(w, map[string]any{
		"Entries": entries,
		"Total":   len(entries),
		"Matched": matched,
	})
}

func WriteCSVFile(path string, entries []Entry) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, entries) })
}

func WriteHTMLFile(path string, entries []Entry) error {
	return writeFile(path, func(w io.Writer) error { return WriteHTML(w, entries) })
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("catalog: create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("catalog: write %s: %w", path, err)
	}
	return f.Close()
}
