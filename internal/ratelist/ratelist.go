// Package ratelist reads supplier rate-list PDFs into rows that can be
// fuzzy-matched against article codes.
package ratelist

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
)

// ErrNoRows is returned when a PDF yields neither table rows nor text lines.
var ErrNoRows = errors.New("ratelist: no rows found")

const rowTolerance = 2.0

// Row is one line of the rate list.
type Row struct {
	Page  int      `json:"page"`
	Cells []string `json:"cells"`
	Raw   string   `json:"raw"`
}

var (
	currencyRe = regexp.MustCompile(`(?i)₹|\brs\.?`)
	numberRe   = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	priceRe    = regexp.MustCompile(`^\d[\d,]*(?:\.\d+)?$`)
)

// Price returns the row's price: the last cell that is a bare amount, or
// failing that the last number anywhere in the row.
func (r Row) Price() (decimal.Decimal, bool) {
	for i := len(r.Cells) - 1; i >= 0; i-- {
		c := strings.TrimSpace(currencyRe.ReplaceAllString(r.Cells[i], ""))
		if priceRe.MatchString(c) {
			if d, err := decimal.NewFromString(strings.ReplaceAll(c, ",", "")); err == nil {
				return d, true
			}
		}
	}

	nums := numberRe.FindAllString(currencyRe.ReplaceAllString(r.Raw, ""), -1)
	if len(nums) == 0 {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(nums[len(nums)-1], ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Parse reads the rate list at path. Table rows are rebuilt from positioned
// text runs; when a document has none, its plain text is used line by line.
// A missing file yields an error wrapping fs.ErrNotExist.
func Parse(path string) (rows []Row, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("ratelist: %w", err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ratelist: open %s: %w", path, err)
	}
	defer f.Close()

	// The pdf reader panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			rows, err = nil, fmt.Errorf("ratelist: read %s: %v", path, rec)
		}
	}()

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows = append(rows, pageRows(i, p.Content().Text)...)
	}
	if len(rows) > 0 {
		return rows, nil
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		rows = append(rows, lineRows(i, text)...)
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}

type line struct {
	y    float64
	runs []pdf.Text
}

// pageRows groups text runs sharing a baseline (within rowTolerance) into
// rows, top of page first, and drops the page's header row.
func pageRows(page int, texts []pdf.Text) []Row {
	var lines []line
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		placed := false
		for i := range lines {
			if abs(lines[i].y-t.Y) < rowTolerance {
				lines[i].runs = append(lines[i].runs, t)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, line{y: t.Y, runs: []pdf.Text{t}})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var rows []Row
	headerSeen := false
	for _, l := range lines {
		cells := splitCells(l.runs)
		if len(cells) == 0 {
			continue
		}
		raw := strings.Join(cells, " | ")
		if !headerSeen && isHeader(raw) {
			headerSeen = true
			continue
		}
		rows = append(rows, Row{Page: page, Cells: cells, Raw: raw})
	}
	return rows
}

// splitCells orders runs left to right and joins them into cells. A gap
// wider than the font size starts a new cell; a smaller visible gap becomes
// a space.
func splitCells(runs []pdf.Text) []string {
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var (
		cells []string
		cur   strings.Builder
		end   float64
	)
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			cells = append(cells, s)
		}
		cur.Reset()
	}

	for i, t := range runs {
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		if i > 0 {
			gap := t.X - end
			switch {
			case gap > size:
				flush()
			case gap > size*0.15:
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(t.S)

		w := t.W
		if w <= 0 {
			w = size * 0.5 * float64(len([]rune(t.S)))
		}
		end = t.X + w
	}
	flush()
	return cells
}

func lineRows(page int, text string) []Row {
	var rows []Row
	for _, l := range strings.Split(text, "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" {
			continue
		}
		rows = append(rows, Row{Page: page, Cells: []string{l}, Raw: l})
	}
	return rows
}

func isHeader(raw string) bool {
	s := strings.ToLower(raw)
	return containsAny(s, "article", "item", "description") &&
		containsAny(s, "rate", "price", "mrp")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
