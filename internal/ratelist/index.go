package ratelist

import (
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/shashiranjanraj/tagcatalog/internal/fuzzy"
	"github.com/shashiranjanraj/tagcatalog/pkg/metrics"
)

// Match is the best rate row found for a query.
type Match struct {
	Matched bool                `json:"matched"`
	Score   float64             `json:"score"`
	Row     *Row                `json:"rate_row,omitempty"`
	Price   decimal.NullDecimal `json:"price"`
}

type snapshot struct {
	rows    []Row
	choices []string
	source  string
}

// Index is the live rate list. Reads are lock-free; Replace swaps the whole
// list at once.
type Index struct {
	cur atomic.Pointer[snapshot]
}

// NewIndex returns an index over rows.
func NewIndex(rows []Row) *Index {
	ix := &Index{}
	ix.Replace(rows, "")
	return ix
}

// Load parses path and replaces the index contents with it.
func (ix *Index) Load(path string) error {
	rows, err := Parse(path)
	if err != nil {
		return err
	}
	ix.Replace(rows, path)
	return nil
}

// Replace installs rows as the live rate list.
func (ix *Index) Replace(rows []Row, source string) {
	s := &snapshot{rows: rows, choices: make([]string, len(rows)), source: source}
	for i, r := range rows {
		s.choices[i] = r.Raw
	}
	ix.cur.Store(s)
}

func (ix *Index) snap() *snapshot {
	if s := ix.cur.Load(); s != nil {
		return s
	}
	return &snapshot{}
}

// Rows returns the current rows. Callers must not modify the slice.
func (ix *Index) Rows() []Row { return ix.snap().rows }

// Len is the number of rows in the live list.
func (ix *Index) Len() int { return len(ix.snap().rows) }

// Source is the path the live list was loaded from, if any.
func (ix *Index) Source() string { return ix.snap().source }

// Match finds the row whose raw text best matches query. Matched is set when
// the score reaches threshold.
func (ix *Index) Match(query string, threshold float64) Match {
	s := ix.snap()
	i, score, ok := fuzzy.BestMatch(query, s.choices)
	if !ok {
		return Match{}
	}

	row := s.rows[i]
	m := Match{Matched: score >= threshold, Score: score, Row: &row}
	if p, ok := row.Price(); ok {
		m.Price = decimal.NullDecimal{Decimal: p, Valid: true}
	}
	metrics.ObserveMatch(score, m.Matched)
	return m
}
