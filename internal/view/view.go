// Package view derives display-ready ledger lines from a cached entry list:
// chronological running balance, search and sub-filters, column sort and
// pagination. Everything here is a pure function of its inputs.
package view

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPageSize is the number of lines a ledger screen shows per page.
const DefaultPageSize = 50

// Row is what the reducer needs to know about an entry.
type Row interface {
	// EntryDate reports the posting date; ok is false when it is unknown.
	EntryDate() (date time.Time, ok bool)
	DebitAmount() decimal.Decimal
	CreditAmount() decimal.Decimal
	// SearchText lists the fields matched by the free-text search.
	SearchText() []string
}

// Direction of a sort.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Sort keys known to every reducer.
const (
	KeyDate    = "date"
	KeyBalance = "balance"
)

// SortSpec selects the display order.
type SortSpec struct {
	Key string
	Dir Direction
}

// Toggle returns the spec after a click on key: same key flips the
// direction, another key starts ascending.
func (s SortSpec) Toggle(key string) SortSpec {
	if s.Key == key {
		if s.Dir == Asc {
			return SortSpec{Key: key, Dir: Desc}
		}
		return SortSpec{Key: key, Dir: Asc}
	}
	return SortSpec{Key: key, Dir: Asc}
}

// Compare orders two rows for one column.
type Compare[E any] func(a, b E) int

// Columns maps sort keys to comparators. KeyDate and KeyBalance are built in
// and need not be listed.
type Columns[E any] map[string]Compare[E]

// Query is everything a derivation depends on besides the raw list.
type Query[E Row] struct {
	Sort    SortSpec
	Search  string
	Filters []func(E) bool
	Columns Columns[E]
}

// Line is an entry annotated with its running balance.
type Line[E Row] struct {
	Entry          E
	RunningBalance decimal.Decimal
	// Index is the position of Entry in the raw list.
	Index int
}

// Derive filters raw by the query, computes running balances in
// chronological order and sorts for display. raw is not modified.
//
// The balance of a line is the sum of debit minus credit over every kept line
// dated on or before it (ties keep their original order), whatever column the
// display is sorted by.
func Derive[E Row](raw []E, q Query[E]) []Line[E] {
	lines := make([]Line[E], 0, len(raw))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for i, e := range raw {
		if !matches(e, needle, q.Filters) {
			continue
		}
		lines = append(lines, Line[E]{Entry: e, Index: i})
	}
	if len(lines) == 0 {
		return lines
	}

	slices.SortStableFunc(lines, func(a, b Line[E]) int {
		return compareDates(a.Entry, b.Entry, Asc)
	})
	balance := decimal.Zero
	for i := range lines {
		balance = balance.Add(lines[i].Entry.DebitAmount()).Sub(lines[i].Entry.CreditAmount())
		lines[i].RunningBalance = balance
	}

	// Restore raw order so ties in the display sort fall back to it.
	slices.SortFunc(lines, func(a, b Line[E]) int { return cmp.Compare(a.Index, b.Index) })
	slices.SortStableFunc(lines, lineComparator(q))
	return lines
}

func matches[E Row](e E, needle string, filters []func(E) bool) bool {
	for _, f := range filters {
		if f != nil && !f(e) {
			return false
		}
	}
	if needle == "" {
		return true
	}
	for _, field := range e.SearchText() {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func lineComparator[E Row](q Query[E]) func(a, b Line[E]) int {
	key := q.Sort.Key
	if key == "" {
		key = KeyDate
	}
	switch key {
	case KeyDate:
		return func(a, b Line[E]) int { return compareDates(a.Entry, b.Entry, q.Sort.Dir) }
	case KeyBalance:
		return func(a, b Line[E]) int { return directed(a.RunningBalance.Cmp(b.RunningBalance), q.Sort.Dir) }
	}
	if c, ok := q.Columns[key]; ok && c != nil {
		return func(a, b Line[E]) int { return directed(c(a.Entry, b.Entry), q.Sort.Dir) }
	}
	// Unknown key: fall back to date.
	return func(a, b Line[E]) int { return compareDates(a.Entry, b.Entry, q.Sort.Dir) }
}

// compareDates puts undated rows after dated ones in either direction.
func compareDates[E Row](a, b E, dir Direction) int {
	ad, aok := a.EntryDate()
	bd, bok := b.EntryDate()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	return directed(ad.Compare(bd), dir)
}

func directed(c int, dir Direction) int {
	if dir == Desc {
		return -c
	}
	return c
}

// Paginate returns the page-th page (0-based) of lines and the page count.
// Out of range pages are clamped.
func Paginate[E Row](lines []Line[E], page, size int) ([]Line[E], int) {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (len(lines) + size - 1) / size
	if pages == 0 {
		return nil, 0
	}
	page = min(max(page, 0), pages-1)
	start := page * size
	end := min(start+size, len(lines))
	return lines[start:end], pages
}

// Summary totals a derived list.
type Summary struct {
	Count   int
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Closing decimal.Decimal
}

// Summarize totals lines. Closing is debit minus credit over all of them,
// which equals the last chronological running balance.
func Summarize[E Row](lines []Line[E]) Summary {
	s := Summary{Count: len(lines)}
	for _, l := range lines {
		s.Debit = s.Debit.Add(l.Entry.DebitAmount())
		s.Credit = s.Credit.Add(l.Entry.CreditAmount())
	}
	s.Closing = s.Debit.Sub(s.Credit)
	return s
}
