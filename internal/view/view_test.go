package view

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id     string
	date   string
	debit  int64
	credit int64
	text   string
	flag   bool
}

func (r row) EntryDate() (time.Time, bool) {
	if r.date == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", r.date)
	return t, err == nil
}
func (r row) DebitAmount() decimal.Decimal  { return decimal.NewFromInt(r.debit) }
func (r row) CreditAmount() decimal.Decimal { return decimal.NewFromInt(r.credit) }
func (r row) SearchText() []string          { return []string{r.id, r.text} }

var testColumns = Columns[row]{
	"debit": func(a, b row) int { return a.DebitAmount().Cmp(b.DebitAmount()) },
	"text":  func(a, b row) int { return strings.Compare(a.text, b.text) },
}

func ids(lines []Line[row]) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Entry.id
	}
	return out
}

func balances(lines []Line[row]) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.RunningBalance.String()
	}
	return out
}

func sample() []row {
	return []row{
		{id: "c", date: "2024-03-01", debit: 50, text: "Sales invoice"},
		{id: "a", date: "2024-01-01", debit: 100, text: "Opening"},
		{id: "b", date: "2024-02-01", credit: 40, text: "Receipt ABC-9", flag: true},
	}
}

func TestDerive_RunningBalanceInDateOrder(t *testing.T) {
	lines := Derive(sample(), Query[row]{Sort: SortSpec{Key: KeyDate, Dir: Asc}})

	assert.Equal(t, []string{"a", "b", "c"}, ids(lines))
	assert.Equal(t, []string{"100", "60", "110"}, balances(lines))
}

func TestDerive_BalanceStaysChronologicalWhenSortedOtherwise(t *testing.T) {
	desc := Derive(sample(), Query[row]{Sort: SortSpec{Key: KeyDate, Dir: Desc}})
	assert.Equal(t, []string{"c", "b", "a"}, ids(desc))
	assert.Equal(t, []string{"110", "60", "100"}, balances(desc))

	byDebit := Derive(sample(), Query[row]{Sort: SortSpec{Key: "debit", Dir: Desc}, Columns: testColumns})
	assert.Equal(t, []string{"a", "c", "b"}, ids(byDebit))
	assert.Equal(t, []string{"100", "110", "60"}, balances(byDebit))
}

func TestDerive_IsPureAndRepeatable(t *testing.T) {
	raw := sample()
	before := append([]row(nil), raw...)
	q := Query[row]{Sort: SortSpec{Key: "text"}, Search: "e", Columns: testColumns}

	first := Derive(raw, q)
	second := Derive(raw, q)

	assert.Equal(t, first, second)
	assert.Equal(t, before, raw)
}

func TestDerive_TiesKeepOriginalOrder(t *testing.T) {
	raw := []row{
		{id: "x", date: "2024-01-05", debit: 1},
		{id: "y", date: "2024-01-05", debit: 2},
		{id: "z", date: "2024-01-05", debit: 3},
	}

	asc := Derive(raw, Query[row]{Sort: SortSpec{Key: KeyDate, Dir: Asc}})
	desc := Derive(raw, Query[row]{Sort: SortSpec{Key: KeyDate, Dir: Desc}})

	assert.Equal(t, []string{"x", "y", "z"}, ids(asc))
	assert.Equal(t, []string{"1", "3", "6"}, balances(asc))
	assert.Equal(t, []string{"x", "y", "z"}, ids(desc))
}

func TestDerive_MissingDatesSortLast(t *testing.T) {
	raw := []row{
		{id: "nodate", debit: 5},
		{id: "old", date: "2023-01-01", debit: 1},
		{id: "new", date: "2024-01-01", debit: 1},
	}

	asc := Derive(raw, Query[row]{Sort: SortSpec{Key: KeyDate, Dir: Asc}})
	desc := Derive(raw, Query[row]{Sort: SortSpec{Key: KeyDate, Dir: Desc}})

	assert.Equal(t, []string{"old", "new", "nodate"}, ids(asc))
	assert.Equal(t, []string{"1", "2", "7"}, balances(asc))
	assert.Equal(t, []string{"new", "old", "nodate"}, ids(desc))
}

func TestDerive_SearchIsCaseInsensitive(t *testing.T) {
	raw := sample()

	got := Derive(raw, Query[row]{Search: "abc"})
	assert.Equal(t, []string{"b"}, ids(got))

	got = Derive(raw, Query[row]{Search: "SALES"})
	assert.Equal(t, []string{"c"}, ids(got))

	got = Derive(raw, Query[row]{Search: "   "})
	assert.Len(t, got, 3)
}

func TestDerive_FiltersIntersectSearch(t *testing.T) {
	raw := sample()
	flagged := func(r row) bool { return r.flag }

	got := Derive(raw, Query[row]{Filters: []func(row) bool{flagged}})
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Entry.id)
	assert.Equal(t, "-40", got[0].RunningBalance.String())

	got = Derive(raw, Query[row]{Search: "sales", Filters: []func(row) bool{flagged}})
	assert.Empty(t, got)
}

func TestDerive_Empty(t *testing.T) {
	got := Derive[row](nil, Query[row]{})
	assert.Empty(t, got)

	s := Summarize(got)
	assert.Zero(t, s.Count)
	assert.True(t, s.Debit.IsZero())
	assert.True(t, s.Credit.IsZero())
	assert.True(t, s.Closing.IsZero())
}

func TestDerive_UnknownKeySortsByDate(t *testing.T) {
	got := Derive(sample(), Query[row]{Sort: SortSpec{Key: "nope"}})
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, []string{"100", "60", "110"}, balances(got))

	got = Derive(sample(), Query[row]{Sort: SortSpec{Key: "nope", Dir: Desc}})
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
}

func TestSortBalanceColumn(t *testing.T) {
	got := Derive(sample(), Query[row]{Sort: SortSpec{Key: KeyBalance, Dir: Asc}})
	assert.Equal(t, []string{"b", "a", "c"}, ids(got))
}

func TestSortSpec_Toggle(t *testing.T) {
	s := SortSpec{Key: KeyDate, Dir: Asc}

	s = s.Toggle(KeyDate)
	assert.Equal(t, SortSpec{Key: KeyDate, Dir: Desc}, s)

	s = s.Toggle(KeyDate)
	assert.Equal(t, SortSpec{Key: KeyDate, Dir: Asc}, s)

	s = s.Toggle(KeyDate).Toggle("debit")
	assert.Equal(t, SortSpec{Key: "debit", Dir: Asc}, s)
}

func TestPaginate(t *testing.T) {
	raw := make([]row, 120)
	for i := range raw {
		raw[i] = row{id: string(rune('A' + i%26)), date: "2024-01-01", debit: 1}
	}
	lines := Derive(raw, Query[row]{})

	page, pages := Paginate(lines, 0, DefaultPageSize)
	assert.Equal(t, 3, pages)
	assert.Len(t, page, 50)

	page, _ = Paginate(lines, 2, DefaultPageSize)
	assert.Len(t, page, 20)
	assert.Equal(t, "120", page[len(page)-1].RunningBalance.String())

	page, _ = Paginate(lines, 99, DefaultPageSize)
	assert.Len(t, page, 20, "page is clamped")

	page, pages = Paginate[row](nil, 0, 0)
	assert.Nil(t, page)
	assert.Zero(t, pages)
}

func TestSummarize(t *testing.T) {
	s := Summarize(Derive(sample(), Query[row]{}))
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "150", s.Debit.String())
	assert.Equal(t, "40", s.Credit.String())
	assert.Equal(t, "110", s.Closing.String())
}
