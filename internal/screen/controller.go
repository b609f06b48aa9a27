// Package screen holds the state behind one ledger table: the raw entry
// cache, the current search, sort, sub-filters and page, and the wiring to
// the delete coordinator and the sync channel. It knows nothing about how
// the table is drawn.
package screen

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/mutation"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
	"github.com/sushantshinde2401/bookkeeper/internal/view"
)

// Source loads a ledger from the backend.
type Source interface {
	ListEntries(ctx context.Context, l ledger.Ledger, filter client.ListFilter) ([]ledger.Entry, error)
}

// FilterExpenseSourced is the bank screen sub-filter keeping rows mirrored
// from the expense ledger.
const FilterExpenseSourced = "expense-sourced"

// Options configures a Controller.
type Options struct {
	Source      Source
	Coordinator *mutation.Coordinator
	Signals     *syncsignal.Channel
	Logger      *zap.Logger
	PageSize    int
}

// Controller is the state of one ledger screen. It is safe for concurrent
// use.
type Controller struct {
	ledger  ledger.Ledger
	columns []Column
	source  Source
	coord   *mutation.Coordinator
	signals *syncsignal.Channel
	logger  *zap.Logger
	cache   *Cache

	mu       sync.Mutex
	filter   client.ListFilter
	sort     view.SortSpec
	search   string
	subs     map[string]func(ledger.Entry) bool
	page     int
	pageSize int
	loadedAt time.Time
}

// New returns a controller for l. The list starts empty until Load.
func New(l ledger.Ledger, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.PageSize
	if size <= 0 {
		size = view.DefaultPageSize
	}
	return &Controller{
		ledger:   l,
		columns:  ColumnsFor(l),
		source:   opts.Source,
		coord:    opts.Coordinator,
		signals:  opts.Signals,
		logger:   logger.With(zap.String("ledger", string(l))),
		cache:    &Cache{},
		sort:     view.SortSpec{Key: view.KeyDate, Dir: view.Desc},
		subs:     make(map[string]func(ledger.Entry) bool),
		pageSize: size,
	}
}

func (c *Controller) Ledger() ledger.Ledger { return c.ledger }
func (c *Controller) Columns() []Column     { return c.columns }

// Load fetches the ledger for filter and replaces the cache. The page goes
// back to the first one.
func (c *Controller) Load(ctx context.Context, filter client.ListFilter) ([]ledger.Entry, error) {
	entries, err := c.source.ListEntries(ctx, c.ledger, filter)
	if err != nil {
		c.logger.Warn("load failed", zap.Error(err))
		return nil, fmt.Errorf("load %s ledger: %w", c.ledger, err)
	}
	c.cache.Replace(entries, c.deleting)

	c.mu.Lock()
	c.filter = filter
	c.page = 0
	c.loadedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("ledger loaded", zap.Int("entries", len(entries)))
	return entries, nil
}

// Reload fetches again with the current filter, keeping the page if it
// still exists.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	filter, page := c.filter, c.page
	c.mu.Unlock()

	if _, err := c.Load(ctx, filter); err != nil {
		return err
	}
	c.mu.Lock()
	c.page = page
	c.mu.Unlock()
	return nil
}

// Replace sets the cache directly, e.g. from an asynchronous load.
func (c *Controller) Replace(filter client.ListFilter, entries []ledger.Entry) {
	c.cache.Replace(entries, c.deleting)
	c.mu.Lock()
	c.filter = filter
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

func (c *Controller) Filter() client.ListFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// LoadedAt is when the cache was last filled.
func (c *Controller) LoadedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt
}

// Entries returns a copy of the raw cache.
func (c *Controller) Entries() []ledger.Entry { return c.cache.Snapshot() }

func (c *Controller) query() view.Query[ledger.Entry] {
	names := make([]string, 0, len(c.subs))
	for name := range c.subs {
		names = append(names, name)
	}
	slices.Sort(names)
	filters := make([]func(ledger.Entry) bool, 0, len(names))
	for _, name := range names {
		filters = append(filters, c.subs[name])
	}
	return view.Query[ledger.Entry]{
		Sort:    c.sort,
		Search:  c.search,
		Filters: filters,
		Columns: sortColumns(c.columns),
	}
}

// Lines derives every visible line from the cache.
func (c *Controller) Lines() []view.Line[ledger.Entry] {
	c.mu.Lock()
	q := c.query()
	c.mu.Unlock()
	return view.Derive(c.cache.Snapshot(), q)
}

// PageView is one page of visible lines.
type PageView struct {
	Lines []view.Line[ledger.Entry]
	// Page is 0-based and Pages is 0 for an empty ledger.
	Page    int
	Pages   int
	Total   int
	Summary view.Summary
}

// Page moves to page n (clamped) and returns it.
func (c *Controller) Page(n int) PageView {
	all := c.Lines()

	c.mu.Lock()
	defer c.mu.Unlock()
	lines, pages := view.Paginate(all, n, c.pageSize)
	c.page = min(max(n, 0), max(pages-1, 0))
	return PageView{
		Lines:   lines,
		Page:    c.page,
		Pages:   pages,
		Total:   len(all),
		Summary: view.Summarize(all),
	}
}

// Current returns the page the screen is on.
func (c *Controller) Current() PageView {
	c.mu.Lock()
	page := c.page
	c.mu.Unlock()
	return c.Page(page)
}

// SetSearch changes the free-text search and returns to the first page.
func (c *Controller) SetSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = term
	c.page = 0
}

func (c *Controller) Search() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.search
}

// ToggleSort applies a click on the column key. A key that is not one of
// the screen's columns leaves the sort unchanged.
func (c *Controller) ToggleSort(key string) view.SortSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.ContainsFunc(c.columns, func(col Column) bool { return col.Key == key }) {
		return c.sort
	}
	c.sort = c.sort.Toggle(key)
	return c.sort
}

func (c *Controller) Sort() view.SortSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// SetFilter installs a named sub-filter; a nil fn removes it.
func (c *Controller) SetFilter(name string, fn func(ledger.Entry) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		delete(c.subs, name)
	} else {
		c.subs[name] = fn
	}
	c.page = 0
}

// FilterActive reports whether the named sub-filter is installed.
func (c *Controller) FilterActive(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[name]
	return ok
}

// ToggleExpenseSourced flips the bank screen's expense-only sub-filter.
func (c *Controller) ToggleExpenseSourced() bool {
	if c.FilterActive(FilterExpenseSourced) {
		c.SetFilter(FilterExpenseSourced, nil)
		return false
	}
	c.SetFilter(FilterExpenseSourced, ledger.Entry.IsExpenseSourced)
	return true
}

// BeginDelete removes entry from the cache and marks it in flight. The
// returned delete must be committed and then finished.
func (c *Controller) BeginDelete(entry ledger.Entry) (*mutation.Pending, error) {
	return c.coord.Begin(entry, c.cache)
}

// FinishDelete applies the outcome of a committed delete.
func (c *Controller) FinishDelete(p *mutation.Pending, r mutation.Result) {
	p.Settle(c.cache, r)
}

// Deleting reports whether a delete of entry is in flight.
func (c *Controller) Deleting(entry ledger.Entry) bool {
	return c.deleting(entry)
}

// deleting keeps rows with a pending delete out of reloads until the
// delete settles.
func (c *Controller) deleting(entry ledger.Entry) bool {
	return c.coord != nil && c.coord.InFlight(entry)
}

// OnDeleteConfirmed runs a whole delete. A Reconciling outcome reloads the
// ledger before returning.
func (c *Controller) OnDeleteConfirmed(ctx context.Context, entry ledger.Entry) (mutation.Result, error) {
	p, err := c.BeginDelete(entry)
	if err != nil {
		return mutation.Result{}, err
	}
	r := p.Commit(ctx)
	c.FinishDelete(p, r)
	if r.Outcome == mutation.Reconciling {
		if err := c.Reload(ctx); err != nil {
			c.logger.Warn("reload after missing entry failed", zap.Error(err))
		}
	}
	return r, nil
}

// OnSyncSignal reloads after another session changed the ledger.
func (c *Controller) OnSyncSignal(ctx context.Context) error {
	c.logger.Debug("sync signal received")
	return c.Reload(ctx)
}

// Subscribe listens for sync signals of this ledger's family. fn runs on a
// background goroutine.
func (c *Controller) Subscribe(ctx context.Context, fn func(), interval time.Duration) *syncsignal.Subscription {
	return c.signals.Subscribe(ctx, ledger.SyncKey(c.ledger), fn, interval)
}

// ExportCSV writes every visible line, not only the current page, as CSV
// with every field quoted.
func (c *Controller) ExportCSV(w io.Writer) error {
	lines := c.Lines()

	header := make([]string, len(c.columns))
	for i, col := range c.columns {
		header[i] = col.Title
	}
	if err := writeQuoted(w, header); err != nil {
		return err
	}
	row := make([]string, len(c.columns))
	for _, l := range lines {
		for i, col := range c.columns {
			row[i] = col.Cell(l, nil)
		}
		if err := writeQuoted(w, row); err != nil {
			return err
		}
	}
	return nil
}

func writeQuoted(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// ExportName is the suggested file name for an export made at t.
func (c *Controller) ExportName(t time.Time) string {
	return fmt.Sprintf("%s-ledger-%s.csv", c.ledger, t.Format("20060102-150405"))
}
