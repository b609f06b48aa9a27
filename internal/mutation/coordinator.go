// Package mutation deletes ledger entries optimistically: the entry leaves
// the local list at once, the server is asked to delete it, and the outcome
// decides whether the removal stands, is rolled back or needs a reload.
package mutation

import (
	"context"
	"errors"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
)

// Outcome is the terminal state of a delete.
type Outcome int

const (
	// Committed means the server deleted the entry.
	Committed Outcome = iota + 1
	// Reconciling means the server no longer knew the entry. The local
	// removal stays and the caller should reload the ledger.
	Reconciling
	// RolledBack means the delete failed and the entry was put back.
	RolledBack
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Reconciling:
		return "reconciling"
	case RolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// GenericFailure is shown when the server gave no usable message.
const GenericFailure = "Failed to delete entry. Please try again."

// Result reports how a delete ended. Err is set for Reconciling and
// RolledBack.
type Result struct {
	Outcome Outcome
	Entry   ledger.Entry
	Err     error
}

// Message is the text to show the user for a failed delete.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	var msg interface{ UserMessage() string }
	if errors.As(r.Err, &msg) && msg.UserMessage() != "" {
		return msg.UserMessage()
	}
	return GenericFailure
}

// Deleter removes an entry on the server.
type Deleter interface {
	DeleteEntry(ctx context.Context, kind ledger.Kind, id string) error
}

// List is the local entry cache a delete acts on.
type List interface {
	// Remove takes the entry with id out of the list.
	Remove(id string) (ledger.Entry, bool)
	// Restore puts a removed entry back.
	Restore(e ledger.Entry)
}

// Coordinator runs deletes for one or more screens. It refuses to start a
// second delete of an entry that is still in flight.
type Coordinator struct {
	deleter Deleter
	signals *syncsignal.Channel
	logger  *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New returns a coordinator. signals may be nil, in which case commits do
// not notify other sessions.
func New(deleter Deleter, signals *syncsignal.Channel, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		deleter:  deleter,
		signals:  signals,
		logger:   logger,
		inFlight: make(map[string]struct{}),
	}
}

// Pending is a delete whose optimistic removal has been applied.
type Pending struct {
	c     *Coordinator
	entry ledger.Entry
	kind  ledger.Kind
	key   string
	// removed is false when the entry was not in the list to begin with.
	removed bool
	settled bool
}

// Entry returns the entry being deleted.
func (p *Pending) Entry() ledger.Entry { return p.entry }

// Begin validates the entry, marks it in flight and removes it from list.
// Validation errors leave list untouched and never reach the network.
func (c *Coordinator) Begin(entry ledger.Entry, list List) (*Pending, error) {
	if entry.ID == "" {
		return nil, ledger.ErrMissingID
	}
	kind, err := ledger.KindForEntry(entry)
	if err != nil {
		return nil, err
	}
	key := inFlightKey(kind, entry.ID)

	c.mu.Lock()
	if _, busy := c.inFlight[key]; busy {
		c.mu.Unlock()
		return nil, ledger.ErrDeleteInFlight
	}
	c.inFlight[key] = struct{}{}
	c.mu.Unlock()

	p := &Pending{c: c, entry: entry, kind: kind, key: key}
	if list != nil {
		if removed, ok := list.Remove(entry.ID); ok {
			p.entry = removed
			p.removed = true
		}
	}
	return p, nil
}

// InFlight reports whether a delete of entry has begun and not yet settled.
func (c *Coordinator) InFlight(entry ledger.Entry) bool {
	kind, err := ledger.KindForEntry(entry)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inFlight[inFlightKey(kind, entry.ID)]
	return ok
}

// Commit sends the delete to the server and classifies the answer. It does
// not touch the list, so it may run off the UI loop.
func (p *Pending) Commit(ctx context.Context) Result {
	err := p.c.deleter.DeleteEntry(ctx, p.kind, p.entry.ID)
	log := p.c.logger.With(zap.String("kind", string(p.kind)), zap.String("id", p.entry.ID))
	switch {
	case err == nil:
		log.Info("entry deleted")
		p.c.signals.Trigger(ctx, ledger.SyncKey(p.entry.Ledger))
		return Result{Outcome: Committed, Entry: p.entry}
	case errors.Is(err, ledger.ErrEntryNotFound):
		log.Info("entry already gone, reload required", zap.Error(err))
		return Result{Outcome: Reconciling, Entry: p.entry, Err: err}
	default:
		log.Warn("delete failed, rolling back", zap.Error(err))
		return Result{Outcome: RolledBack, Entry: p.entry, Err: err}
	}
}

// Settle applies the result to list and clears the in-flight mark. Only a
// rolled back delete puts the entry back. Settling twice is a no-op.
func (p *Pending) Settle(list List, r Result) {
	if p.settled {
		return
	}
	p.settled = true
	if r.Outcome == RolledBack && p.removed && list != nil {
		list.Restore(p.entry)
	}
	p.c.mu.Lock()
	delete(p.c.inFlight, p.key)
	p.c.mu.Unlock()
}

// Delete runs Begin, Commit and Settle in one call. A validation error is
// returned as is and nothing else happens.
func (c *Coordinator) Delete(ctx context.Context, entry ledger.Entry, list List) (Result, error) {
	p, err := c.Begin(entry, list)
	if err != nil {
		return Result{}, err
	}
	r := p.Commit(ctx)
	p.Settle(list, r)
	return r, nil
}

func inFlightKey(kind ledger.Kind, id string) string {
	return string(kind) + "/" + id
}

// InsertByDate returns entries with e inserted where a newest-first list
// expects it: before the first entry dated earlier than e. Undated entries
// go after every dated one.
func InsertByDate(entries []ledger.Entry, e ledger.Entry) []ledger.Entry {
	i := slices.IndexFunc(entries, func(x ledger.Entry) bool {
		if e.Date.IsZero() {
			return false
		}
		return x.Date.IsZero() || x.Date.Before(e.Date)
	})
	if i < 0 {
		return append(entries, e)
	}
	return slices.Insert(entries, i, e)
}
