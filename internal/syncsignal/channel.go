package syncsignal

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is used when Subscribe is given a non-positive interval.
const DefaultPollInterval = 15 * time.Second

// storeTimeout bounds a single poll or trigger against a slow store.
const storeTimeout = 5 * time.Second

// Channel writes and observes signals on a Store. A nil store turns every
// operation into a no-op.
type Channel struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	last int64
}

// New returns a channel over store.
func New(store Store, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{store: store, logger: logger, now: time.Now}
}

// stamp returns a millisecond timestamp that never repeats on this channel.
func (c *Channel) stamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now().UnixMilli()
	if ts <= c.last {
		ts = c.last + 1
	}
	c.last = ts
	return ts
}

// Trigger announces that data behind key changed. Failures are logged and
// swallowed; callers never have to handle them.
func (c *Channel) Trigger(ctx context.Context, key string) {
	if c == nil || c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	value := strconv.FormatInt(c.stamp(), 10)
	if err := c.store.Set(ctx, key, value); err != nil {
		c.logger.Warn("sync trigger failed", zap.String("key", key), zap.Error(err))
		return
	}
	c.logger.Debug("sync triggered", zap.String("key", key), zap.String("value", value))
}

// Subscribe calls fn whenever key changes, either through the store's change
// notifications or through a poll every interval. Several triggers between
// two observations produce a single call. ctx only bounds the setup.
func (c *Channel) Subscribe(ctx context.Context, key string, fn func(), interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	s := &Subscription{
		key:    key,
		fn:     fn,
		done:   make(chan struct{}),
		logger: c.loggerOrNop(),
	}
	if c == nil || c.store == nil {
		s.closed = true
		close(s.done)
		return s
	}
	s.store = c.store

	if v, err := c.store.Get(ctx, key); err != nil {
		s.logger.Debug("sync initial read failed", zap.String("key", key), zap.Error(err))
	} else {
		s.lastSeen = v
	}

	stop, err := c.store.Watch(ctx, key, s.observe)
	switch {
	case err == nil:
		s.stopWatch = stop
	case errors.Is(err, ErrWatchUnsupported):
		s.logger.Debug("sync store has no notifications, polling only", zap.String("key", key))
	default:
		s.logger.Warn("sync watch failed, polling only", zap.String("key", key), zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	go s.loop(ticker)
	return s
}

func (c *Channel) loggerOrNop() *zap.Logger {
	if c == nil || c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// Subscription is an active registration returned by Channel.Subscribe.
type Subscription struct {
	key       string
	fn        func()
	store     Store
	stopWatch func()
	done      chan struct{}
	logger    *zap.Logger

	mu       sync.Mutex
	lastSeen string
	closed   bool

	fire sync.Mutex
}

func (s *Subscription) loop(ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			s.Check(ctx)
			cancel()
		}
	}
}

// Check reads the key now and fires the callback if it changed since the
// last observation.
func (s *Subscription) Check(ctx context.Context) {
	if s.store == nil {
		return
	}
	v, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.logger.Debug("sync poll failed", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.observe(v)
}

func (s *Subscription) observe(value string) {
	s.mu.Lock()
	if s.closed || value == s.lastSeen {
		s.mu.Unlock()
		return
	}
	s.lastSeen = value
	s.mu.Unlock()

	s.fire.Lock()
	defer s.fire.Unlock()
	if s.fn != nil {
		s.fn()
	}
}

// Close stops the watcher and the poll timer. It is safe to call twice.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stopWatch
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	close(s.done)
}

// Done is closed once the subscription has been closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }
