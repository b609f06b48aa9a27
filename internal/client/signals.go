package client

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// redialDelay is how long a broken watch waits before reconnecting.
var redialDelay = 2 * time.Second

// SignalStore keeps sync signals on the server so every process talking to
// it shares them. Watch holds a websocket open and receives each new value.
type SignalStore struct {
	c      *Client
	logger *zap.Logger
}

func NewSignalStore(c *Client, logger *zap.Logger) *SignalStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalStore{c: c, logger: logger}
}

type signalBody struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

func signalPath(key string) string {
	return "/api/v1/signals/" + url.PathEscape(key)
}

func (s *SignalStore) Get(ctx context.Context, key string) (string, error) {
	var result signalBody
	if err := s.c.get(ctx, signalPath(key), &result); err != nil {
		return "", err
	}
	return result.Value, nil
}

func (s *SignalStore) Set(ctx context.Context, key, value string) error {
	return s.c.put(ctx, signalPath(key), signalBody{Value: value}, nil)
}

// Watch dials the server's watch socket for key and keeps redialing until
// stop is called. Values missed while disconnected are caught by polling.
func (s *SignalStore) Watch(_ context.Context, key string, fn func(string)) (func(), error) {
	wsURL, err := s.watchURL(key)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			err := s.watchOnce(ctx, wsURL, fn)
			if ctx.Err() != nil {
				return
			}
			s.logger.Debug("signal watch disconnected", zap.String("key", key), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(redialDelay):
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}, nil
}

func (s *SignalStore) watchOnce(ctx context.Context, wsURL string, fn func(string)) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		fn(string(data))
	}
}

func (s *SignalStore) watchURL(key string) (string, error) {
	u, err := url.Parse(s.c.baseURL + signalPath(key) + "/watch")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("signal watch: unsupported scheme " + u.Scheme)
	}
	return u.String(), nil
}
