// Package kafkasignal backs sync signals with a Kafka topic so several
// backend replicas observe the same keys. The topic is expected to have a
// single partition and may be compacted by key.
package kafkasignal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const DefaultTopic = "ledger_sync_signals"

type Store struct {
	writer *kafka.Writer
	reader *kafka.Reader
	logger *zap.Logger

	mu       sync.RWMutex
	values   map[string]string
	nextID   int
	watchers map[string]map[int]func(string)

	cancel context.CancelFunc
	done   chan struct{}
}

// New connects to brokers and starts consuming topic from its first offset,
// so Get reflects the latest value of every key already published.
func New(brokers []string, topic string, logger *zap.Logger) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
		MaxWait:   time.Second,
	})
	if err := reader.SetOffset(kafka.FirstOffset); err != nil {
		reader.Close()
		return nil, fmt.Errorf("kafka: set offset: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		writer: &kafka.Writer{
			Addr:  kafka.TCP(brokers...),
			Topic: topic,
			Balancer: kafka.BalancerFunc(func(_ kafka.Message, partitions ...int) int {
				return partitions[0]
			}),
		},
		reader:   reader,
		logger:   logger,
		values:   make(map[string]string),
		watchers: make(map[string]map[int]func(string)),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.consume(ctx)
	return s, nil
}

func newDetached(logger *zap.Logger) *Store {
	return &Store{
		logger:   logger,
		values:   make(map[string]string),
		watchers: make(map[string]map[int]func(string)),
	}
}

func (s *Store) consume(ctx context.Context) {
	defer close(s.done)
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("kafka signal read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		s.apply(string(msg.Key), string(msg.Value))
	}
}

// apply records value and notifies watchers if it is new.
func (s *Store) apply(key, value string) {
	s.mu.Lock()
	if s.values[key] == value {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	fns := make([]func(string), 0, len(s.watchers[key]))
	for _, fn := range s.watchers[key] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("kafka: publish %s: %w", key, err)
	}
	s.apply(key, value)
	return nil
}

func (s *Store) Watch(_ context.Context, key string, fn func(string)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]func(string))
	}
	s.watchers[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.watchers[key], id)
		})
	}, nil
}

// Close stops the consumer and flushes the writer.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	var errs []error
	if s.reader != nil {
		errs = append(errs, s.reader.Close())
	}
	if s.writer != nil {
		errs = append(errs, s.writer.Close())
	}
	return errors.Join(errs...)
}
