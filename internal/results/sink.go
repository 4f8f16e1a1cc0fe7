// Package results stores, aggregates and reports episode metrics.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
)

// Sink receives episode records. Implementations are safe for concurrent
// use.
type Sink interface {
	Write(ctx context.Context, m acting.Metrics) error
	Close() error
}

// JSONLSink appends one JSON object per line to a file.
type JSONLSink struct {
	path string
	file *os.File
	mu   sync.Mutex
}

// NewJSONLSink opens path in append mode, creating it if needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file %s: %w", path, err)
	}
	return &JSONLSink{path: path, file: file}, nil
}

// Write appends m as a single line.
func (s *JSONLSink) Write(_ context.Context, m acting.Metrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Close syncs and closes the file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to flush results file: %w", err)
	}
	return s.file.Close()
}

// Path returns the file path.
func (s *JSONLSink) Path() string {
	return s.path
}

// ReadJSONL loads every record from a JSONL results file.
func ReadJSONL(path string) ([]acting.Metrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []acting.Metrics
	dec := json.NewDecoder(f)
	for dec.More() {
		var m acting.Metrics
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("failed to decode %s record %d: %w", path, len(out)+1, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// DefaultRedisKey is the list records are pushed to.
const DefaultRedisKey = "taxi-htn:episodes"

// RedisOptions configures a RedisSink.
type RedisOptions struct {
	URL            string
	Key            string
	ConnectTimeout time.Duration
}

// RedisSink pushes records onto a Redis list, oldest first.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink connects and pings the server.
func NewRedisSink(opts RedisOptions) (*RedisSink, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.Key == "" {
		opts.Key = DefaultRedisKey
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSink{client: client, key: opts.Key}, nil
}

// Write appends m to the list.
func (s *RedisSink) Write(ctx context.Context, m acting.Metrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", s.key, err)
	}
	return nil
}

// Load reads every record currently in the list.
func (s *RedisSink) Load(ctx context.Context) ([]acting.Metrics, error) {
	items, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	out := make([]acting.Metrics, 0, len(items))
	for i, item := range items {
		var m acting.Metrics
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to decode %s[%d]: %w", s.key, i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

type multiSink []Sink

// Sinks writes to every sink and joins their errors.
func Sinks(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Write(ctx context.Context, mt acting.Metrics) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, mt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector keeps records in memory.
type Collector struct {
	mu      sync.Mutex
	records []acting.Metrics
}

// Write implements Sink.
func (c *Collector) Write(_ context.Context, m acting.Metrics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, m)
	return nil
}

// Close implements Sink.
func (c *Collector) Close() error { return nil }

// Records returns a copy of the collected records.
func (c *Collector) Records() []acting.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]acting.Metrics(nil), c.records...)
}
