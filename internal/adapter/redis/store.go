// Package redis stores felt reports in a Redis list with an INCR sequence
// for ids. Both are updated by one Lua script per append.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Options configures the client connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// Store appends reports under Key and numbers them from Key+":seq".
type Store struct {
	client *goredis.Client
	key    string
	seqKey string
}

// Open connects and pings the server.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opts.Addr, err)
	}
	return New(client, opts.Key), nil
}

// New wraps an existing client.
func New(client *goredis.Client, key string) *Store {
	return &Store{client: client, key: key, seqKey: key + ":seq"}
}

// Load returns the whole list in append order.
func (s *Store) Load(ctx context.Context) ([]domain.FeltReport, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", s.key, err)
	}

	reports := make([]domain.FeltReport, 0, len(raw))
	for i, item := range raw {
		var r domain.FeltReport
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode report %d: %w", i, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// appendScript takes the next id and pushes the report in one atomic step,
// so list order always matches id order. ARGV[1] is the encoded report with
// its leading {"id":0, removed.
var appendScript = goredis.NewScript(`
local id = redis.call('INCR', KEYS[2])
redis.call('RPUSH', KEYS[1], '{"id":' .. id .. ',' .. ARGV[1])
return id
`)

var idPlaceholder = []byte(`{"id":0,`)

// Append numbers r from the sequence and pushes it to the list atomically.
func (s *Store) Append(ctx context.Context, r domain.FeltReport) (domain.FeltReport, error) {
	r.ID = 0
	data, err := json.Marshal(r)
	if err != nil {
		return domain.FeltReport{}, fmt.Errorf("encode report: %w", err)
	}
	rest, ok := bytes.CutPrefix(data, idPlaceholder)
	if !ok {
		return domain.FeltReport{}, fmt.Errorf("encode report: unexpected prefix %.16q", data)
	}

	id, err := appendScript.Run(ctx, s.client, []string{s.key, s.seqKey}, string(rest)).Int64()
	if err != nil {
		return domain.FeltReport{}, fmt.Errorf("append to %s: %w", s.key, err)
	}
	r.ID = int(id)
	return r, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}
