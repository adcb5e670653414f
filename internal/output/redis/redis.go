// Package redis appends alerts to a Redis stream.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crimson-sun/silverwatch/internal/model"
	"github.com/crimson-sun/silverwatch/internal/output"
)

// defaultMaxLen caps the stream length (approximate trimming).
const defaultMaxLen = 100_000

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64 // 0 = defaultMaxLen
}

// Output writes one stream entry per alert with XADD.
type Output struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New creates the client. The connection is established on first use.
func New(opts Options) (*Output, error) {
	if opts.Addr == "" || opts.Stream == "" {
		return nil, fmt.Errorf("redis output: addr and stream are required")
	}
	if opts.MaxLen <= 0 {
		opts.MaxLen = defaultMaxLen
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		MaxRetries:  -1,
		DialTimeout: 5 * time.Second,
	})
	return &Output{client: client, stream: opts.Stream, maxLen: opts.MaxLen}, nil
}

func (o *Output) args(alert model.AlertEvent) *redis.XAddArgs {
	return &redis.XAddArgs{
		Stream: o.stream,
		MaxLen: o.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":          alert.ID,
			"event_time":  alert.Timestamp.Format(time.RFC3339Nano),
			"alert_level": alert.Level,
			"name":        alert.Name,
			"sample":      alert.Sample.String(),
		},
	}
}

func (o *Output) Write(ctx context.Context, alert model.AlertEvent) error {
	return output.Fail("redis", "xadd", o.client.XAdd(ctx, o.args(alert)).Err())
}

func (o *Output) Close() error {
	return o.client.Close()
}
