package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream (approximate trimming). Zero disables trimming.
	MaxLen int64
}

type RedisStreamPublisher struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(log *logger.Logger, cfg RedisConfig) (*RedisStreamPublisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStreamPublisherFromClient(log, rdb, cfg.Stream, cfg.MaxLen), nil
}

func NewRedisStreamPublisherFromClient(log *logger.Logger, rdb goredis.UniversalClient, stream string, maxLen int64) *RedisStreamPublisher {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = "clubops:events"
	}
	return &RedisStreamPublisher{
		log:    log.With("service", "RedisEventPublisher"),
		rdb:    rdb,
		stream: stream,
		maxLen: maxLen,
	}
}

// Client exposes the underlying connection for health checks.
func (p *RedisStreamPublisher) Client() goredis.UniversalClient { return p.rdb }

func (p *RedisStreamPublisher) Publish(ctx context.Context, evts ...Event) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis event publisher not initialized")
	}
	if len(evts) == 0 {
		return nil
	}
	pipe := p.rdb.Pipeline()
	for _, evt := range evts {
		raw, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		args := &goredis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{
				"id":   evt.ID,
				"type": evt.Type,
				"data": raw,
			},
		}
		if p.maxLen > 0 {
			args.MaxLen = p.maxLen
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		var errs []error
		for _, cmd := range cmds {
			if cmd.Err() != nil {
				errs = append(errs, cmd.Err())
			}
		}
		if len(errs) == 0 {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	}
	return nil
}

// Read returns up to count entries after lastID ("" or "0" for the start)
// and the id to resume from.
func (p *RedisStreamPublisher) Read(ctx context.Context, lastID string, count int64) ([]Event, string, error) {
	from := lastID
	start := "-"
	resume := from != "" && from != "0"
	if resume {
		// XRANGE is inclusive; fetch one extra and drop the resume entry.
		start = from
		count++
	}
	res, err := p.rdb.XRangeN(ctx, p.stream, start, "+", count).Result()
	if err != nil {
		return nil, lastID, err
	}
	out := make([]Event, 0, len(res))
	for _, msg := range res {
		if resume && msg.ID == from {
			continue
		}
		lastID = msg.ID
		raw, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			p.log.Warn("bad event payload", "stream_id", msg.ID, "error", err)
			continue
		}
		out = append(out, evt)
	}
	return out, lastID, nil
}

func (p *RedisStreamPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
