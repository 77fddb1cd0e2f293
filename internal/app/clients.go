package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/clubops-backend/internal/events"
	"github.com/yungbote/clubops-backend/internal/platform/logger"
)

type Clients struct {
	Events events.Publisher
	// Redis is set when events go to a Redis stream.
	Redis *events.RedisStreamPublisher
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		log.Warn("REDIS_ADDR not set; domain events will be dropped")
		return Clients{Events: events.Nop()}, nil
	}
	pub, err := events.NewRedisStreamPublisher(log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis event publisher: %w", err)
	}
	return Clients{Events: pub, Redis: pub}, nil
}

func (c *Clients) Close() {
	if c == nil || c.Events == nil {
		return
	}
	_ = c.Events.Close()
}
