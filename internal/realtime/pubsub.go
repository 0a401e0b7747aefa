package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cineclic/internal/logger"
)

// ChannelPrefix namespaces the per-screening update channels.
const ChannelPrefix = "seat:update:"

// Channel returns the Redis channel carrying updates of a screening.
func Channel(screeningID uint64) string {
	return ChannelPrefix + strconv.FormatUint(screeningID, 10)
}

// RedisFanout shares seat updates between instances over Redis pub/sub.
type RedisFanout struct {
	rdb     *redis.Client
	timeout time.Duration
	log     *slog.Logger
}

// NewRedisFanout returns nil when rdb is nil so callers can pass the
// result straight to NewHub.
func NewRedisFanout(rdb *redis.Client, l *slog.Logger) Fanout {
	if rdb == nil {
		return nil
	}
	return &RedisFanout{rdb: rdb, timeout: 2 * time.Second, log: logger.Component(l, "realtime.redis")}
}

// Publish sends msg on the screening's channel.
func (f *RedisFanout) Publish(ctx context.Context, msg FanoutMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.rdb.Publish(ctx, Channel(msg.ScreeningID), string(payload)).Err()
}

// Subscribe listens on every screening channel until ctx ends.
func (f *RedisFanout) Subscribe(ctx context.Context, deliver func(FanoutMessage)) error {
	sub := f.rdb.PSubscribe(ctx, ChannelPrefix+"*")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s*: %w", ChannelPrefix, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeFanout(m.Channel, m.Payload)
			if err != nil {
				f.log.Warn("dropping malformed seat update", "channel", m.Channel, "err", err)
				continue
			}
			deliver(msg)
		}
	}
}

func decodeFanout(channel, payload string) (FanoutMessage, error) {
	var msg FanoutMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(channel, ChannelPrefix), 10, 64)
	if err != nil {
		return msg, fmt.Errorf("bad channel %q", channel)
	}
	if msg.ScreeningID != id {
		return msg, fmt.Errorf("payload screening %d on channel %q", msg.ScreeningID, channel)
	}
	return msg, nil
}
