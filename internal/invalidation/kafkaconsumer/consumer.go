// Package kafkaconsumer applies tile invalidation events from Kafka to
// the cache tiers.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/Muromi-Rikka/maptile-proxy/internal/invalidation"
	"github.com/Muromi-Rikka/maptile-proxy/internal/observability"
	"github.com/Muromi-Rikka/maptile-proxy/internal/tile"
)

// Target is the cache-facing side of the consumer.
type Target interface {
	Reset(trigger string)
	Invalidate(ctx context.Context, keys []tile.Key) error
}

type Options struct {
	Logger *slog.Logger

	// Zoom range over which region events are expanded into tile keys.
	ZoomMin int
	ZoomMax int

	// DefaultFormat fills in tile events that omit a format.
	DefaultFormat string
}

type Consumer struct {
	cfg    Config
	log    *slog.Logger
	target Target

	zoomMin       int
	zoomMax       int
	defaultFormat string

	dedupe *seqDedupe
}

func New(cfg Config, target Target, opts Options) *Consumer {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	format := opts.DefaultFormat
	if format == "" {
		format = "png"
	}
	zoomMax := opts.ZoomMax
	if zoomMax < opts.ZoomMin {
		zoomMax = opts.ZoomMin
	}
	return &Consumer{
		cfg:           cfg,
		log:           log,
		target:        target,
		zoomMin:       opts.ZoomMin,
		zoomMax:       zoomMax,
		defaultFormat: format,
		dedupe:        newSeqDedupe(4096),
	}
}

// Start consumes until ctx is canceled. Transient group errors are
// retried with a small backoff.
func (c *Consumer) Start(ctx context.Context) error {
	if c.target == nil {
		return errors.New("kafkaconsumer: missing target")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.log.Info("invalidation consumer starting",
		"brokers", strings.Join(c.cfg.Brokers, ","), "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				if shuttingDown(ctx, err) {
					continue
				}
				c.log.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// shuttingDown reports whether a Consume error is just the group unwinding
// on context cancellation, in which case it is not worth a log line or a
// backoff sleep.
func shuttingDown(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || ctx.Err() != nil
}

// ProcessOne applies a single invalidation message. Malformed messages
// are counted and skipped rather than wedging the partition.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if !msg.Timestamp.IsZero() {
		observability.SetInvalidationLagSeconds(time.Since(msg.Timestamp).Seconds())
	}

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		observability.IncInvalidationMsg("decode_error")
		c.log.Error("invalidation decode failed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		observability.IncInvalidationMsg("invalid")
		c.log.Warn("invalidation event rejected", "op", ev.Op, "err", err)
		return nil
	}
	if !c.dedupe.shouldApply(ev.DedupeKey(), ev.Seq) {
		observability.IncInvalidationMsg("stale")
		c.log.Debug("invalidation replay dropped", "key", ev.DedupeKey(), "seq", ev.Seq)
		return nil
	}

	if err := c.apply(ctx, ev); err != nil {
		observability.IncInvalidationMsg("error")
		c.log.Error("invalidation apply failed", "op", ev.Op, "err", err)
		return fmt.Errorf("apply %s: %w", ev.Op, err)
	}

	observability.IncInvalidationMsg("ok")
	return nil
}

func (c *Consumer) apply(ctx context.Context, ev invalidation.Event) error {
	switch ev.Op {
	case invalidation.OpFlush:
		c.target.Reset("invalidation")
		return nil
	case invalidation.OpTile:
		format := ev.Format
		if format == "" {
			format = c.defaultFormat
		}
		return c.target.Invalidate(ctx, []tile.Key{tile.New(ev.Z, ev.X, ev.Y, format)})
	case invalidation.OpRegion:
		keys := tile.Coverage(ev.BBox.X1, ev.BBox.Y1, ev.BBox.X2, ev.BBox.Y2,
			c.zoomMin, c.zoomMax, c.defaultFormat)
		if len(keys) == 0 {
			c.log.Debug("region event covered no tiles", "key", ev.DedupeKey())
			return nil
		}
		c.log.Debug("region invalidation", "tiles", len(keys),
			"zoom_min", c.zoomMin, "zoom_max", c.zoomMax)
		return c.target.Invalidate(ctx, keys)
	default:
		return fmt.Errorf("unsupported op %q", ev.Op)
	}
}
