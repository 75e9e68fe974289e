package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/Muromi-Rikka/maptile-proxy/internal/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

func FromConfig(cfg config.InvalidationCfg) Config {
	return Config{
		Brokers:             splitCSV(cfg.Brokers),
		Topic:               cfg.Topic,
		GroupID:             cfg.GroupID,
		SessionTimeout:      30 * time.Second,
		Heartbeat:           3 * time.Second,
		RebalanceTimeout:    30 * time.Second,
		InitialOffsetOldest: cfg.InitialOldest,
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
