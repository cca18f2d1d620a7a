package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"statguard/internal/config"
	"statguard/internal/model"
)

// StreamPublisher appends alerts to a Redis stream.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// FromConfig returns nil when the Redis stream is disabled.
func FromConfig(cfg config.RedisConfig) (*StreamPublisher, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewStreamPublisher(redis.NewClient(opts), cfg.Stream, cfg.MaxLen), nil
}

func (p *StreamPublisher) PublishAlerts(ctx context.Context, alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, a := range alerts {
		values, err := alertValues(a)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: p.maxLen > 0,
			Values: values,
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (p *StreamPublisher) Close() error {
	return p.client.Close()
}

func alertValues(a model.Alert) (map[string]interface{}, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshaling alert: %w", err)
	}
	return map[string]interface{}{
		"data":   string(data),
		"id":     a.ID,
		"player": a.Player,
		"mode":   string(a.Mode),
		"line":   a.Line(),
	}, nil
}
