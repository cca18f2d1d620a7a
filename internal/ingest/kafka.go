package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"statguard/internal/config"
	"statguard/internal/model"
)

// Request is one stat query read from the request topic. Plain-text message
// values are accepted as Text.
type Request struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Reply is written to the reply topic keyed by the request id.
type Reply struct {
	ID     string        `json:"id"`
	Query  model.Query   `json:"query"`
	Rows   int           `json:"rows"`
	Lines  []string      `json:"lines"`
	Alerts []model.Alert `json:"alerts"`
	PNG    []byte        `json:"png,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Handler answers one free-text query.
type Handler func(ctx context.Context, text string) (Reply, error)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Consumer struct {
	handle Handler
	writer messageWriter
	dedupe *DedupeCache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewConsumer(handle Handler, writer messageWriter, ttl time.Duration, logger *slog.Logger) *Consumer {
	return &Consumer{
		handle: handle,
		writer: writer,
		dedupe: NewDedupeCache(),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func DecodeRequest(m kafka.Message) Request {
	value := strings.TrimSpace(string(m.Value))
	var req Request
	if !strings.HasPrefix(value, "{") || json.Unmarshal([]byte(value), &req) != nil {
		req = Request{Text: value}
	}
	if req.ID == "" {
		req.ID = string(m.Key)
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("%s/%d/%d", m.Topic, m.Partition, m.Offset)
	}
	return req
}

// ReplyError maps a pipeline error to the text sent back to callers.
func ReplyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrFetchFailed), errors.Is(err, model.ErrNoData):
		return model.ErrNoData.Error()
	default:
		return err.Error()
	}
}

// Handle processes one message. It reports false for skipped duplicates.
func (c *Consumer) Handle(ctx context.Context, m kafka.Message) (bool, error) {
	req := DecodeRequest(m)
	if c.dedupe.Seen(req.ID, c.now(), c.ttl) {
		if c.logger != nil {
			c.logger.Debug("duplicate request skipped", "id", req.ID)
		}
		return false, nil
	}
	reply, err := c.handle(ctx, req.Text)
	reply.ID = req.ID
	reply.Error = ReplyError(err)
	if err != nil && c.logger != nil {
		c.logger.Info("kafka request failed", "id", req.ID, "err", err)
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return true, fmt.Errorf("marshal reply: %w", err)
	}
	return true, c.writer.WriteMessages(ctx, kafka.Message{Key: []byte(req.ID), Value: data})
}

func StartKafka(ctx context.Context, cfg *config.Manager, handle Handler, logger *slog.Logger) {
	current := cfg.Get().Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.RequestTopic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.RequestTopic,
		GroupID:  current.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	writer := &kafka.Writer{
		Addr:     kafka.TCP(current.Brokers...),
		Topic:    current.ReplyTopic,
		Balancer: &kafka.Hash{},
	}
	consumer := NewConsumer(handle, writer, current.DedupeWindow, logger)
	go func() {
		defer reader.Close()
		defer writer.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				continue
			}
			if _, err := consumer.Handle(ctx, m); err != nil && logger != nil {
				logger.Warn("kafka reply error", "err", err)
			}
		}
	}()
}
