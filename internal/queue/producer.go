package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"taskforge.dev/engine/common/logger"
	"github.com/redis/go-redis/v9"
)

// Producer enqueues run requests onto the stream a worker pool consumes.
type Producer interface {
	Enqueue(ctx context.Context, task RunTask) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
}

// NewRedisProducer wires a Producer onto a Redis stream.
func NewRedisProducer(client *redis.Client, stream string) Producer {
	return &redisProducer{client: client, stream: stream}
}

func (p *redisProducer) Enqueue(ctx context.Context, task RunTask) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     ptrIfSet(task.TraceID),
		Component: "engine.queue.producer",
	})

	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	meta, err := json.Marshal(task.SourceMeta)
	if err != nil {
		return fmt.Errorf("marshaling source metadata: %w", err)
	}

	values := map[string]any{
		"input_text":  task.InputText,
		"trace_id":    task.TraceID,
		"source":      task.Source,
		"attempt":     attempt,
		"source_meta": string(meta),
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue run task (stream=%s): %w", p.stream, err)
	}

	slog.InfoContext(ctx, "enqueued run task",
		"source", task.Source,
		"attempt", attempt,
		"trace_id", task.TraceID,
		"stream", p.stream)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func ptrIfSet(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
