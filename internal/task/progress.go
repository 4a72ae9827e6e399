package task

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Growthpad-Consulting-Group/tender-scraper-backend-sub000/internal/logger"
)

// ProgressEvent is one observable step of a running task.
type ProgressEvent struct {
	TaskID    string    `json:"task_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message,omitempty"`
	URL       string    `json:"url,omitempty"`
	Engine    string    `json:"engine,omitempty"`
	Visited   int       `json:"visited"`
	Total     int       `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressSink receives progress events. Sink failures are reported but
// never affect the task outcome.
type ProgressSink interface {
	Publish(ctx context.Context, event ProgressEvent) error
}

// RedisProgressSink appends events to a Redis stream, capped so a chatty
// task cannot grow the stream without bound.
type RedisProgressSink struct {
	client    *redis.Client
	stream    string
	maxLength int64
}

func NewRedisProgressSink(client *redis.Client, stream string) *RedisProgressSink {
	return &RedisProgressSink{client: client, stream: stream, maxLength: 10000}
}

func (s *RedisProgressSink) Publish(ctx context.Context, event ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLength,
		Approx: true,
		Values: map[string]interface{}{
			"event": payload,
		},
	}).Err()
}

// Publisher decouples the pipeline from the sink: Emit hands the event to a
// dedicated worker goroutine over a buffered channel and returns
// immediately. A full buffer drops the event rather than stalling the task.
type Publisher struct {
	sink   ProgressSink
	events chan ProgressEvent
	wg     sync.WaitGroup

	closeOnce sync.Once
}

func NewPublisher(ctx context.Context, sink ProgressSink) *Publisher {
	p := &Publisher{
		sink:   sink,
		events: make(chan ProgressEvent, 256),
	}
	p.wg.Add(1)
	go p.run(ctx)
	return p
}

func (p *Publisher) run(ctx context.Context) {
	defer p.wg.Done()
	log := logger.ForComponent("progress")

	for event := range p.events {
		if err := p.sink.Publish(ctx, event); err != nil {
			log.WithError(err).Warn().
				Str("task_id", event.TaskID).
				Str("stage", event.Stage).
				Msg("progress publish failed")
		}
	}
}

// Emit queues one event. Never blocks and never fails the caller.
func (p *Publisher) Emit(event ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.events <- event:
	default:
		logger.ForComponent("progress").Warn().
			Str("task_id", event.TaskID).
			Msg("progress buffer full, event dropped")
	}
}

// Close drains queued events and stops the worker.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		close(p.events)
	})
	p.wg.Wait()
}
