// Package worker hosts the queue-driven run loop: it dequeues RunTasks,
// drives internal/orchestrator.Orchestrator.Run to completion, and persists
// the result through internal/runstore. The batch-read / panic-recovery /
// requeue-or-DLQ shape is carried over from the teacher's issue-pipeline
// Worker, generalized from a per-issue event loop to a per-run task loop.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"taskforge.dev/engine/internal/ledger"
	"taskforge.dev/engine/internal/queue"
	"taskforge.dev/engine/internal/runstore"
)

// Runner executes one orchestration run to completion.
type Runner interface {
	Run(ctx context.Context, inputText, traceID string) (*ledger.Ledger, error)
}

// Config bounds retry behavior.
type Config struct {
	MaxAttempts int
}

// Worker drains a queue.Consumer, running each task through an
// orchestrator.Orchestrator and recording the outcome in runstore.
type Worker struct {
	consumer *queue.RedisConsumer
	runner   Runner
	runs     *runstore.Store
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// New builds a Worker around a consumer, an orchestrator Runner, and the run
// persistence store.
func New(consumer *queue.RedisConsumer, runner Runner, runs *runstore.Store, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:  consumer,
		runner:    runner,
		runs:      runs,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks, processing batches until the context is canceled or Stop is
// called.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "engine worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "engine worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// Stop signals Run to return and waits for it to do so.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "run processing failed", "error", err, "message_id", msg.ID, "trace_id", msg.TraceID)
			w.handleFailedMessage(ctx, msg, err)
			continue
		}
		if err := w.consumer.Ack(ctx, msg); err != nil {
			slog.WarnContext(ctx, "failed to ack message", "error", err, "message_id", msg.ID)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in run processing",
				"panic", r, "stack", string(debug.Stack()), "message_id", msg.ID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage runs one dequeued RunTask. Exported so the reclaimer can
// reuse it for stale-message recovery.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	slog.InfoContext(ctx, "processing run task", "message_id", msg.ID, "trace_id", msg.TraceID, "attempt", msg.Attempt)

	traceID := msg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	if err := w.runs.CreateQueued(ctx, traceID, msg.InputText, msg.Source); err != nil {
		slog.WarnContext(ctx, "failed to record queued run", "error", err, "trace_id", traceID)
	}

	start := time.Now()
	l, err := w.runner.Run(ctx, msg.InputText, traceID)
	if err != nil {
		if recErr := w.runs.RecordFailure(ctx, traceID, err.Error(), time.Since(start)); recErr != nil {
			slog.WarnContext(ctx, "failed to record run failure", "error", recErr, "trace_id", traceID)
		}
		return fmt.Errorf("orchestrator run: %w", err)
	}

	if err := w.runs.RecordCompletion(ctx, traceID, l, time.Since(start)); err != nil {
		slog.WarnContext(ctx, "failed to record run completion", "error", err, "trace_id", traceID)
	}

	slog.InfoContext(ctx, "run completed", "trace_id", traceID, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ", "message_id", msg.ID, "attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed run", "message_id", msg.ID, "attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
