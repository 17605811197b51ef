package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/josephadah/trading-ai/internal/model"
)

// BufferedPublisher wraps a model.SignalPublisher with a circuit breaker.
// Signals that cannot be published are buffered locally and replayed when
// the circuit closes again or Flush is called.
type BufferedPublisher struct {
	sink model.SignalPublisher
	cb   *CircuitBreaker
	ctx  context.Context
	log  *slog.Logger

	mu     sync.Mutex
	buffer []model.Signal
	maxBuf int // max buffered signals before dropping oldest (default: 10000)

	// Callbacks
	OnBuffer func(count int) // called when signals are buffered (for metrics)
	OnFlush  func(count int) // called after flushing buffered signals
}

// NewBufferedPublisher creates a BufferedPublisher. ctx bounds the flushes
// triggered by the breaker closing. A nil logger uses slog.Default().
func NewBufferedPublisher(ctx context.Context, sink model.SignalPublisher, cb *CircuitBreaker, maxBufferSize int, logger *slog.Logger) *BufferedPublisher {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	if logger == nil {
		logger = slog.Default()
	}
	bp := &BufferedPublisher{
		sink:   sink,
		cb:     cb,
		ctx:    ctx,
		log:    logger.With(slog.String("component", "buffered-publisher")),
		buffer: make([]model.Signal, 0, 64),
		maxBuf: maxBufferSize,
	}

	// Register flush on circuit close
	prevCallback := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prevCallback != nil {
			prevCallback(from, to)
		}
		if to == StateClosed {
			go bp.Flush(bp.ctx)
		}
	}

	return bp
}

// PublishSignals publishes through the circuit breaker. When the circuit is
// open the signals are buffered and nil is returned. Other failures are
// buffered too and the error is returned.
func (bp *BufferedPublisher) PublishSignals(ctx context.Context, signals []model.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	err := bp.cb.Execute(func() error {
		return bp.sink.PublishSignals(ctx, signals)
	})
	if err == nil {
		return nil
	}
	bp.bufferSignals(signals)
	if errors.Is(err, ErrCircuitOpen) {
		return nil
	}
	return err
}

func (bp *BufferedPublisher) bufferSignals(signals []model.Signal) {
	bp.mu.Lock()
	bp.buffer = append(bp.buffer, signals...)
	if over := len(bp.buffer) - bp.maxBuf; over > 0 {
		// Buffer full, drop oldest
		bp.log.Warn("buffer full, dropping oldest signals", "dropped", over)
		bp.buffer = append([]model.Signal(nil), bp.buffer[over:]...)
	}
	bp.mu.Unlock()

	if bp.OnBuffer != nil {
		bp.OnBuffer(len(signals))
	}
}

// Flush replays buffered signals through the breaker. Signals that still
// cannot be published go back into the buffer. Returns the number flushed.
func (bp *BufferedPublisher) Flush(ctx context.Context) int {
	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return 0
	}
	// Take ownership of the buffer
	toFlush := bp.buffer
	bp.buffer = make([]model.Signal, 0, 64)
	bp.mu.Unlock()

	err := bp.cb.Execute(func() error {
		return bp.sink.PublishSignals(ctx, toFlush)
	})
	if err != nil {
		bp.mu.Lock()
		bp.buffer = append(toFlush, bp.buffer...)
		bp.mu.Unlock()
		bp.log.Warn("flush failed", "pending", len(toFlush), "error", err)
		return 0
	}

	bp.log.Info("flushed buffered signals", "count", len(toFlush))
	if bp.OnFlush != nil {
		bp.OnFlush(len(toFlush))
	}
	return len(toFlush)
}

// PendingCount returns the number of buffered signals waiting to be flushed.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}
