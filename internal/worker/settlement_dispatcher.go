package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/payment-screening/internal/observability"
	"go.uber.org/zap"
)

// Settler performs settlement for a recorded webhook.
type Settler interface {
	SettleWebhook(ctx context.Context, webhookID string) error
	MarkWebhookFailed(ctx context.Context, webhookID string, cause error) error
	RecoverStaleWebhooks(ctx context.Context, staleAfter time.Duration, limit int32) ([]string, error)
}

type settlementFailure struct {
	webhookID string
	err       error
}

// SettlementDispatcher settles recorded webhooks in the background. Ids are
// pushed onto a bounded queue and drained by a fixed set of workers; failures
// go to a single consumer that records them on the webhook. A periodic sweep
// re-queues webhooks that were never picked up.
type SettlementDispatcher struct {
	settler       Settler
	queue         chan string
	failures      chan settlementFailure
	workers       int
	sweepInterval time.Duration
	staleAfter    time.Duration
	batchSize     int32
	settleTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSettlementDispatcher creates a dispatcher with a queue of queueSize ids.
func NewSettlementDispatcher(settler Settler, queueSize int) *SettlementDispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &SettlementDispatcher{
		settler:       settler,
		queue:         make(chan string, queueSize),
		failures:      make(chan settlementFailure, queueSize),
		workers:       4,
		sweepInterval: 30 * time.Second,
		staleAfter:    2 * time.Minute,
		batchSize:     100,
		settleTimeout: 30 * time.Second,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// WithWorkers sets the number of settlement goroutines.
func (d *SettlementDispatcher) WithWorkers(n int) *SettlementDispatcher {
	if n > 0 {
		d.workers = n
	}
	return d
}

// WithSweep sets how often stale webhooks are looked for and how old a
// webhook must be to count as stale.
func (d *SettlementDispatcher) WithSweep(interval, staleAfter time.Duration) *SettlementDispatcher {
	if interval > 0 {
		d.sweepInterval = interval
	}
	if staleAfter > 0 {
		d.staleAfter = staleAfter
	}
	return d
}

// WithBatchSize caps how many stale webhooks one sweep recovers.
func (d *SettlementDispatcher) WithBatchSize(size int32) *SettlementDispatcher {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

// Dispatch queues a webhook id without blocking. It reports false when the
// queue is full; the id stays received and the sweep picks it up later.
func (d *SettlementDispatcher) Dispatch(webhookID string) bool {
	select {
	case <-d.stopCh:
		return false
	default:
	}
	select {
	case d.queue <- webhookID:
		observability.SetSettlementQueueDepth(len(d.queue))
		return true
	default:
		zap.L().Warn("settlement queue full, deferring to sweep", zap.String("webhook_id", webhookID))
		return false
	}
}

// Start blocks until the context is canceled or Stop is called, then waits
// for in-flight settlements and pending failure records.
func (d *SettlementDispatcher) Start(ctx context.Context) {
	defer close(d.done)
	zap.L().Info("settlement dispatcher starting",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
		zap.Duration("sweep_interval", d.sweepInterval),
	)

	var workers sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			d.work(ctx)
		}()
	}

	var consumer sync.WaitGroup
	consumer.Add(1)
	go func() {
		defer consumer.Done()
		d.recordFailures(ctx)
	}()

	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()
	d.sweep(ctx)

loop:
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("settlement dispatcher context canceled")
			break loop
		case <-d.stopCh:
			zap.L().Info("settlement dispatcher stop signal received")
			break loop
		case <-ticker.C:
			d.sweep(ctx)
		}
	}

	d.Stop()
	workers.Wait()
	close(d.failures)
	consumer.Wait()
	zap.L().Info("settlement dispatcher stopped")
}

// Stop signals the dispatcher to stop accepting and processing ids.
func (d *SettlementDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
}

// Run starts the dispatcher in a goroutine and returns a function that stops
// it and waits for the workers to drain.
func (d *SettlementDispatcher) Run(ctx context.Context) func() {
	go d.Start(ctx)
	return func() {
		d.Stop()
		<-d.done
	}
}

func (d *SettlementDispatcher) work(ctx context.Context) {
	for {
		select {
		case <-d.stopCh:
			return
		case <-ctx.Done():
			return
		case id := <-d.queue:
			observability.SetSettlementQueueDepth(len(d.queue))
			d.settle(ctx, id)
		}
	}
}

// settle runs one settlement. It is detached from shutdown so a claimed
// webhook is not abandoned half way.
func (d *SettlementDispatcher) settle(ctx context.Context, webhookID string) {
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.settleTimeout)
	defer cancel()

	if err := d.settler.SettleWebhook(settleCtx, webhookID); err != nil {
		d.failures <- settlementFailure{webhookID: webhookID, err: err}
		observability.IncrementWorkerRun("settlement", "failed")
		return
	}
	observability.IncrementWorkerRun("settlement", "success")
}

func (d *SettlementDispatcher) recordFailures(ctx context.Context) {
	for f := range d.failures {
		zap.L().Error("webhook settlement failed", zap.String("webhook_id", f.webhookID), zap.Error(f.err))
		markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.settleTimeout)
		if err := d.settler.MarkWebhookFailed(markCtx, f.webhookID, f.err); err != nil {
			zap.L().Error("failed to record settlement failure", zap.String("webhook_id", f.webhookID), zap.Error(err))
		}
		cancel()
	}
}

func (d *SettlementDispatcher) sweep(ctx context.Context) {
	ids, err := d.settler.RecoverStaleWebhooks(ctx, d.staleAfter, d.batchSize)
	if err != nil {
		observability.IncrementWorkerRun("settlement_sweep", "failed")
		zap.L().Error("settlement sweep failed", zap.Error(err))
	} else {
		observability.IncrementWorkerRun("settlement_sweep", "success")
	}
	for _, id := range ids {
		if !d.Dispatch(id) {
			break
		}
	}
}

// String returns a string representation of the dispatcher.
func (d *SettlementDispatcher) String() string {
	return fmt.Sprintf("SettlementDispatcher(workers=%d, queue=%d, sweep=%v)", d.workers, cap(d.queue), d.sweepInterval)
}
