package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// Pool runs one JobQueue subscription (the queue applies its own
// concurrency cap) and drains in-flight handlers on shutdown, in the style of a
// startSyncWorkers/workerWg pattern in email_usecase.go.
type Pool struct {
	queue        JobQueue
	queueName    string
	handler      Handler
	drainTimeout time.Duration

	wg       sync.WaitGroup
	inflight sync.WaitGroup
}

func NewPool(q JobQueue, queueName string, handler Handler, drainTimeout time.Duration) *Pool {
	return &Pool{queue: q, queueName: queueName, handler: handler, drainTimeout: drainTimeout}
}

// Run blocks until ctx is cancelled, then waits up to drainTimeout for
// in-flight jobs to finish before returning. Jobs still running past the deadline are abandoned to the
// queue's own redelivery — safe because every handler is idempotent.
func (p *Pool) Run(ctx context.Context) error {
	wrapped := func(ctx context.Context, job Job) error {
		p.inflight.Add(1)
		defer p.inflight.Done()
		return p.handler(ctx, job)
	}

	p.wg.Add(1)
	var subscribeErr error
	go func() {
		defer p.wg.Done()
		subscribeErr = p.queue.Subscribe(ctx, p.queueName, wrapped)
	}()

	<-ctx.Done()
	log.Printf("[Queue] %s: shutdown signal received, draining in-flight jobs", p.queueName)

	drained := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		log.Printf("[Queue] %s: drained cleanly", p.queueName)
	case <-time.After(p.drainTimeout):
		log.Printf("[Queue] %s: drain deadline exceeded, abandoning remaining in-flight jobs to redelivery", p.queueName)
	}

	p.wg.Wait()
	return subscribeErr
}
