package chat

import (
	"context"
	"log/slog"
	"sync"
)

// Queue is the handoff between the webhook handler and the workers that
// actually process messages. The transport acknowledges the platform as
// soon as the unit of work is enqueued; failures past that point can only
// be reported through the log.
type Queue struct {
	service *Service
	logger  *slog.Logger
	tasks   chan Inbound
	wg      sync.WaitGroup
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(service *Service, logger *slog.Logger, size int) *Queue {
	if size < 1 {
		size = 64
	}
	return &Queue{
		service: service,
		logger:  logger,
		tasks:   make(chan Inbound, size),
	}
}

// Enqueue hands one unit of work to the workers without blocking the
// webhook handler. A full queue drops the message and reports it; the
// platform will not redeliver, so the drop is logged loudly.
func (q *Queue) Enqueue(in Inbound) bool {
	select {
	case q.tasks <- in:
		return true
	default:
		q.logger.Error("inbound queue full, dropping message", "user_id", in.UserID)
		return false
	}
}

// Start launches the worker pool. Workers drain the queue until ctx is done.
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
}

// Wait blocks until every worker has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-q.tasks:
			if err := q.service.HandleMessage(ctx, in); err != nil {
				q.logger.Error("message processing failed", "user_id", in.UserID, "err", err)
			}
		}
	}
}
