package services

import (
	"context"
	"sync"

	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"golang.org/x/sync/errgroup"
)

type UploadJob struct {
	UploadID string
	TaskID   string
}

type UploadHandler func(ctx context.Context, job UploadJob) error

// UploadQueue is a bounded in-process job queue drained by a fixed pool of
// workers.
type UploadQueue struct {
	jobs    chan UploadJob
	workers int
	logger  *logger.Logger

	mu     sync.RWMutex
	closed bool
}

func NewUploadQueue(workers, buffer int, log *logger.Logger) *UploadQueue {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &UploadQueue{
		jobs:    make(chan UploadJob, buffer),
		workers: workers,
		logger:  log,
	}
}

// Enqueue never blocks; a full buffer is reported as ErrUploadQueueFull.
func (q *UploadQueue) Enqueue(job UploadJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrUploadQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrUploadQueueFull
	}
}

// Run processes jobs until the queue is closed and drained or ctx is done.
// Handler errors are logged; they never stop the pool.
func (q *UploadQueue) Run(ctx context.Context, handle UploadHandler) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		worker := i
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case job, ok := <-q.jobs:
					if !ok {
						return nil
					}
					if err := handle(gctx, job); err != nil {
						q.logger.Warnw("upload_job_failed", "worker", worker, "upload_id", job.UploadID, "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}

func (q *UploadQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}
