// Package jobqueue runs deferred work with bounded parallelism. Jobs carry a
// kind so high-priority work (publishing the current ledger) is admitted
// ahead of background work (publishing historical ledgers).
package jobqueue

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/LeJamon/goledgerd/internal/core/ledger"
)

// weights per job kind: the units of capacity a running job holds, so fewer
// historical-ledger jobs than current-ledger jobs run at once.
func weight(kind ledger.JobKind) int64 {
	switch kind {
	case ledger.JobPublishLedger:
		return 1
	case ledger.JobPublishOldLedger:
		return 2
	default:
		return 1
	}
}

// Queue is a semaphore-bounded job runner.
type Queue struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a queue admitting up to workers units of concurrent work.
func New(workers int64) *Queue {
	if workers < 2 {
		workers = 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		sem:    semaphore.NewWeighted(workers),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob schedules fn. The call never blocks; the job waits for capacity in
// its own goroutine. Jobs added after Shutdown are dropped.
func (q *Queue) AddJob(kind ledger.JobKind, name string, fn func()) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		w := weight(kind)
		if err := q.sem.Acquire(q.ctx, w); err != nil {
			return
		}
		defer q.sem.Release(w)
		fn()
	}()
}

// Shutdown stops admitting queued jobs and waits for running ones.
func (q *Queue) Shutdown() {
	q.cancel()
	q.wg.Wait()
}

// Wait blocks until every job added so far has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

var _ ledger.JobQueue = (*Queue)(nil)
