// Package userqueue serialises work per key. Jobs sharing a key always land on
// the same worker and run one after another, while different keys spread over
// the pool and run in parallel.
package userqueue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ErrStopped is returned when work is submitted to a pool that is not running.
var ErrStopped = errors.New("user queue stopped")

// job is one unit of work bound to a key (a user name).
type job struct {
	key     string
	handler func(ctx context.Context) error
	done    chan error
}

// PoolStats holds real time counters of the pool.
type PoolStats struct {
	NumWorkers      int           `json:"num_workers"`
	QueueSize       int           `json:"queue_size"`
	ActiveWorkers   int           `json:"active_workers"`
	TotalDispatched int64         `json:"total_dispatched"`
	TotalProcessed  int64         `json:"total_processed"`
	TotalDropped    int64         `json:"total_dropped"`
	TotalErrors     int64         `json:"total_errors"`
	WorkerStats     []WorkerStats `json:"worker_stats"`
}

// WorkerStats holds per worker counters.
type WorkerStats struct {
	WorkerID      int   `json:"worker_id"`
	QueueDepth    int   `json:"queue_depth"`
	IsProcessing  bool  `json:"is_processing"`
	JobsProcessed int64 `json:"jobs_processed"`
}

// Pool is a fixed set of workers, each owning a FIFO queue.
type Pool struct {
	numWorkers int
	queueSize  int
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	started    int32
	stopped    int32
	mu         sync.RWMutex // guards queue sends against Stop closing them

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
}

type worker struct {
	id            int
	jobQueue      chan job
	ctx           context.Context
	cancel        context.CancelFunc
	isProcessing  int32
	jobsProcessed int64
	pool          *Pool
}

// NewPool creates a pool; Start must be called before submitting work.
func NewPool(numWorkers, queueSize int) *Pool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		workers:    make([]*worker, numWorkers),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&p.started, 0, 1) {
		return
	}

	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan job, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[USER_QUEUE] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// Do runs handler on the worker owning key and waits for its result. If ctx
// ends first Do returns ctx.Err(); a job already queued still runs.
func (p *Pool) Do(ctx context.Context, key string, handler func(ctx context.Context) error) error {
	j := job{key: key, handler: handler, done: make(chan error, 1)}

	p.mu.RLock()
	if atomic.LoadInt32(&p.stopped) == 1 || atomic.LoadInt32(&p.started) == 0 {
		p.mu.RUnlock()
		atomic.AddInt64(&p.totalDropped, 1)
		return ErrStopped
	}
	w := p.workers[p.shardFor(key)]
	select {
	case w.jobQueue <- j:
		atomic.AddInt64(&p.totalDispatched, 1)
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		atomic.AddInt64(&p.totalDropped, 1)
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		atomic.StoreInt32(&p.stopped, 1)
		if atomic.LoadInt32(&p.started) == 1 {
			for _, w := range p.workers {
				close(w.jobQueue)
			}
		}
		p.mu.Unlock()

		logrus.Info("[USER_QUEUE] Stopping workers...")
		p.wg.Wait()
		for _, w := range p.workers {
			if w != nil {
				w.cancel()
			}
		}
		logrus.Info("[USER_QUEUE] All workers stopped")
	})
}

func (p *Pool) shardFor(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.numWorkers))
}

// GetStats returns a snapshot of the pool counters.
func (p *Pool) GetStats() PoolStats {
	stats := PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
	}
	for _, w := range p.workers {
		if w == nil {
			continue
		}
		isProcessing := atomic.LoadInt32(&w.isProcessing) == 1
		if isProcessing {
			stats.ActiveWorkers++
		}
		stats.WorkerStats = append(stats.WorkerStats, WorkerStats{
			WorkerID:      w.id,
			QueueDepth:    len(w.jobQueue),
			IsProcessing:  isProcessing,
			JobsProcessed: atomic.LoadInt64(&w.jobsProcessed),
		})
	}
	return stats
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[USER_QUEUE] Worker %d started", w.id)
	for j := range w.jobQueue {
		w.process(j)
	}
	logrus.Debugf("[USER_QUEUE] Worker %d shutting down", w.id)
}

func (w *worker) process(j job) {
	var err error

	atomic.StoreInt32(&w.isProcessing, 1)
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("user queue job panicked")
			logrus.Errorf("[USER_QUEUE] Worker %d panic for %s: %v", w.id, j.key, r)
		}
		if err != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
		}
		j.done <- err
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.jobsProcessed, 1)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	err = j.handler(w.ctx)
	if err != nil {
		logrus.WithError(err).Errorf("[USER_QUEUE] Worker %d job failed for %s", w.id, j.key)
	}
}
