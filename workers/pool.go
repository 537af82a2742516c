package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/observability"
)

// Job kinds
const (
	KindEnroll  = "enroll"
	KindVerify  = "verify"
	KindPlate   = "plate"
	KindParking = "parking"
)

var (
	ErrQueueFull   = errors.New("detection queue is full")
	ErrPoolStopped = errors.New("detection pool is stopped")
)

type job struct {
	kind string
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// DetectionPool runs CPU-heavy detection work on a fixed set of goroutines
// so request handlers do not run OpenCV on their own goroutine.
type DetectionPool struct {
	queue    chan job
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]int
	Mutex    sync.Mutex
	log      *logger.Logger
	stopped  bool
}

func NewDetectionPool(queueSize, numWorkers int, log *logger.Logger) *DetectionPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	p := &DetectionPool{
		queue:    make(chan job, queueSize),
		StopChan: make(chan struct{}),
		Pending:  make(map[string]int),
		log:      log.With("component", "workers"),
	}
	p.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.worker(i)
	}
	p.log.Info("started detection workers", "workers", numWorkers, "queue_size", queueSize)
	return p
}

func (p *DetectionPool) worker(id int) {
	defer p.Wg.Done()
	for {
		select {
		case j := <-p.queue:
			observability.QueueDepth.Set(float64(len(p.queue)))
			j.done <- p.run(id, j)
			p.Mutex.Lock()
			p.Pending[j.kind]--
			p.Mutex.Unlock()
		case <-p.StopChan:
			p.log.Debug("worker stopping", "worker", id)
			return
		}
	}
}

func (p *DetectionPool) run(id int, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("detection job panicked", "worker", id, "kind", j.kind, "panic", r)
			err = fmt.Errorf("%s job panicked: %v", j.kind, r)
		}
	}()
	if err := j.ctx.Err(); err != nil {
		return err
	}
	return j.fn(j.ctx)
}

// Do queues fn and waits for it to finish. It never blocks on a full queue:
// ErrQueueFull is returned instead. If ctx ends first Do returns ctx.Err()
// and the job still runs to completion on its worker.
func (p *DetectionPool) Do(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	j := job{kind: kind, ctx: ctx, fn: fn, done: make(chan error, 1)}

	p.Mutex.Lock()
	if p.stopped {
		p.Mutex.Unlock()
		return ErrPoolStopped
	}
	select {
	case p.queue <- j:
		p.Pending[kind]++
		p.Mutex.Unlock()
	default:
		p.Mutex.Unlock()
		p.log.Warn("detection queue full", "kind", kind)
		return ErrQueueFull
	}
	observability.QueueDepth.Set(float64(len(p.queue)))

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the number of queued or running jobs per kind.
func (p *DetectionPool) Stats() map[string]int {
	p.Mutex.Lock()
	defer p.Mutex.Unlock()
	out := make(map[string]int, len(p.Pending))
	for k, v := range p.Pending {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}

func (p *DetectionPool) Stop() {
	p.Mutex.Lock()
	if p.stopped {
		p.Mutex.Unlock()
		return
	}
	p.stopped = true
	p.Mutex.Unlock()

	p.log.Info("stopping detection workers")
	close(p.StopChan)
	p.Wg.Wait()
	for {
		select {
		case j := <-p.queue:
			j.done <- ErrPoolStopped
		default:
			observability.QueueDepth.Set(0)
			p.log.Info("all detection workers stopped")
			return
		}
	}
}
