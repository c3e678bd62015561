package hiviz

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// envelope is one queue entry: a record with the Options it was emitted
// under, or a flush barrier.
type envelope struct {
	rec     Record
	opts    Options
	barrier chan struct{}
}

// recordQueue is a FIFO shared by all producers and drained by one worker.
// With capacity 0 it grows without bound; otherwise putting a record into a
// full queue evicts the oldest record. Barriers do not count against capacity.
type recordQueue struct {
	mu       sync.Mutex
	items    []envelope
	records  int // items that are not barriers
	capacity int
	closed   bool
	notify   chan struct{}
}

func newRecordQueue(capacity int) *recordQueue {
	return &recordQueue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
	}
}

// put appends e. It reports whether e was accepted and whether an older
// record was evicted to make room.
func (q *recordQueue) put(e envelope) (accepted, evicted bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, false
	}
	if e.barrier == nil {
		if q.capacity > 0 && q.records >= q.capacity {
			evicted = q.evictOldestLocked()
		}
		q.records++
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	q.wake()
	return true, evicted
}

// evictOldestLocked removes the oldest record. Barriers are never evicted.
func (q *recordQueue) evictOldestLocked() bool {
	for i, e := range q.items {
		if e.barrier == nil {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = envelope{}
			q.items = q.items[:len(q.items)-1]
			q.records--
			return true
		}
	}
	return false
}

// drain takes everything queued so far, in order, and reports whether the
// queue is closed. Once closed, nothing more will be accepted.
func (q *recordQueue) drain() ([]envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	q.records = 0
	return items, q.closed
}

func (q *recordQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *recordQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *recordQueue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pipeline is the delivery machinery shared by a Logger and its children.
type pipeline struct {
	stdout, stderr, tracer io.Writer
	stdoutTTY, stderrTTY   bool

	stack         *optionStack
	queue         *recordQueue
	files         map[string]*rotatingFile
	ser           *serializer
	report        *reporter
	metrics       *Metrics
	flushInterval time.Duration

	closed    atomic.Bool
	crashed   atomic.Bool
	syncMu    sync.Mutex // serializes delivery once the worker is gone
	closeOnce sync.Once
	done      chan struct{}
	closeErr  error

	droppedLogs atomic.Uint64
	loggedDrops atomic.Uint64
}

// enqueue hands e to the worker. When the worker has died the record is
// delivered synchronously instead; after Close it is dropped.
func (p *pipeline) enqueue(e envelope) {
	accepted, evicted := p.queue.put(e)
	if accepted {
		p.metrics.enqueued.Inc()
		if evicted {
			p.drop()
		}
		return
	}
	if p.crashed.Load() {
		p.syncMu.Lock()
		p.handle(e)
		p.syncMu.Unlock()
		return
	}
	p.drop()
}

func (p *pipeline) drop() {
	p.droppedLogs.Add(1)
	p.metrics.dropped.Inc()
}

// reportDrops emits a record describing records lost since the last report.
func (p *pipeline) reportDrops() {
	current := p.droppedLogs.Load()
	logged := p.loggedDrops.Load()
	if current <= logged || !p.loggedDrops.CompareAndSwap(logged, current) {
		return
	}
	rec := Record{
		Time:    time.Now(),
		Level:   LevelError,
		Message: "Logs were dropped",
		Color:   LevelColor(LevelError),
		PID:     pid,
		Thread:  "hiviz",
		Fields: []Field{
			{Key: "dropped_count", Value: current - logged},
			{Key: "total_dropped", Value: current},
		},
	}
	p.enqueue(envelope{rec: rec, opts: p.stack.current()})
}

// run is the worker loop. It is the only goroutine touching sinks and files
// until it exits.
func (p *pipeline) run() {
	defer close(p.done)
	defer func() {
		if v := recover(); v != nil {
			p.crashed.Store(true)
			p.queue.close()
			p.report.workerDied(v)

			p.syncMu.Lock()
			items, _ := p.queue.drain()
			for _, e := range items {
				p.handle(e)
			}
			p.syncMu.Unlock()
		}
	}()

	var tick <-chan time.Time
	if p.flushInterval > 0 {
		ticker := time.NewTicker(p.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		items, closed := p.queue.drain()
		for _, e := range items {
			p.handle(e)
		}
		if closed {
			p.closeErr = p.closeFiles()
			return
		}

		select {
		case <-p.queue.notify:
		case <-tick:
			p.syncFiles()
		}
	}
}

// handle delivers one envelope. A panic while delivering a record is
// reported and the record skipped.
func (p *pipeline) handle(e envelope) {
	if e.barrier != nil {
		defer close(e.barrier)
		p.syncFiles()
		return
	}

	defer func() {
		if v := recover(); v != nil {
			p.report.recovered(v, e.rec)
		}
	}()
	p.deliver(e.rec, e.opts)
}

func (p *pipeline) syncFiles() {
	for _, f := range p.files {
		_ = f.sync()
	}
}

func (p *pipeline) closeFiles() error {
	var errs []error
	for path, f := range p.files {
		if err := f.close(); err != nil {
			p.report.closeFailed(path, err)
			errs = append(errs, err)
		}
	}
	clear(p.files)
	return errors.Join(errs...)
}
