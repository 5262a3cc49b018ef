// Package scan implements the boundary-scan execution engine: the
// generate/shift/capture/distribute cycle (§4.3) and the single-threaded
// cooperative scheduler (§5) that lets several logical tasks share one
// physical scan.
package scan

// Yield is handed to a running task so it can cooperatively give up its
// turn. It is the sole suspension point application code has (mirroring
// §5: "the only suspension point in application-facing code is cycle()").
type Yield struct {
	resume  chan struct{}
	yielded chan struct{}
}

// Yield cedes control back to the Scheduler and blocks until this task's
// next turn.
func (y *Yield) Yield() {
	y.yielded <- struct{}{}
	<-y.resume
}

type taskHandle struct {
	resume   chan struct{}
	yielded  chan struct{}
	finished bool
}

// Task is a unit of cooperative work. It receives its Yield and runs to
// completion, calling y.Yield() at every point it wants to give up its turn
// (normally: once per scan cycle).
type Task func(y *Yield)

// Scheduler runs a fixed set of Tasks to completion in FIFO round-robin
// order. Exactly one task's code is ever executing at a time: every other
// task is parked on an unbuffered channel receive, so no locking is needed
// anywhere a task touches shared state between two of its own Yield calls.
type Scheduler struct{}

// NewScheduler returns a ready-to-use Scheduler. It holds no state between
// runs; Run is reentrant.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Run executes every task to completion, round-robin, returning once all
// have finished.
func (s *Scheduler) Run(tasks ...Task) {
	handles := make([]*taskHandle, len(tasks))
	for i, fn := range tasks {
		h := &taskHandle{resume: make(chan struct{}), yielded: make(chan struct{})}
		handles[i] = h
		go func(h *taskHandle, fn Task) {
			<-h.resume
			fn(&Yield{resume: h.resume, yielded: h.yielded})
			h.finished = true
			h.yielded <- struct{}{}
		}(h, fn)
	}

	queue := append([]*taskHandle(nil), handles...)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		h.resume <- struct{}{}
		<-h.yielded
		if !h.finished {
			queue = append(queue, h)
		}
	}
}
