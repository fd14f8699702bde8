package server

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/chazu/sgm/vm"
)

// runRequest is one program execution queued for a worker.
type runRequest struct {
	ctx   context.Context
	prog  vm.Program
	trace bool
	done  chan runResult
}

// runResult holds what a run printed and how it ended.
type runResult struct {
	output string
	steps  uint64
	err    error
}

// VMWorker runs programs on a fixed set of goroutines. Each goroutine owns
// one interpreter and its output buffer, so a run never shares state with
// another run.
type VMWorker struct {
	requests chan runRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewVMWorker starts n worker goroutines. n below 1 means 1.
func NewVMWorker(n int) *VMWorker {
	if n < 1 {
		n = 1
	}
	w := &VMWorker{
		requests: make(chan runRequest, 64),
		quit:     make(chan struct{}),
	}
	for i := 0; i < n; i++ {
		go w.loop()
	}
	return w
}

// loop processes run requests sequentially on one goroutine.
func (w *VMWorker) loop() {
	var out bytes.Buffer
	interp := vm.NewInterpreter(&out)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(interp, &out, req)
		case <-w.quit:
			return
		}
	}
}

// execute runs one program, recovering from panics.
func (w *VMWorker) execute(interp *vm.Interpreter, out *bytes.Buffer, req runRequest) (result runResult) {
	out.Reset()
	interp.Trace = req.trace
	defer func() {
		if r := recover(); r != nil {
			result.err = fmt.Errorf("interpreter panic: %v", r)
		}
		result.output = out.String()
		result.steps = interp.Steps()
	}()
	result.err = interp.Run(req.ctx, req.prog)
	return result
}

// Do queues prog and blocks until it has run. It gives up with the
// context's error if ctx ends before a worker accepts the request.
func (w *VMWorker) Do(ctx context.Context, prog vm.Program, trace bool) runResult {
	req := runRequest{
		ctx:   ctx,
		prog:  prog,
		trace: trace,
		done:  make(chan runResult, 1),
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return runResult{err: ctx.Err()}
	case <-w.quit:
		return runResult{err: errWorkerStopped}
	}
	select {
	case res := <-req.done:
		return res
	case <-w.quit:
		select {
		case res := <-req.done:
			return res
		default:
			return runResult{err: errWorkerStopped}
		}
	}
}

// Stop shuts down the worker goroutines. Calling it more than once is safe.
func (w *VMWorker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
