// Package scheduler runs one explorer's work on a single goroutine: posted
// tasks (pointer events) and fibers (render units re-run when marked dirty)
// execute strictly in the order they were queued.
package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// RenderFunc is the body of a fiber
type RenderFunc func()

// ErrorHandler handles panics during rendering
// Returns true to keep the fiber, false to remove it
type ErrorHandler func(fiber *Fiber, err interface{}) bool

// Fiber is a render unit that is re-run each time it is marked dirty.
// Marks that arrive while it is already queued coalesce into one run.
type Fiber struct {
	id     uint32
	parent *Fiber
	name   string

	render RenderFunc
	dirty  atomic.Bool
	runs   atomic.Uint64

	onError ErrorHandler
}

// work is one queue item: either a posted task or a dirty fiber
type work struct {
	task  func()
	fiber *Fiber
}

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}

// Scheduler manages fiber execution
type Scheduler struct {
	mu     sync.Mutex
	fibers map[uint32]*Fiber
	nextID uint32

	queue   chan work
	stopCh  chan struct{}
	doneCh  chan struct{}
	running atomic.Bool

	defaultError ErrorHandler
	onTaskPanic  func(err interface{})
}

// NewScheduler creates a new scheduler instance
func NewScheduler() *Scheduler {
	return &Scheduler{
		fibers: make(map[uint32]*Fiber),
		nextID: 1,
		queue:  make(chan work, 1024),
	}
}

// SetDefaultErrorHandler sets the default error handler for fibers
func (s *Scheduler) SetDefaultErrorHandler(handler ErrorHandler) {
	s.defaultError = handler
}

// SetTaskPanicHandler is called when a posted task panics
func (s *Scheduler) SetTaskPanicHandler(handler func(err interface{})) {
	s.onTaskPanic = handler
}

// CreateFiber creates a new fiber
func (s *Scheduler) CreateFiber(name string, render RenderFunc, parent *Fiber) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	fiber := &Fiber{
		id:      id,
		parent:  parent,
		name:    name,
		render:  render,
		onError: s.defaultError,
	}

	s.fibers[id] = fiber
	return fiber
}

// RemoveFiber removes a fiber from the scheduler
func (s *Scheduler) RemoveFiber(fiber *Fiber) {
	if fiber == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.fibers, fiber.id)
}

// MarkDirty queues fiber for a run unless it is already queued
func (s *Scheduler) MarkDirty(fiber *Fiber) {
	if fiber == nil {
		return
	}

	if !fiber.dirty.CompareAndSwap(false, true) {
		if debugLog != nil {
			debugLog("[Scheduler] Fiber", fiber.ID(), "already dirty")
		}
		return
	}

	if !s.running.Load() {
		if debugLog != nil {
			debugLog("[Scheduler] WARNING: Scheduler not running!")
		}
		fiber.dirty.Store(false)
		return
	}

	select {
	case s.queue <- work{fiber: fiber}:
	default:
		// Queue full; clear the mark so the next MarkDirty can retry
		fiber.dirty.Store(false)
		if debugLog != nil {
			debugLog("[Scheduler] Queue full, dropped fiber", fiber.ID())
		}
	}
}

// Post queues task behind everything already queued. It blocks while the
// queue is full and returns false when the scheduler is not running.
func (s *Scheduler) Post(task func()) bool {
	if task == nil || !s.running.Load() {
		return false
	}
	select {
	case s.queue <- work{task: task}:
		return true
	case <-s.stopCh:
		return false
	}
}

// Sync blocks until everything queued before the call has run
func (s *Scheduler) Sync() {
	done := make(chan struct{})
	if !s.Post(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-s.doneCh:
	}
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	if !s.running.CompareAndSwap(false, true) {
		if debugLog != nil {
			debugLog("[Scheduler] Scheduler already running")
		}
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	if debugLog != nil {
		debugLog("[Scheduler] Starting scheduler loop")
	}
	go s.loop(s.stopCh, s.doneCh)
}

// Stop stops the scheduler. Work still queued is discarded.
func (s *Scheduler) Stop() {
	if s.running.CompareAndSwap(true, false) {
		close(s.stopCh)
		<-s.doneCh
	}
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// loop is the main scheduler event loop
func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if debugLog != nil {
		debugLog("[Scheduler] Loop started")
	}
	for {
		select {
		case <-stop:
			if debugLog != nil {
				debugLog("[Scheduler] Loop ended")
			}
			return
		case w := <-s.queue:
			if w.task != nil {
				s.runTask(w.task)
			} else if w.fiber != nil {
				s.processFiber(w.fiber)
			}
		}
	}
}

func (s *Scheduler) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			if s.onTaskPanic != nil {
				s.onTaskPanic(fmt.Sprintf("task panic: %v\n%s", r, debug.Stack()))
			} else if debugLog != nil {
				debugLog("[Scheduler] Task panic:", r)
			}
		}
	}()
	task()
}

// processFiber runs a single fiber
func (s *Scheduler) processFiber(fiber *Fiber) {
	// Clear first so marks raised during render queue another run
	if !fiber.dirty.CompareAndSwap(true, false) {
		return
	}
	if s.GetFiber(fiber.id) == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.handleFiberError(fiber, r)
		}
	}()

	if debugLog != nil {
		debugLog("[Scheduler] Rendering fiber", fiber.ID(), fiber.name)
	}
	fiber.render()
	fiber.runs.Add(1)
}

// handleFiberError handles a panic during fiber rendering
func (s *Scheduler) handleFiberError(fiber *Fiber, err interface{}) {
	errorMsg := fmt.Sprintf("Fiber %d (%s) panic: %v\n%s", fiber.id, fiber.name, err, debug.Stack())

	shouldContinue := false
	if fiber.onError != nil {
		shouldContinue = fiber.onError(fiber, errorMsg)
	}

	if !shouldContinue {
		s.RemoveFiber(fiber)
	}
}

// GetFiber returns a fiber by ID
func (s *Scheduler) GetFiber(id uint32) *Fiber {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fibers[id]
}

// FiberCount returns the number of active fibers
func (s *Scheduler) FiberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fibers)
}

// ID returns the fiber's unique ID
func (f *Fiber) ID() uint32 {
	return f.id
}

// Name returns the label given at creation
func (f *Fiber) Name() string {
	return f.name
}

// Parent returns the fiber's parent
func (f *Fiber) Parent() *Fiber {
	return f.parent
}

// Runs returns how many times the fiber rendered to completion
func (f *Fiber) Runs() uint64 {
	return f.runs.Load()
}

// SetErrorHandler sets a custom error handler for this fiber
func (f *Fiber) SetErrorHandler(handler ErrorHandler) {
	f.onError = handler
}
