package drag

import (
	"sync"
	"time"

	"github.com/recera/patchview/pkg/grid"
)

// DefaultThrottle is the minimum gap between two processed moves
const DefaultThrottle = 100 * time.Millisecond

// Options configures a Controller
type Options struct {
	// Elements are the IDs of the pointer sources to bind
	Elements []string

	// ThrottleInterval defaults to DefaultThrottle
	ThrottleInterval time.Duration

	// Mapper converts pointer positions; the zero value is replaced by the
	// centered default mapper
	Mapper grid.Mapper

	// Clock stamps events that arrive without a time
	Clock func() time.Time

	Observer Observer
}

func (o *Options) withDefaults() Options {
	d := Options{
		ThrottleInterval: DefaultThrottle,
		Mapper:           grid.NewMapper(),
		Clock:            time.Now,
	}
	if o == nil {
		return d
	}
	d.Elements = append([]string(nil), o.Elements...)
	if o.ThrottleInterval > 0 {
		d.ThrottleInterval = o.ThrottleInterval
	}
	if o.Mapper.Config.Width > 0 && o.Mapper.Config.Height > 0 {
		d.Mapper = o.Mapper
	}
	if o.Clock != nil {
		d.Clock = o.Clock
	}
	d.Observer = o.Observer
	return d
}

// Stats counts what a controller did
type Stats struct {
	Sessions  uint64
	Processed uint64
	Dropped   uint64
}

// Controller owns the listener lifecycle for a set of elements
type Controller struct {
	opts Options
	pub  Publisher

	mu      sync.Mutex
	bound   []Handle
	session *Session
	stats   Stats
}

// NewController creates a controller publishing into pub
func NewController(pub Publisher, opts *Options) *Controller {
	return &Controller{
		opts: opts.withDefaults(),
		pub:  pub,
	}
}

// Setup binds press listeners on every configured element found in doc and
// returns how many were bound. Missing elements are skipped. Calling Setup
// again first tears down the active session and every listener of the
// previous call, so repeated setups never accumulate listeners.
func (c *Controller) Setup(doc Document) int {
	c.Teardown()
	if doc == nil {
		return 0
	}

	var handles []Handle
	for _, id := range c.opts.Elements {
		el, ok := doc.Element(id)
		if !ok || el == nil {
			if debugLog != nil {
				debugLog("[Drag] Element not found, skipping:", id)
			}
			continue
		}
		handles = append(handles, el.OnPress(func(evt Event) {
			c.press(doc, el, evt)
		}))
	}

	c.mu.Lock()
	c.bound = handles
	c.mu.Unlock()

	if debugLog != nil {
		debugLog("[Drag] Bound", len(handles), "of", len(c.opts.Elements), "elements")
	}
	return len(handles)
}

// Teardown ends any active session and removes all element listeners
func (c *Controller) Teardown() {
	c.mu.Lock()
	bound := c.bound
	c.bound = nil
	session := c.session
	c.mu.Unlock()

	if session != nil {
		session.end()
	}
	for _, h := range bound {
		h.Remove()
	}
}

// State reports whether a drag is in progress
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return Active
	}
	return Idle
}

// Stats returns counters since creation
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Options returns the effective options
func (c *Controller) Options() Options {
	return c.opts
}

func (c *Controller) stamp(evt Event) time.Time {
	if evt.Time.IsZero() {
		return c.opts.Clock()
	}
	return evt.Time
}

// press starts a session on el. A press while a session is active (its
// release was lost) replaces that session.
func (c *Controller) press(doc Document, el Element, evt Event) {
	c.mu.Lock()
	prev := c.session
	c.mu.Unlock()
	if prev != nil {
		prev.end()
	}

	s := &Session{
		ctrl:     c,
		element:  el,
		throttle: newThrottle(c.opts.ThrottleInterval),
		started:  c.stamp(evt),
	}

	c.mu.Lock()
	c.session = s
	c.stats.Sessions++
	c.stats.Processed++
	c.mu.Unlock()

	if o := c.opts.Observer; o != nil {
		o.SessionStarted()
		o.PointerProcessed(Press)
	}

	c.pub.BeginDrag()
	c.pub.Publish(s.mapPointer(evt.Pointer))

	// Registered after the first publish so a listener reacting to it
	// cannot observe a half-built session
	s.mu.Lock()
	if !s.ended {
		s.moveHandle = doc.OnMove(s.move)
		s.releaseHandle = doc.OnRelease(s.release)
	}
	s.mu.Unlock()

	if debugLog != nil {
		debugLog("[Drag] Session started on", el.ID())
	}
}

// Session is one press..release interaction
type Session struct {
	ctrl     *Controller
	element  Element
	throttle *throttle
	started  time.Time

	mu            sync.Mutex
	moveHandle    Handle
	releaseHandle Handle
	once          sync.Once
	ended         bool
}

// Element returns the pressed element
func (s *Session) Element() Element {
	return s.element
}

// Started returns the press time
func (s *Session) Started() time.Time {
	return s.started
}

func (s *Session) mapPointer(p grid.Pointer) grid.Coordinate {
	return s.ctrl.opts.Mapper.Map(s.element.Bounds(), p)
}

func (s *Session) move(evt Event) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	ok := s.throttle.allow(s.ctrl.stamp(evt))
	s.mu.Unlock()

	c := s.ctrl
	c.mu.Lock()
	if ok {
		c.stats.Processed++
	} else {
		c.stats.Dropped++
	}
	c.mu.Unlock()

	if !ok {
		if o := c.opts.Observer; o != nil {
			o.PointerDropped()
		}
		return
	}
	if o := c.opts.Observer; o != nil {
		o.PointerProcessed(Move)
	}
	c.pub.Publish(s.mapPointer(evt.Pointer))
}

func (s *Session) release(Event) {
	if o := s.ctrl.opts.Observer; o != nil {
		o.PointerProcessed(Release)
	}
	s.end()
}

// end removes the session's listeners, returns the controller to Idle and
// raises DragEnded. It runs once; later calls do nothing.
func (s *Session) end() {
	s.once.Do(func() {
		s.mu.Lock()
		s.ended = true
		moveHandle, releaseHandle := s.moveHandle, s.releaseHandle
		s.moveHandle, s.releaseHandle = nil, nil
		s.mu.Unlock()

		if moveHandle != nil {
			moveHandle.Remove()
		}
		if releaseHandle != nil {
			releaseHandle.Remove()
		}

		c := s.ctrl
		c.mu.Lock()
		if c.session == s {
			c.session = nil
		}
		c.mu.Unlock()

		if o := c.opts.Observer; o != nil {
			o.SessionEnded()
		}
		c.pub.EndDrag()
		if debugLog != nil {
			debugLog("[Drag] Session ended on", s.element.ID())
		}
	})
}
