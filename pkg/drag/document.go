package drag

import (
	"sort"
	"sync"

	"github.com/recera/patchview/pkg/grid"
)

// VirtualDocument is an in-process Document for hosts that receive pointer
// events from somewhere other than a browser: the live server and the
// terminal explorer. Listeners run on the goroutine that calls Dispatch.
type VirtualDocument struct {
	mu       sync.Mutex
	elements map[string]*VirtualElement
	order    []string
	move     map[uint64]Listener
	release  map[uint64]Listener
	nextID   uint64
}

// VirtualElement is a rectangle that accepts presses
type VirtualElement struct {
	doc   *VirtualDocument
	id    string
	rect  grid.Rect
	press map[uint64]Listener
}

// NewVirtualDocument creates an empty document
func NewVirtualDocument() *VirtualDocument {
	return &VirtualDocument{
		elements: make(map[string]*VirtualElement),
		move:     make(map[uint64]Listener),
		release:  make(map[uint64]Listener),
	}
}

// SetElement adds an element or updates its bounds. It reports whether the
// element is new.
func (d *VirtualDocument) SetElement(id string, rect grid.Rect) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.elements[id]; ok {
		el.rect = rect
		return false
	}
	d.elements[id] = &VirtualElement{
		doc:   d,
		id:    id,
		rect:  rect,
		press: make(map[uint64]Listener),
	}
	d.order = append(d.order, id)
	return true
}

// RemoveElement drops an element and its press listeners
func (d *VirtualDocument) RemoveElement(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.elements, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Element implements Document
func (d *VirtualDocument) Element(id string) (Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, ok := d.elements[id]
	if !ok {
		return nil, false
	}
	return el, true
}

// OnMove implements Document
func (d *VirtualDocument) OnMove(fn Listener) Handle {
	return d.add(d.move, fn)
}

// OnRelease implements Document
func (d *VirtualDocument) OnRelease(fn Listener) Handle {
	return d.add(d.release, fn)
}

func (d *VirtualDocument) add(set map[uint64]Listener, fn Listener) Handle {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	set[id] = fn
	d.mu.Unlock()

	return HandleFunc(func() {
		d.mu.Lock()
		delete(set, id)
		d.mu.Unlock()
	})
}

// Dispatch delivers evt. Presses go to the element named by evt.Target, or
// to the topmost element containing the pointer when Target is empty; moves
// and releases go to every document listener. It reports whether any
// listener received the event.
func (d *VirtualDocument) Dispatch(evt Event) bool {
	var listeners []Listener

	d.mu.Lock()
	switch evt.Kind {
	case Press:
		if el := d.hitLocked(evt); el != nil {
			listeners = sorted(el.press)
		}
	case Move:
		listeners = sorted(d.move)
	case Release:
		listeners = sorted(d.release)
	}
	d.mu.Unlock()

	for _, fn := range listeners {
		fn(evt)
	}
	return len(listeners) > 0
}

func (d *VirtualDocument) hitLocked(evt Event) *VirtualElement {
	if evt.Target != "" {
		return d.elements[evt.Target]
	}
	for i := len(d.order) - 1; i >= 0; i-- {
		el := d.elements[d.order[i]]
		if el.rect.Contains(evt.Pointer.ClientX, evt.Pointer.ClientY) {
			return el
		}
	}
	return nil
}

// ListenerCounts returns the number of press, move and release listeners
func (d *VirtualDocument) ListenerCounts() (press, move, release int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, el := range d.elements {
		press += len(el.press)
	}
	return press, len(d.move), len(d.release)
}

// ID implements Element
func (e *VirtualElement) ID() string {
	return e.id
}

// Bounds implements Element
func (e *VirtualElement) Bounds() grid.Rect {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.rect
}

// OnPress implements Element
func (e *VirtualElement) OnPress(fn Listener) Handle {
	return e.doc.add(e.press, fn)
}

func sorted(set map[uint64]Listener) []Listener {
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = set[id]
	}
	return out
}
