//go:build js && wasm
// +build js,wasm

package dom

import (
	"sync"
	"syscall/js"
	"time"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/grid"
)

// Document is the browser document as a drag.Document
type Document struct {
	doc    js.Value
	origin time.Time
}

// NewDocument wraps the global document
func NewDocument() *Document {
	d := &Document{doc: js.Global().Get("document")}
	if perf := js.Global().Get("performance"); perf.Truthy() {
		if t := perf.Get("timeOrigin"); t.Truthy() {
			ms := t.Float()
			d.origin = time.UnixMilli(int64(ms)).Add(time.Duration((ms - float64(int64(ms))) * float64(time.Millisecond)))
		}
	}
	return d
}

// Element implements drag.Document
func (d *Document) Element(id string) (drag.Element, bool) {
	el := d.doc.Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return nil, false
	}
	return &element{id: id, el: el, doc: d}, true
}

// OnMove implements drag.Document
func (d *Document) OnMove(fn drag.Listener) drag.Handle {
	return d.listen(d.doc, "mousemove", "", fn)
}

// OnRelease implements drag.Document
func (d *Document) OnRelease(fn drag.Listener) drag.Handle {
	return d.listen(d.doc, "mouseup", "", fn)
}

// SetText replaces the text content of element id. It reports whether the
// element exists.
func (d *Document) SetText(id, text string) bool {
	el := d.doc.Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return false
	}
	el.Set("textContent", text)
	return true
}

// Text returns the text content of element id
func (d *Document) Text(id string) (string, bool) {
	el := d.doc.Call("getElementById", id)
	if el.IsNull() || el.IsUndefined() {
		return "", false
	}
	return el.Get("textContent").String(), true
}

func (d *Document) listen(target js.Value, typ, id string, fn drag.Listener) drag.Handle {
	cb := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if len(args) == 0 {
			return nil
		}
		e := args[0]
		me := MouseEvent{
			Type:      typ,
			Target:    id,
			ClientX:   e.Get("clientX").Float(),
			ClientY:   e.Get("clientY").Float(),
			TimeStamp: e.Get("timeStamp").Float(),
		}
		if SuppressDefault(me) {
			e.Call("preventDefault")
		}
		evt, ok := Event(me, d.origin)
		if ok {
			fn(evt)
		}
		return nil
	})
	target.Call("addEventListener", typ, cb)

	var once sync.Once
	return drag.HandleFunc(func() {
		once.Do(func() {
			target.Call("removeEventListener", typ, cb)
			cb.Release()
		})
	})
}

type element struct {
	id  string
	el  js.Value
	doc *Document
}

func (e *element) ID() string {
	return e.id
}

func (e *element) Bounds() grid.Rect {
	r := e.el.Call("getBoundingClientRect")
	return grid.Rect{
		Left:   r.Get("left").Float(),
		Top:    r.Get("top").Float(),
		Width:  r.Get("width").Float(),
		Height: r.Get("height").Float(),
	}
}

func (e *element) OnPress(fn drag.Listener) drag.Handle {
	return e.doc.listen(e.el, "mousedown", e.id, fn)
}
