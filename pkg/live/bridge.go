package live

import (
	"go.uber.org/zap"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/explorer"
	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/position"
	"github.com/recera/patchview/pkg/refresh"
	"github.com/recera/patchview/pkg/scheduler"
)

// bridge runs one session's explorer on its own scheduler. Everything that
// touches the explorer, the document or the displayed figures happens on the
// scheduler loop, so pointer events, sink writes and refreshes are applied in
// arrival order.
type bridge struct {
	id   string
	log  *zap.Logger
	emit func(v any) error
	data DataSource

	sched *scheduler.Scheduler
	fiber *scheduler.Fiber
	doc   *drag.VirtualDocument
	ex    *explorer.Explorer

	// loop-owned
	ticks   uint64
	figures []figure.Descriptor
	bound   bool
	unsubs  []func()
}

func newBridge(id string, opts Options, emit func(v any) error, log *zap.Logger) *bridge {
	exOpts := opts.Explorer

	b := &bridge{
		id:    id,
		log:   log,
		emit:  emit,
		data:  opts.Data,
		sched: scheduler.NewScheduler(),
		doc:   drag.NewVirtualDocument(),
		ex:    explorer.New(&exOpts),
	}

	b.sched.SetDefaultErrorHandler(func(fiber *scheduler.Fiber, err interface{}) bool {
		log.Error("[Live Bridge] Fiber error", zap.String("fiber", fiber.Name()), zap.Any("error", err))
		return true
	})
	b.sched.SetTaskPanicHandler(func(err interface{}) {
		log.Error("[Live Bridge] Task panic", zap.Any("error", err))
	})

	b.fiber = b.sched.CreateFiber("refresh", b.render, nil)

	store := b.ex.Store()
	for _, kind := range []position.Kind{position.DragStarted, position.DragEnded, position.PositionChanged} {
		b.unsubs = append(b.unsubs, store.Subscribe(kind, b.notify))
	}

	b.sched.Start()
	b.sched.MarkDirty(b.fiber)
	return b
}

// layout updates element bounds. The explorer is (re)bound when an element
// appears for the first time.
func (b *bridge) layout(elements map[string]grid.Rect) {
	b.sched.Post(func() {
		added := false
		for _, id := range elementIDs(elements) {
			if b.doc.SetElement(id, elements[id]) {
				added = true
			}
		}
		if !added && b.bound {
			return
		}
		b.bound = true

		seed := b.ex.Setup(b.doc)
		bound := 0
		for _, id := range b.ex.Options().Elements {
			if _, ok := b.doc.Element(id); ok {
				bound++
			}
		}
		b.send(SetupMessage{
			Type:     MsgSetup,
			Session:  b.id,
			Seed:     seed,
			SinkID:   b.ex.Options().SinkID,
			Elements: b.ex.Options().Elements,
			Bound:    bound,
		})
		b.sched.MarkDirty(b.fiber)
	})
}

func (b *bridge) pointer(evt drag.Event) {
	b.sched.Post(func() {
		b.doc.Dispatch(evt)
	})
}

func (b *bridge) sink(text string) {
	b.sched.Post(func() {
		b.ex.Store().WriteText(text)
	})
}

func (b *bridge) setFigures(figs []figure.Descriptor) {
	b.sched.Post(func() {
		b.figures = figs
		b.sched.MarkDirty(b.fiber)
	})
}

func (b *bridge) tick() {
	b.sched.MarkDirty(b.fiber)
}

// sync waits for everything posted so far
func (b *bridge) sync() {
	b.sched.Sync()
}

func (b *bridge) notify(n position.Notification) {
	b.send(NotifyMessage{
		Type:     MsgNotify,
		Event:    n.Kind.String(),
		Position: n.Position,
		Sink:     b.ex.Store().Text(),
	})
	if n.Kind == position.PositionChanged {
		b.sched.MarkDirty(b.fiber)
	}
}

func (b *bridge) render() {
	b.ticks++
	var buffer, metadata []byte
	if b.data != nil {
		buffer, metadata = b.data.Data()
	}

	out := b.ex.Refresh(refresh.Input{
		Tick:         b.ticks,
		SignalBuffer: buffer,
		FileMetadata: metadata,
		Figures:      b.figures,
	})

	msg := RenderMessage{
		Type:     MsgRender,
		Tick:     out.Tick,
		Position: out.Position,
		Offset:   out.Offset,
		Signals:  out.Signals,
		Figures:  out.Figures,
		Fallback: out.Fallback,
	}
	if out.Reason != nil {
		msg.Reason = out.Reason.Error()
	}
	b.send(msg)
}

func (b *bridge) send(v any) {
	if err := b.emit(v); err != nil {
		b.log.Debug("[Live Bridge] Dropped message", zap.Error(err))
	}
}

// close tears the explorer down on the loop, then stops it
func (b *bridge) close() {
	b.sched.Post(func() {
		for _, unsub := range b.unsubs {
			unsub()
		}
		b.ex.Close()
	})
	b.sched.Sync()
	b.sched.Stop()
}
