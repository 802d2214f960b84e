// Package explorer assembles one grid explorer: the shared position store,
// the drag controller writing into it and the refresher reading from it.
package explorer

import (
	"time"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/position"
	"github.com/recera/patchview/pkg/refresh"
)

// Element IDs and sink ID used when Options leaves them empty
var (
	DefaultElements = []string{"graph-image-1", "graph-image-2"}
	DefaultSinkID   = "hidden-div"
)

// Options configures an Explorer. Zero fields take the defaults.
type Options struct {
	// Elements are the pointer sources, all feeding the same position
	Elements []string

	// SinkID names the element holding the serialized position
	SinkID string

	ThrottleInterval time.Duration
	Channels         int

	// Uncentered disables the centering correction for non-square images
	Uncentered bool

	Sentinel     position.Sentinel
	LeadingSkip  int
	MarkerRadius float64
	MarkerColor  string

	Clock           func() time.Time
	DragObserver    drag.Observer
	RefreshObserver refresh.Observer
}

func (o *Options) withDefaults() Options {
	d := Options{
		Elements:         DefaultElements,
		SinkID:           DefaultSinkID,
		ThrottleInterval: drag.DefaultThrottle,
		Channels:         2,
		Sentinel:         position.SentinelCenter,
		MarkerRadius:     figure.DefaultMarker.Radius,
		MarkerColor:      figure.DefaultMarker.Color,
		Clock:            time.Now,
	}
	if o == nil {
		return d
	}
	if len(o.Elements) > 0 {
		d.Elements = append([]string(nil), o.Elements...)
	}
	if o.SinkID != "" {
		d.SinkID = o.SinkID
	}
	if o.ThrottleInterval > 0 {
		d.ThrottleInterval = o.ThrottleInterval
	}
	if o.Channels > 0 {
		d.Channels = o.Channels
	}
	d.Uncentered = o.Uncentered
	if o.Sentinel.Valid() {
		d.Sentinel = o.Sentinel
	}
	if o.LeadingSkip > 0 {
		d.LeadingSkip = o.LeadingSkip
	}
	if o.MarkerRadius > 0 {
		d.MarkerRadius = o.MarkerRadius
	}
	if o.MarkerColor != "" {
		d.MarkerColor = o.MarkerColor
	}
	if o.Clock != nil {
		d.Clock = o.Clock
	}
	d.DragObserver = o.DragObserver
	d.RefreshObserver = o.RefreshObserver
	return d
}

// Explorer is one independent instance. Nothing is shared between explorers.
// Notifications run on the goroutine that publishes, so an explorer belongs
// to a single event loop.
type Explorer struct {
	opts      Options
	store     *position.Store
	ctrl      *drag.Controller
	refresher *refresh.Refresher
}

// New creates an Explorer
func New(opts *Options) *Explorer {
	o := opts.withDefaults()

	store := position.NewStore(o.Sentinel, nil)

	mapper := grid.NewMapper()
	mapper.Centered = !o.Uncentered

	ctrl := drag.NewController(store, &drag.Options{
		Elements:         o.Elements,
		ThrottleInterval: o.ThrottleInterval,
		Mapper:           mapper,
		Clock:            o.Clock,
		Observer:         o.DragObserver,
	})

	fallback := store.Default()
	refresher := refresh.New(store, &refresh.Options{
		Channels:    o.Channels,
		LeadingSkip: o.LeadingSkip,
		Marker:      figure.Marker{Radius: o.MarkerRadius, Color: o.MarkerColor},
		Fallback:    fallback,
		Observer:    o.RefreshObserver,
		Clock:       o.Clock,
	})

	return &Explorer{
		opts:      o,
		store:     store,
		ctrl:      ctrl,
		refresher: refresher,
	}
}

// Setup binds the pointer sources found in doc and returns the serialized
// seed position. It may be called again whenever the page is rebuilt.
func (e *Explorer) Setup(doc drag.Document) string {
	e.ctrl.Setup(doc)
	return e.store.Default().Marshal()
}

// Refresh runs one refresh cycle
func (e *Explorer) Refresh(in refresh.Input) refresh.Output {
	return e.refresher.Refresh(in)
}

// Store returns the shared position
func (e *Explorer) Store() *position.Store {
	return e.store
}

// Controller returns the drag controller
func (e *Explorer) Controller() *drag.Controller {
	return e.ctrl
}

// Options returns the effective options
func (e *Explorer) Options() Options {
	return e.opts
}

// Close ends any drag and removes every listener
func (e *Explorer) Close() {
	e.ctrl.Teardown()
}
