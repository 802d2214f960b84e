//go:build js && wasm
// +build js,wasm

// Command client runs the grid explorer in the browser. The page calls
// patchview.refresh(buffer, metadata, ...figures) on its own timer and
// renders the returned JSON.
package main

import (
	"syscall/js"
	"time"

	"github.com/recera/patchview/pkg/debug"
	"github.com/recera/patchview/pkg/dom"
	"github.com/recera/patchview/pkg/explorer"
	"github.com/recera/patchview/pkg/figure"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/json"
	"github.com/recera/patchview/pkg/position"
	"github.com/recera/patchview/pkg/refresh"
)

var console js.Value

// render is what refresh hands back to the page
type render struct {
	Tick     uint64              `json:"tick"`
	Position grid.Coordinate     `json:"position"`
	Offset   int                 `json:"offset"`
	Signals  []figure.Figure     `json:"signals"`
	Figures  []figure.Descriptor `json:"figures,omitempty"`
	Fallback bool                `json:"fallback,omitempty"`
	Reason   string              `json:"reason,omitempty"`
}

func main() {
	console = js.Global().Get("console")
	console.Call("log", "patchview client starting")

	document := js.Global().Get("document")
	if document.Get("readyState").String() != "loading" {
		onReady()
	} else {
		var ready js.Func
		ready = js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			onReady()
			ready.Release()
			return nil
		})
		document.Call("addEventListener", "DOMContentLoaded", ready)
	}

	// Keep the WASM runtime alive
	select {}
}

func onReady() {
	if js.Global().Get("localStorage").Truthy() &&
		js.Global().Get("localStorage").Call("getItem", "patchview:debug").Truthy() {
		debug.EnableLogging()
	}

	doc := dom.NewDocument()
	opts := optionsFromPage()
	ex := explorer.New(&opts)
	sinkID := ex.Options().SinkID

	// The sink element mirrors the store; JS listeners run on one thread
	seed := ex.Setup(doc)
	if !doc.SetText(sinkID, seed) {
		console.Call("warn", "sink element not found:", sinkID)
	}
	ex.Store().Subscribe(position.PositionChanged, func(position.Notification) {
		doc.SetText(sinkID, ex.Store().Text())
	})

	var tick uint64
	api := js.Global().Get("Object").New()
	api.Set("refresh", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		tick++
		// Pick up writes made to the sink by other scripts
		if text, ok := doc.Text(sinkID); ok && text != ex.Store().Text() {
			ex.Store().WriteText(text)
		}

		in := refresh.Input{Tick: tick}
		if len(args) > 0 {
			in.SignalBuffer = jsonBytes(args[0])
		}
		if len(args) > 1 {
			in.FileMetadata = jsonBytes(args[1])
		}
		for _, a := range args[min(len(args), 2):] {
			d, err := figure.ParseDescriptor(jsonBytes(a))
			if err != nil {
				console.Call("warn", "figure:", err.Error())
				d = nil
			}
			in.Figures = append(in.Figures, d)
		}

		out := ex.Refresh(in)
		r := render{
			Tick:     out.Tick,
			Position: out.Position,
			Offset:   out.Offset,
			Signals:  out.Signals,
			Figures:  out.Figures,
			Fallback: out.Fallback,
		}
		if out.Reason != nil {
			r.Reason = out.Reason.Error()
		}
		data, err := json.Marshal(r)
		if err != nil {
			console.Call("error", err.Error())
			return nil
		}
		return string(data)
	}))
	api.Set("setup", js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		return ex.Setup(doc)
	}))
	js.Global().Set("patchview", api)

	console.Call("log", "patchview client ready")
}

// optionsFromPage reads window.patchviewOptions, if the page defines it
func optionsFromPage() explorer.Options {
	var opts explorer.Options
	v := js.Global().Get("patchviewOptions")
	if !v.Truthy() {
		return opts
	}
	raw := js.Global().Get("JSON").Call("stringify", v).String()

	var page struct {
		Elements   []string `json:"elements"`
		SinkID     string   `json:"sinkId"`
		ThrottleMs float64  `json:"throttleMs"`
		Channels   int      `json:"channels"`
		Centered   *bool    `json:"centered"`
		Sentinel   string   `json:"sentinel"`
	}
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		console.Call("warn", "patchviewOptions:", err.Error())
		return opts
	}
	opts.Elements = page.Elements
	opts.SinkID = page.SinkID
	if page.ThrottleMs > 0 {
		opts.ThrottleInterval = time.Duration(page.ThrottleMs * float64(time.Millisecond))
	}
	opts.Channels = page.Channels
	opts.Uncentered = page.Centered != nil && !*page.Centered
	opts.Sentinel = position.Sentinel(page.Sentinel)
	return opts
}

// jsonBytes accepts either a JSON string or a JS value to stringify
func jsonBytes(v js.Value) []byte {
	switch v.Type() {
	case js.TypeString:
		return []byte(v.String())
	case js.TypeNull, js.TypeUndefined:
		return nil
	default:
		return []byte(js.Global().Get("JSON").Call("stringify", v).String())
	}
}
