package live

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/explorer"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/json"
)

type staticData struct {
	buffer, metadata []byte
}

func (d staticData) Data() ([]byte, []byte) {
	return d.buffer, d.metadata
}

type sessionCounter struct {
	opened, closed chan struct{}
}

func (c *sessionCounter) SessionOpened() { c.opened <- struct{}{} }
func (c *sessionCounter) SessionClosed() { c.closed <- struct{}{} }

func rampData(frames int) staticData {
	n := 64 * frames
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprint(i)
	}
	arr := "[" + strings.Join(parts, ",") + "]"
	return staticData{
		buffer:   []byte(`{"signal_0":` + arr + `,"signal_1":` + arr + `}`),
		metadata: []byte(fmt.Sprintf(`{"frames":%d}`, frames)),
	}
}

func startServer(t *testing.T, opts *Options) (*Server, string) {
	t.Helper()
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = time.Hour
	}
	srv := NewServer(opts)

	mux := http.NewServeMux()
	mux.HandleFunc(srv.Path(), srv.HandleWebSocket)
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + srv.Path()
}

func dial(t *testing.T, url string) (*Client, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, err := Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, ctx
}

var layout = map[string]grid.Rect{
	"graph-image-1": {Width: 100, Height: 100},
	"graph-image-2": {Left: 120, Width: 100, Height: 100},
}

// expectRender reads render messages until one satisfies ok
func expectRender(t *testing.T, ctx context.Context, c *Client, ok func(RenderMessage) bool) RenderMessage {
	t.Helper()
	for {
		var msg RenderMessage
		require.NoError(t, c.Expect(ctx, MsgRender, &msg))
		if ok(msg) {
			return msg
		}
	}
}

func TestServer_SetupAndDrag(t *testing.T) {
	_, url := startServer(t, &Options{Data: rampData(10)})
	c, ctx := dial(t, url+"s1")

	require.NoError(t, c.SendLayout(layout))

	var setup SetupMessage
	require.NoError(t, c.Expect(ctx, MsgSetup, &setup))
	assert.Equal(t, "s1", setup.Session)
	assert.Equal(t, `{"x":64,"y":64}`, setup.Seed)
	assert.Equal(t, explorer.DefaultSinkID, setup.SinkID)
	assert.Equal(t, 2, setup.Bound)

	require.NoError(t, c.SendPointer(drag.Event{Kind: drag.Press, Target: "graph-image-1", Pointer: grid.Pointer{ClientX: 99, ClientY: 99}}))

	var started NotifyMessage
	require.NoError(t, c.Expect(ctx, MsgNotify, &started))
	assert.Equal(t, "drag-started", started.Event)

	var changed NotifyMessage
	require.NoError(t, c.Expect(ctx, MsgNotify, &changed))
	assert.Equal(t, "position-changed", changed.Event)
	assert.Equal(t, grid.Coordinate{X: 127, Y: 127}, changed.Position)
	assert.Equal(t, `{"x":127,"y":127}`, changed.Sink)

	want := grid.Coordinate{X: 127, Y: 127}
	render := expectRender(t, ctx, c, func(m RenderMessage) bool { return m.Position == want })
	assert.False(t, render.Fallback)
	assert.Equal(t, grid.PatchOffset(want, grid.PatchSize), render.Offset)
	require.Len(t, render.Signals, 2)
	assert.Len(t, render.Signals[0].Data[0].Y, 10)

	require.NoError(t, c.SendPointer(drag.Event{Kind: drag.Release}))
	var ended NotifyMessage
	require.NoError(t, c.Expect(ctx, MsgNotify, &ended))
	assert.Equal(t, "drag-ended", ended.Event)
}

func TestServer_BinaryPointerFrames(t *testing.T) {
	_, url := startServer(t, &Options{Data: rampData(4)})
	c, ctx := dial(t, url+"bin")

	require.NoError(t, c.SendLayout(layout))
	require.NoError(t, c.Expect(ctx, MsgSetup, nil))

	require.NoError(t, c.SendPointerFrame(drag.Event{Kind: drag.Press, Pointer: grid.Pointer{ClientX: 170, ClientY: 50}}))

	for {
		var n NotifyMessage
		require.NoError(t, c.Expect(ctx, MsgNotify, &n))
		if n.Event == "position-changed" {
			assert.Equal(t, grid.Coordinate{X: 64, Y: 64}, n.Position)
			break
		}
	}
}

func TestServer_MarkerOnDisplayedFigures(t *testing.T) {
	_, url := startServer(t, &Options{Data: rampData(4)})
	c, ctx := dial(t, url+"figs")

	require.NoError(t, c.SendLayout(layout))
	require.NoError(t, c.SendFigures(
		json.RawMessage(`{"data":[],"layout":{"title":"heat"}}`),
		json.RawMessage(`{"data":[]}`),
	))

	render := expectRender(t, ctx, c, func(m RenderMessage) bool { return len(m.Figures) == 2 })
	layout := render.Figures[0]["layout"].(map[string]any)
	assert.Equal(t, "heat", layout["title"])
	shapes := layout["shapes"].([]any)
	require.Len(t, shapes, 1)
	assert.Equal(t, "circle", shapes[0].(map[string]any)["type"])
	assert.NotContains(t, render.Figures[1], "layout")
}

func TestServer_MalformedSinkFallsBack(t *testing.T) {
	_, url := startServer(t, &Options{Data: rampData(4)})
	c, ctx := dial(t, url+"sink")

	require.NoError(t, c.SendSink("{broken"))

	render := expectRender(t, ctx, c, func(m RenderMessage) bool { return m.Fallback })
	assert.Equal(t, grid.Center, render.Position)
	assert.NotEmpty(t, render.Reason)
	for _, sig := range render.Signals {
		assert.Empty(t, sig.Data)
	}
}

func TestServer_NoDataFallsBack(t *testing.T) {
	_, url := startServer(t, &Options{})
	c, ctx := dial(t, url+"nodata")

	render := expectRender(t, ctx, c, func(RenderMessage) bool { return true })
	assert.True(t, render.Fallback)
	assert.Contains(t, render.Reason, "no signal buffer")
}

func TestServer_RejectsUnknownMessages(t *testing.T) {
	_, url := startServer(t, &Options{})
	c, ctx := dial(t, url+"bad")

	require.NoError(t, c.writeJSON(map[string]string{"type": "teleport"}))

	var msg ErrorMessage
	require.NoError(t, c.Expect(ctx, MsgError, &msg))
	assert.Contains(t, msg.Error, "teleport")

	require.NoError(t, c.SendPointer(drag.Event{Kind: drag.Kind(9)}))
	require.NoError(t, c.Expect(ctx, MsgError, &msg))
	assert.Contains(t, msg.Error, "unknown pointer event")
}

func TestServer_PingPong(t *testing.T) {
	_, url := startServer(t, &Options{})
	c, ctx := dial(t, url+"ping")

	require.NoError(t, c.Ping())
	for {
		typ, data, err := c.Next(ctx)
		require.NoError(t, err)
		if typ != "" {
			continue
		}
		name, _, err := DecodeControl(data)
		require.NoError(t, err)
		if name == "PONG" {
			return
		}
		assert.Equal(t, "HELLO", name)
	}
}

func TestServer_SessionLifecycle(t *testing.T) {
	counter := &sessionCounter{opened: make(chan struct{}, 4), closed: make(chan struct{}, 4)}
	srv, url := startServer(t, &Options{Observer: counter})

	c, _ := dial(t, url)
	select {
	case <-counter.opened:
	case <-time.After(5 * time.Second):
		t.Fatal("session was not opened")
	}
	assert.Equal(t, 1, srv.SessionCount())

	c.Close()
	select {
	case <-counter.closed:
	case <-time.After(5 * time.Second):
		t.Fatal("session was not closed")
	}
	assert.Zero(t, srv.SessionCount())
}

func TestServer_ReplacesSessionWithSameID(t *testing.T) {
	srv, url := startServer(t, &Options{})
	first, ctx := dial(t, url+"dup")
	require.NoError(t, first.Expect(ctx, MsgRender, nil))

	old, ok := srv.GetSession("dup")
	require.True(t, ok)

	second, ctx2 := dial(t, url+"dup")
	require.NoError(t, second.Expect(ctx2, MsgRender, nil))

	select {
	case <-old.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("previous session was not closed")
	}
	current, ok := srv.GetSession("dup")
	require.True(t, ok)
	assert.NotSame(t, old, current)
}
