package live

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recera/patchview/pkg/drag"
	"github.com/recera/patchview/pkg/grid"
	"github.com/recera/patchview/pkg/json"
)

// Client is the Go side of a live connection, used by tools and tests that
// drive a remote explorer
type Client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

// Dial connects to a live server. url is the full ws:// URL including the
// session ID.
func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, data)
}

func (c *Client) write(messageType int, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// SendLayout reports element bounds
func (c *Client) SendLayout(elements map[string]grid.Rect) error {
	return c.writeJSON(LayoutMessage{Type: MsgLayout, Elements: elements})
}

// SendPointer sends evt as a JSON message
func (c *Client) SendPointer(evt drag.Event) error {
	return c.writeJSON(PointerMessage{
		Type:      MsgPointer,
		Event:     evt.Kind.String(),
		Target:    evt.Target,
		ClientX:   evt.Pointer.ClientX,
		ClientY:   evt.Pointer.ClientY,
		TimeStamp: millis(evt.Time),
	})
}

// SendPointerFrame sends evt as a binary frame
func (c *Client) SendPointerFrame(evt drag.Event) error {
	return c.write(websocket.BinaryMessage, EncodePointer(evt))
}

// SendSink overwrites the shared position text
func (c *Client) SendSink(text string) error {
	return c.writeJSON(SinkMessage{Type: MsgSink, Text: text})
}

// SendFigures replaces the displayed figures
func (c *Client) SendFigures(figs ...json.RawMessage) error {
	return c.writeJSON(FiguresMessage{Type: MsgFigures, Figures: figs})
}

// Ping sends a control ping; the server answers with a PONG frame
func (c *Client) Ping() error {
	return c.write(websocket.BinaryMessage, EncodeControl("PING"))
}

// Next reads the next message. Text messages return their type; binary
// frames return an empty type.
func (c *Client) Next(ctx context.Context) (string, []byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetReadDeadline(deadline)
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}

	messageType, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", nil, err
	}
	if messageType != websocket.TextMessage {
		return "", data, nil
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("decode message: %w", err)
	}
	return env.Type, data, nil
}

// Expect reads until a text message of type typ arrives and decodes it into v
func (c *Client) Expect(ctx context.Context, typ string, v any) error {
	for {
		got, data, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if got != typ {
			continue
		}
		if v == nil {
			return nil
		}
		return json.Unmarshal(data, v)
	}
}

// Close closes the connection
func (c *Client) Close() error {
	c.wmu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}
