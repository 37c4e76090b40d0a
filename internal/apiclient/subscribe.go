package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"canteen/internal/viewsync"
)

// Subscribe connects to the push channel and calls fn for every message
// until ctx is done or the connection drops. A non-empty orderRef narrows
// the stream to that order.
func (c *Client) Subscribe(ctx context.Context, orderRef string, fn func(viewsync.Message)) error {
	wsURL, err := c.websocketURL(orderRef)
	if err != nil {
		return err
	}

	header := http.Header{}
	c.setIdentity(header)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dialing push channel: %w", err)
	}
	defer conn.Close()

	// unblocks ReadJSON when the caller gives up
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var msg viewsync.Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading push channel: %w", err)
		}
		fn(msg)
	}
}

func (c *Client) websocketURL(orderRef string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if orderRef != "" {
		u.RawQuery = url.Values{"orderId": {orderRef}}.Encode()
	}
	return u.String(), nil
}
