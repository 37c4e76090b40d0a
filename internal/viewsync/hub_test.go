package viewsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canteen/internal/domain"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, MessageHello, hello.Type)
	return conn
}

func TestHub_BroadcastsInvalidateToDashboards(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	n := Notification{
		Version: 5,
		Scopes:  AllScopes,
		Change:  Change{OrderID: 9, OrderNumber: "ORD-9", Status: domain.OrderStatusReady, Reason: ReasonStatus},
		At:      time.Now().UTC(),
	}
	require.NoError(t, hub.Notify(context.Background(), n))

	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageInvalidate, msg.Type)
	assert.Equal(t, uint64(5), msg.Version)
	assert.Equal(t, int64(9), msg.OrderID)
	assert.Len(t, msg.Scopes, 4)
}

func TestHub_SubscriberOnlySeesItsOrder(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url+"?orderId=CB20261016101500")

	other := Notification{Version: 1, Change: Change{OrderID: 1, OrderNumber: "ORD-A", Barcode: "CB1", Status: domain.OrderStatusReady}}
	mine := Notification{Version: 2, Change: Change{OrderID: 2, OrderNumber: "ORD-B", Barcode: "CB20261016101500", Status: domain.OrderStatusCompleted}}
	require.NoError(t, hub.Notify(context.Background(), other))
	require.NoError(t, hub.Notify(context.Background(), mine))

	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageOrderUpdated, msg.Type)
	assert.Equal(t, int64(2), msg.OrderID)
	assert.Equal(t, domain.OrderStatusCompleted, msg.Status)
}

func TestHub_HelloCarriesLatestVersion(t *testing.T) {
	hub, url := startHub(t)
	first := dial(t, url)

	require.NoError(t, hub.Notify(context.Background(), Notification{Version: 11, Change: Change{OrderID: 1}}))
	var msg Message
	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, first.ReadJSON(&msg))

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var hello Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, MessageHello, hello.Type)
	assert.Equal(t, uint64(11), hello.Version)
}

func TestHub_NotifyAfterStop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, hub.Notify(context.Background(), Notification{}), ErrHubStopped)
	}
	assert.Empty(t, hub.broadcast, "nothing queued after stop")
}
