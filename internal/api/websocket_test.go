package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/smart-distancing/dashboard/internal/chart"
	"github.com/smart-distancing/dashboard/internal/dashboard"
	"github.com/smart-distancing/dashboard/internal/parser"
	"github.com/smart-distancing/dashboard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(0)
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/api/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_PingPong(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	hello := readMessage(t, conn)
	assert.Equal(t, MsgTypeConnected, hello.Type)
	assert.NotEmpty(t, hello.ID)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	pong := readMessage(t, conn)
	assert.Equal(t, MsgTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ID)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "bogus"}))
	errMsg := readMessage(t, conn)
	assert.Equal(t, MsgTypeError, errMsg.Type)
	assert.Contains(t, string(errMsg.Payload), "INVALID_TYPE")
}

func TestHub_BroadcastChartsUpdated(t *testing.T) {
	hub, url := startHub(t)
	counts := make(chan int, 16)
	hub.OnClientCount(func(n int) {
		select {
		case counts <- n:
		default:
		}
	})

	a := dial(t, url)
	b := dial(t, url)
	readMessage(t, a)
	readMessage(t, b)
	waitForClients(t, hub, 2)

	records, err := parser.ParseObjectsLogString(testutil.SampleObjectsLog)
	require.NoError(t, err)
	hub.BroadcastChartsUpdated(dashboard.Update{
		CameraID: "cam-1",
		Day:      "2020-05-01",
		Charts:   chart.Build(records),
		At:       time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC),
	})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, MsgTypeChartsUpdated, msg.Type)
		assert.Equal(t, "cam-1", msg.ID)

		var payload ChartsUpdatedPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		assert.Equal(t, "cam-1", payload.CameraID)
		assert.Equal(t, "2020-05-01", payload.Day)
		assert.Equal(t, 2, payload.Records)
	}

	a.Close()
	waitForClients(t, hub, 1)
	assert.NotEmpty(t, counts)
}

func TestHub_ChartsSubscription(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	readMessage(t, conn)
	waitForClients(t, hub, 1)

	src := testutil.NewMockLogSource()
	src.SetLog("cam-1", "2020-05-01", testutil.SampleObjectsLog)
	view := dashboard.NewCharts("cam-1", src, dashboard.WithClock(fixedClock))
	view.Subscribe(hub.BroadcastChartsUpdated)

	_, err := view.Refresh(context.Background())
	require.NoError(t, err)

	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypeChartsUpdated, msg.Type)
}
