package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestServer(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/video"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestVideoWebSocketEmptyPayload(t *testing.T) {
	conn := dialTestServer(t, newTestServer(&fakePipeline{}))

	require.NoError(t, conn.WriteJSON(WebSocketVideoRequest{}))

	var msg WebSocketVideoMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "no video payload")
}

func TestVideoWebSocketUnopenableVideo(t *testing.T) {
	conn := dialTestServer(t, newTestServer(&fakePipeline{}))

	require.NoError(t, conn.WriteJSON(WebSocketVideoRequest{
		Video:    []byte("definitely not a video container"),
		Filename: "clip.mp4",
	}))

	var msg WebSocketVideoMessage
	require.NoError(t, conn.ReadJSON(&msg))
	// Depending on the capture backend, garbage either fails to open or
	// yields an empty clip whose sweep reports an invalid range.
	switch msg.Type {
	case "error":
		assert.NotEmpty(t, msg.Error)
	case "result":
		require.NotNil(t, msg.Result)
		assert.Zero(t, msg.Result.FramesProcessed)
	default:
		t.Fatalf("unexpected message type %q", msg.Type)
	}
}

func TestVideoWebSocketConnectionStaysOpen(t *testing.T) {
	// After an error frame the connection accepts further requests.
	conn := dialTestServer(t, newTestServer(&fakePipeline{}))

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(WebSocketVideoRequest{}))

		var msg WebSocketVideoMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "error", msg.Type)
	}
}
