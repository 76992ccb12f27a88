package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/video"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketVideoRequest starts a video sweep over the connection. The video
// payload is base64-encoded by the JSON layer.
type WebSocketVideoRequest struct {
	Video     []byte                 `json:"video"`
	Filename  string                 `json:"filename,omitempty"`
	NumFrames int                    `json:"num_frames,omitempty"`
	StartTime float64                `json:"start_time,omitempty"`
	EndTime   *float64               `json:"end_time,omitempty"`
	Options   *pipeline.PlateOptions `json:"options,omitempty"`
}

// WebSocketVideoMessage is one server-to-client frame. Type is "progress"
// while the sweep runs, then "result" or "error".
type WebSocketVideoMessage struct {
	Type     string          `json:"type"`
	Progress *video.Progress `json:"progress,omitempty"`
	Result   *video.Result   `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// videoWebSocketHandler streams per-frame progress for a video sweep.
func (s *Server) videoWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	for {
		var req WebSocketVideoRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()

		s.handleVideoSweep(r, conn, &req)
	}
}

// handleVideoSweep runs one sweep and streams its progress. Errors go to the
// client as an error frame; the connection stays open for further requests.
func (s *Server) handleVideoSweep(r *http.Request, conn *websocket.Conn, req *WebSocketVideoRequest) {
	if len(req.Video) == 0 {
		writeWSMessage(conn, WebSocketVideoMessage{Type: "error", Error: "no video payload"})
		return
	}

	tmpPath, err := spoolUpload(bytes.NewReader(req.Video), req.Filename)
	if err != nil {
		writeWSMessage(conn, WebSocketVideoMessage{Type: "error", Error: "failed to store video payload"})
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			slog.Warn("Could not remove temporary video file", "path", tmpPath, "error", err)
		}
	}()

	src, err := video.OpenCapture(tmpPath)
	if err != nil {
		writeWSMessage(conn, WebSocketVideoMessage{Type: "error", Error: fmt.Sprintf("could not open video: %v", err)})
		return
	}
	defer func() { _ = src.Close() }()

	numFrames := req.NumFrames
	if numFrames < 1 {
		numFrames = s.numFrames
	}
	endTime := -1.0
	if req.EndTime != nil {
		endTime = *req.EndTime
	}

	options := []video.AggregatorOption{
		video.WithProgress(func(p video.Progress) {
			writeWSMessage(conn, WebSocketVideoMessage{Type: "progress", Progress: &p})
		}),
	}
	if req.Options != nil {
		options = append(options, video.WithPlateOptions(*req.Options))
	}

	agg := video.NewAggregator(s.pipeline.Detector(), s.pipeline, options...)

	result, err := agg.ProcessVideo(r.Context(), src, numFrames, req.StartTime, endTime)
	if err != nil {
		writeWSMessage(conn, WebSocketVideoMessage{Type: "error", Error: fmt.Sprintf("video processing failed: %v", err)})
		return
	}

	videoFramesExamined.Observe(float64(result.FramesProcessed))
	writeWSMessage(conn, WebSocketVideoMessage{Type: "result", Result: result})
}

func writeWSMessage(conn *websocket.Conn, msg WebSocketVideoMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Warn("Failed to write WebSocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
