package server

import (
	"context"
	"image"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/platewarp/internal/detect"
	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/utils"
	"github.com/MeKo-Tech/platewarp/internal/video"
)

// pipelineInterface defines the methods the server needs from a pipeline.
type pipelineInterface interface {
	ProcessPlate(ctx context.Context, img image.Image, pts []utils.Point,
		opts pipeline.PlateOptions) (*pipeline.PlateResult, error)
	Detector() detect.Detector
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipeline    pipelineInterface
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	numFrames   int
	widthScale  float64
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	PipelineConfig  pipeline.Config
	VideoNumFrames  int
	VideoWidthScale float64
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// DetectResult reports the corner points found in an image, ordered
// top-left, top-right, bottom-right, bottom-left.
type DetectResult struct {
	Found  bool        `json:"found"`
	Points [][]float64 `json:"points,omitempty"`
}

type DetectResponse struct {
	Success bool          `json:"success"`
	Result  *DetectResult `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// PlateResult is the JSON shape of a single-image processing result. The
// image views are base64 JPEG data URLs.
type PlateResult struct {
	Rectified  string          `json:"rectified,omitempty"`
	Enhanced   string          `json:"enhanced,omitempty"`
	Text       string          `json:"text"`
	Candidates []ocr.Candidate `json:"candidates,omitempty"`
	Processing struct {
		RectifyMs   int64 `json:"rectify_ms"`
		RecognizeMs int64 `json:"recognize_ms"`
		EnhanceMs   int64 `json:"enhance_ms"`
		TotalMs     int64 `json:"total_ms"`
	} `json:"processing"`
}

type PlateResponse struct {
	Success bool         `json:"success"`
	Result  *PlateResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
}

type VideoResponse struct {
	Success bool          `json:"success"`
	Result  *video.Result `json:"result,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// NewServer creates a new plate processing server instance.
func NewServer(config Config) (*Server, error) {
	pl, err := pipeline.NewBuilder().WithConfig(config.PipelineConfig).Build()
	if err != nil {
		return nil, err
	}

	numFrames := config.VideoNumFrames
	if numFrames < 1 {
		numFrames = 10
	}
	widthScale := config.VideoWidthScale
	if widthScale <= 0 {
		widthScale = 2.0
	}

	return &Server{
		pipeline:    pl,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		numFrames:   numFrames,
		widthScale:  widthScale,
	}, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipeline != nil {
		return s.pipeline.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/detect", s.corsMiddleware(s.detectHandler))
	mux.HandleFunc("/process", s.corsMiddleware(s.processHandler))
	mux.HandleFunc("/process/video", s.corsMiddleware(s.processVideoHandler))
	mux.HandleFunc("/ws/video", s.videoWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
