package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/video"
)

// processVideoHandler sweeps an uploaded video and returns the consensus
// plate read. The upload is spooled to a temporary file because the capture
// backend needs a seekable path; the file is always removed afterwards.
func (s *Server) processVideoHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)
	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		plateRequestsTotal.WithLabelValues("video", "error").Inc()
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("video")
	if err != nil {
		plateRequestsTotal.WithLabelValues("video", "error").Inc()
		s.writeErrorResponse(w, "No video file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	params, err := s.parseVideoParams(r)
	if err != nil {
		plateRequestsTotal.WithLabelValues("video", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	tmpPath, err := spoolUpload(file, header.Filename)
	if err != nil {
		plateRequestsTotal.WithLabelValues("video", "error").Inc()
		s.writeErrorResponse(w, "Failed to store video upload", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			slog.Warn("Could not remove temporary video file", "path", tmpPath, "error", err)
		}
	}()

	src, err := video.OpenCapture(tmpPath)
	if err != nil {
		plateRequestsTotal.WithLabelValues("video", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Could not open video: %v", err), http.StatusBadRequest)
		return
	}
	defer func() { _ = src.Close() }()

	agg := video.NewAggregator(s.pipeline.Detector(), s.pipeline,
		video.WithPlateOptions(params.opts))

	start := time.Now()
	result, err := agg.ProcessVideo(r.Context(), src, params.numFrames, params.startTime, params.endTime)
	if err != nil {
		plateRequestsTotal.WithLabelValues("video", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Video processing failed: %v", err), http.StatusInternalServerError)
		return
	}
	plateProcessingDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
	videoFramesExamined.Observe(float64(result.FramesProcessed))
	plateRequestsTotal.WithLabelValues("video", "success").Inc()

	s.writeJSON(w, VideoResponse{Success: true, Result: result})
}

type videoParams struct {
	numFrames int
	startTime float64
	endTime   float64
	opts      pipeline.PlateOptions
}

// parseVideoParams reads the sweep controls from form fields. The end time
// defaults to -1, meaning "to the end of the video".
func (s *Server) parseVideoParams(r *http.Request) (videoParams, error) {
	params := videoParams{
		numFrames: s.numFrames,
		startTime: 0,
		endTime:   -1,
	}

	if v := r.FormValue("num_frames"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return params, fmt.Errorf("invalid num_frames: %q", v)
		}
		params.numFrames = n
	}
	if v := r.FormValue("start_time"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("invalid start_time: %w", err)
		}
		params.startTime = f
	}
	if v := r.FormValue("end_time"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Errorf("invalid end_time: %w", err)
		}
		params.endTime = f
	}

	opts, err := parsePlateOptions(r)
	if err != nil {
		return params, err
	}
	// Video frames default to double width; small crops need the extra
	// resolution before recognition.
	if r.FormValue("width_scale") == "" {
		opts.WidthScale = s.widthScale
	}
	params.opts = opts
	return params, nil
}

// spoolUpload writes the uploaded stream to a temporary file and returns
// its path. The original extension is preserved so the capture backend can
// pick a demuxer.
func spoolUpload(src io.Reader, filename string) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".mp4"
	}

	tmp, err := os.CreateTemp("", "platewarp-upload-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
