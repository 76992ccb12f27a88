package server

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// detectHandler locates plate corner points in an uploaded image.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, status, err := s.readImageUpload(w, r)
	if err != nil {
		plateRequestsTotal.WithLabelValues("detect", "error").Inc()
		s.writeErrorResponse(w, err.Error(), status)
		return
	}

	pts, err := s.pipeline.Detector().Detect(img)
	if err != nil {
		plateRequestsTotal.WithLabelValues("detect", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Detection failed: %v", err), http.StatusInternalServerError)
		return
	}

	result := &DetectResult{Found: pts != nil}
	for _, p := range pts {
		result.Points = append(result.Points, []float64{p.X, p.Y})
	}
	plateRequestsTotal.WithLabelValues("detect", "success").Inc()
	s.writeJSON(w, DetectResponse{Success: true, Result: result})
}

// processHandler rectifies and recognizes one plate from an uploaded image.
// Corner points come from the "points" form field when present, otherwise
// from the detector.
func (s *Server) processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, status, err := s.readImageUpload(w, r)
	if err != nil {
		plateRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, err.Error(), status)
		return
	}

	opts, err := parsePlateOptions(r)
	if err != nil {
		plateRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	pts, err := s.resolvePoints(r, img)
	if err != nil {
		plateRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if pts == nil {
		plateRequestsTotal.WithLabelValues("image", "success").Inc()
		s.writeJSON(w, PlateResponse{Success: true, Result: &PlateResult{Text: ""}})
		return
	}

	start := time.Now()
	res, err := s.pipeline.ProcessPlate(r.Context(), img, pts, opts)
	if err != nil {
		plateRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Plate processing failed: %v", err), http.StatusInternalServerError)
		return
	}
	plateProcessingDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	plateRequestsTotal.WithLabelValues("image", "success").Inc()

	s.writeJSON(w, PlateResponse{Success: true, Result: toPlateJSON(res)})
}

// readImageUpload parses the multipart form and decodes the "image" file.
func (s *Server) readImageUpload(w http.ResponseWriter, r *http.Request) (image.Image, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("failed to parse form data")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("no image file provided")
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large")
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to read image data")
	}

	img, err := utils.DecodeImageBytes(data)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid image format")
	}
	return img, http.StatusOK, nil
}

// resolvePoints returns the corner points for processing: the client's
// "points" field when present, else the detector's best candidate. A nil
// result with nil error means no plate was found.
func (s *Server) resolvePoints(r *http.Request, img image.Image) ([]utils.Point, error) {
	raw := r.FormValue("points")
	if raw == "" {
		pts, err := s.pipeline.Detector().Detect(img)
		if err != nil {
			return nil, fmt.Errorf("detection failed: %w", err)
		}
		return pts, nil
	}

	var coords [][]float64
	if err := json.Unmarshal([]byte(raw), &coords); err != nil {
		return nil, fmt.Errorf("invalid points field: %w", err)
	}
	pts, err := utils.PointsFromFloats(coords)
	if err != nil {
		return nil, fmt.Errorf("invalid points field: %w", err)
	}
	return pts, nil
}

// parsePlateOptions reads the tuning form fields, leaving defaults for any
// that are absent.
func parsePlateOptions(r *http.Request) (pipeline.PlateOptions, error) {
	opts := pipeline.DefaultPlateOptions()

	if v := r.FormValue("width_scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid width_scale: %w", err)
		}
		opts.WidthScale = f
	}
	if v := r.FormValue("aspect_ratio"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid aspect_ratio: %w", err)
		}
		opts.AspectRatio = f
	}
	if v := r.FormValue("rotation"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid rotation: %w", err)
		}
		opts.RotationDegrees = f
	}
	if v := r.FormValue("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("invalid threshold: %w", err)
		}
		opts.Threshold = n
	}
	if v := r.FormValue("morph_op"); v != "" {
		opts.MorphOp = v
	}
	if v := r.FormValue("kernel_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("invalid kernel_size: %w", err)
		}
		opts.KernelSize = n
	}

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

// toPlateJSON converts a pipeline result to its response shape.
func toPlateJSON(res *pipeline.PlateResult) *PlateResult {
	out := &PlateResult{
		Text:       res.Text,
		Candidates: res.Candidates,
	}
	if blob, err := utils.JPEGDataURL(res.Rectified); err == nil {
		out.Rectified = blob
	}
	if res.Enhanced != nil {
		if blob, err := utils.JPEGDataURL(res.Enhanced); err == nil {
			out.Enhanced = blob
		}
	}
	out.Processing.RectifyMs = res.Processing.RectifyNs / int64(time.Millisecond)
	out.Processing.RecognizeMs = res.Processing.RecognizeNs / int64(time.Millisecond)
	out.Processing.EnhanceMs = res.Processing.EnhanceNs / int64(time.Millisecond)
	out.Processing.TotalMs = res.Processing.TotalNs / int64(time.Millisecond)
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding response: %v\n", err)
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := PlateResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Log error, but can't send another response
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}
