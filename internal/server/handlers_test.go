package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/platewarp/internal/detect"
	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/pipeline"
	"github.com/MeKo-Tech/platewarp/internal/testutil"
	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// fakeDetector returns canned corner points.
type fakeDetector struct {
	pts []utils.Point
	err error
}

func (d *fakeDetector) Detect(img image.Image) ([]utils.Point, error) {
	return d.pts, d.err
}

func (d *fakeDetector) Close() error { return nil }

// fakePipeline implements pipelineInterface with canned results.
type fakePipeline struct {
	detector detect.Detector
	result   *pipeline.PlateResult
	err      error
	gotPts   []utils.Point
	gotOpts  pipeline.PlateOptions
}

func (p *fakePipeline) ProcessPlate(_ context.Context, _ image.Image,
	pts []utils.Point, opts pipeline.PlateOptions,
) (*pipeline.PlateResult, error) {
	p.gotPts = pts
	p.gotOpts = opts
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func (p *fakePipeline) Detector() detect.Detector { return p.detector }
func (p *fakePipeline) Close() error              { return nil }

func defaultPlateResult() *pipeline.PlateResult {
	res := &pipeline.PlateResult{
		Rectified: testutil.SolidImage(40, 20, color.White),
		Enhanced:  testutil.GradientGray(40, 20),
		Text:      "AB12CD",
		Candidates: []ocr.Candidate{
			{Text: "AB12CD", Confidence: 0.92},
		},
	}
	return res
}

func newTestServer(p pipelineInterface) *Server {
	return &Server{
		pipeline:    p,
		corsOrigin:  "*",
		maxUploadMB: 10,
		timeoutSec:  30,
		numFrames:   10,
		widthScale:  2.0,
	}
}

// multipartImage builds a multipart body with a PNG under the "image" field
// plus any extra form fields.
func multipartImage(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("image", "plate.png")
	require.NoError(t, err)
	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	require.NoError(t, png.Encode(fw, img))

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(&fakePipeline{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.healthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakePipeline{})

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	srv.healthHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDetectHandler(t *testing.T) {
	pts := []utils.Point{{X: 1, Y: 2}, {X: 30, Y: 2}, {X: 30, Y: 12}, {X: 1, Y: 12}}
	srv := newTestServer(&fakePipeline{detector: &fakeDetector{pts: pts}})

	body, contentType := multipartImage(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Found)
	require.Len(t, resp.Result.Points, 4)
	assert.Equal(t, []float64{1, 2}, resp.Result.Points[0])
}

func TestDetectHandlerNoPlate(t *testing.T) {
	srv := newTestServer(&fakePipeline{detector: &fakeDetector{}})

	body, contentType := multipartImage(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.False(t, resp.Result.Found)
	assert.Empty(t, resp.Result.Points)
}

func TestDetectHandlerNoImage(t *testing.T) {
	srv := newTestServer(&fakePipeline{detector: &fakeDetector{}})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/detect", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.detectHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessHandlerWithPoints(t *testing.T) {
	fp := &fakePipeline{result: defaultPlateResult()}
	srv := newTestServer(fp)

	body, contentType := multipartImage(t, map[string]string{
		"points":      "[[0,0],[200,0],[200,60],[0,60]]",
		"width_scale": "2.0",
		"threshold":   "128",
	})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.processHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "AB12CD", resp.Result.Text)
	assert.True(t, strings.HasPrefix(resp.Result.Rectified, "data:image/jpeg;base64,"))
	assert.True(t, strings.HasPrefix(resp.Result.Enhanced, "data:image/jpeg;base64,"))
	require.Len(t, resp.Result.Candidates, 1)

	// The client's points and tuning reached the pipeline.
	require.Len(t, fp.gotPts, 4)
	assert.InDelta(t, 2.0, fp.gotOpts.WidthScale, 1e-12)
	assert.Equal(t, 128, fp.gotOpts.Threshold)
}

func TestProcessHandlerDetectorFallback(t *testing.T) {
	pts := []utils.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 5}, {X: 0, Y: 5}}
	fp := &fakePipeline{
		detector: &fakeDetector{pts: pts},
		result:   defaultPlateResult(),
	}
	srv := newTestServer(fp)

	body, contentType := multipartImage(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.processHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pts, fp.gotPts)
}

func TestProcessHandlerNoPlateFound(t *testing.T) {
	srv := newTestServer(&fakePipeline{detector: &fakeDetector{}})

	body, contentType := multipartImage(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.processHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PlateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Empty(t, resp.Result.Text)
}

func TestProcessHandlerInvalidPoints(t *testing.T) {
	srv := newTestServer(&fakePipeline{result: defaultPlateResult()})

	body, contentType := multipartImage(t, map[string]string{"points": "not json"})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.processHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessHandlerInvalidOptions(t *testing.T) {
	srv := newTestServer(&fakePipeline{result: defaultPlateResult()})

	body, contentType := multipartImage(t, map[string]string{"threshold": "chunky"})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.processHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessHandlerPipelineError(t *testing.T) {
	srv := newTestServer(&fakePipeline{err: errors.New("warp failed")})

	body, contentType := multipartImage(t, map[string]string{
		"points": "[[0,0],[200,0],[200,60],[0,60]]",
	})
	req := httptest.NewRequest(http.MethodPost, "/process", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.processHandler(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp PlateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "warp failed")
}

func TestProcessVideoHandlerNoFile(t *testing.T) {
	srv := newTestServer(&fakePipeline{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/process/video", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.processVideoHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessVideoHandlerInvalidParams(t *testing.T) {
	srv := newTestServer(&fakePipeline{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("video", "clip.mp4")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not a real video"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("num_frames", "zero"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/process/video", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.processVideoHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	srv := newTestServer(&fakePipeline{})
	srv.corsOrigin = "https://example.com"

	handler := srv.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	srv := newTestServer(&fakePipeline{})

	called := false
	handler := srv.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/process", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestSetupRoutes(t *testing.T) {
	srv := newTestServer(&fakePipeline{})

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
