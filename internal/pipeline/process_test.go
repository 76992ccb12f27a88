package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/platewarp/internal/ocr"
	"github.com/MeKo-Tech/platewarp/internal/testutil"
	"github.com/MeKo-Tech/platewarp/internal/utils"
)

// fakeEngine returns a canned raw result, or an error.
type fakeEngine struct {
	raw    ocr.RawResult
	err    error
	calls  int
	inputs []image.Image
}

func (e *fakeEngine) Recognize(img image.Image) (ocr.RawResult, error) {
	e.calls++
	e.inputs = append(e.inputs, img)
	if e.err != nil {
		return ocr.RawResult{}, e.err
	}
	return e.raw, nil
}

func (e *fakeEngine) Close() error { return nil }

func plateQuad() []utils.Point {
	return []utils.Point{
		{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 60}, {X: 0, Y: 60},
	}
}

func buildTestPipeline(t *testing.T, engine ocr.Engine) *Pipeline {
	t.Helper()
	pl, err := NewBuilder().WithEngine(engine).Build()
	require.NoError(t, err)
	return pl
}

func TestProcessPlateJoinsAcceptedText(t *testing.T) {
	engine := &fakeEngine{raw: ocr.RawResult{
		Kind: ocr.KindBatch,
		Batch: ocr.Batch{
			Texts:  []string{"AB12", "XX", "CD"},
			Scores: []float64{0.93, 0, 0.71},
		},
	}}
	pl := buildTestPipeline(t, engine)

	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	res, err := pl.ProcessPlate(context.Background(), img, plateQuad(), DefaultPlateOptions())
	require.NoError(t, err)

	assert.Equal(t, "AB12 CD", res.Text)
	require.Len(t, res.Candidates, 3)
	assert.Equal(t, 1, engine.calls)
}

func TestProcessPlateRecognizerSeesPaddedImage(t *testing.T) {
	engine := &fakeEngine{raw: ocr.RawResult{
		Kind:  ocr.KindLines,
		Lines: []ocr.Line{{Text: "AB12CD", Confidence: 1}},
	}}
	pl := buildTestPipeline(t, engine)

	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	res, err := pl.ProcessPlate(context.Background(), img, plateQuad(), DefaultPlateOptions())
	require.NoError(t, err)

	// Quad is 200x60; the default 20px border puts both views at 240x100.
	require.Len(t, engine.inputs, 1)
	assert.Equal(t, 240, engine.inputs[0].Bounds().Dx())
	assert.Equal(t, 100, engine.inputs[0].Bounds().Dy())
	assert.Equal(t, 240, res.Rectified.Bounds().Dx())
	assert.Equal(t, 100, res.Rectified.Bounds().Dy())
	require.NotNil(t, res.Enhanced)
}

func TestProcessPlateWidthScaleGrowsOutput(t *testing.T) {
	engine := &fakeEngine{raw: ocr.RawResult{}}
	pl := buildTestPipeline(t, engine)

	opts := DefaultPlateOptions()
	opts.WidthScale = 2.0

	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	res, err := pl.ProcessPlate(context.Background(), img, plateQuad(), opts)
	require.NoError(t, err)

	// 200x60 quad doubled, plus the 20px border on each side.
	assert.Equal(t, 400+40, res.Rectified.Bounds().Dx())
	assert.Equal(t, 120+40, res.Rectified.Bounds().Dy())
}

func TestProcessPlateRecognizerFailureDegrades(t *testing.T) {
	engine := &fakeEngine{err: errors.New("recognizer unavailable")}
	pl := buildTestPipeline(t, engine)

	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	res, err := pl.ProcessPlate(context.Background(), img, plateQuad(), DefaultPlateOptions())
	require.NoError(t, err)

	assert.Empty(t, res.Text)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
	assert.NotNil(t, res.Rectified)
	assert.NotNil(t, res.Enhanced)
}

func TestProcessPlateInvalidPoints(t *testing.T) {
	pl := buildTestPipeline(t, &fakeEngine{})

	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	_, err := pl.ProcessPlate(context.Background(), img, []utils.Point{{X: 1, Y: 2}}, DefaultPlateOptions())
	require.Error(t, err)
}

func TestProcessPlateInvalidOptions(t *testing.T) {
	pl := buildTestPipeline(t, &fakeEngine{})

	opts := DefaultPlateOptions()
	opts.Threshold = 400

	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	_, err := pl.ProcessPlate(context.Background(), img, plateQuad(), opts)
	require.Error(t, err)
}

func TestProcessPlateNilImage(t *testing.T) {
	pl := buildTestPipeline(t, &fakeEngine{})
	_, err := pl.ProcessPlate(context.Background(), nil, plateQuad(), DefaultPlateOptions())
	require.Error(t, err)
}

func TestProcessPlateCancelledContext(t *testing.T) {
	pl := buildTestPipeline(t, &fakeEngine{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img := testutil.GeneratePlateImage(testutil.DefaultPlateImageConfig())
	_, err := pl.ProcessPlate(ctx, img, plateQuad(), DefaultPlateOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlateOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultPlateOptions().Validate())

	opts := DefaultPlateOptions()
	opts.WidthScale = 0
	require.Error(t, opts.Validate())

	opts = DefaultPlateOptions()
	opts.MorphOp = "blur"
	require.Error(t, opts.Validate())

	opts = DefaultPlateOptions()
	opts.KernelSize = 0
	require.Error(t, opts.Validate())
}

func TestBuilderDefaults(t *testing.T) {
	pl, err := NewBuilder().WithEngine(&fakeEngine{}).Build()
	require.NoError(t, err)
	require.NotNil(t, pl.Detector())
	require.NoError(t, pl.Close())
}
