package benchmark

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/MeKo-Tech/eastocr/internal/pipeline"
	"github.com/MeKo-Tech/eastocr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	suite.Add("sleep", func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	calls := 0
	suite.Add("fails", func() error {
		calls++
		if calls == 3 {
			return errors.New("third call fails")
		}
		return nil
	})
	assert.Equal(t, []string{"sleep", "fails"}, suite.Names())

	res := suite.Run("sleep", 5)
	require.NoError(t, res.Error)
	assert.Equal(t, 5, res.Iterations)
	assert.GreaterOrEqual(t, res.Min, time.Millisecond)
	assert.LessOrEqual(t, res.Min, res.Mean)
	assert.LessOrEqual(t, res.Mean, res.Max)
	assert.LessOrEqual(t, res.P95, res.Max)
	assert.GreaterOrEqual(t, res.Total, 5*time.Millisecond)

	res = suite.Run("fails", 10)
	require.Error(t, res.Error)
	assert.Equal(t, 2, res.Iterations)
	assert.Contains(t, res.String(), "ERROR - third call fails")

	res = suite.Run("missing", 1)
	require.Error(t, res.Error)
	assert.Contains(t, res.Error.Error(), "not found")
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("a", func() error { return nil })
	suite.Add("b", func() error { return nil })

	results := suite.RunAll(0)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].Iterations)
	assert.Equal(t, results, suite.Results())

	var buf bytes.Buffer
	suite.PrintResults(&buf)
	assert.Contains(t, buf.String(), "a: 1 iterations")
	assert.Contains(t, buf.String(), "b: 1 iterations")
}

func TestSummarize(t *testing.T) {
	samples := make([]time.Duration, 0, 20)
	for i := 20; i >= 1; i-- {
		samples = append(samples, time.Duration(i)*time.Millisecond)
	}
	var res Result
	summarize(&res, samples)
	assert.Equal(t, time.Millisecond, res.Min)
	assert.Equal(t, 20*time.Millisecond, res.Max)
	assert.Equal(t, 10500*time.Microsecond, res.Mean)
	assert.Equal(t, 19*time.Millisecond, res.P95)

	var empty Result
	summarize(&empty, nil)
	assert.Zero(t, empty.Mean)
}

func TestPipelineSuite(t *testing.T) {
	scores, geometry := testutil.EASTTensors(80, 80,
		testutil.EASTCell{X: 20, Y: 10, Score: 0.9, Top: 10, Right: 8, Bottom: 10, Left: 8})
	det := &testutil.FakeDetector{Scores: scores, Geometry: geometry}
	eng := &testutil.FakeOCR{Text: "x"}
	p, err := pipeline.NewBuilder().WithDetectorEngine(det).WithOCREngine(eng).Build()
	require.NoError(t, err)
	img := testutil.SolidImage(320, 320, color.White)

	suite, err := PipelineSuite(context.Background(), p, img, false)
	require.NoError(t, err)
	assert.Equal(t, []string{StageDetect}, suite.Names())

	suite, err = PipelineSuite(context.Background(), p, img, true)
	require.NoError(t, err)
	assert.Equal(t, []string{StageDetect, StageWhole, StageRegions}, suite.Names())

	for _, r := range suite.RunAll(2) {
		require.NoError(t, r.Error, r.Name)
		assert.Equal(t, 2, r.Iterations)
	}
	assert.Equal(t, 1, det.Loads)
	assert.Equal(t, 4, eng.Recognized)
}

func TestPipelineSuite_WarmUpFails(t *testing.T) {
	det := &testutil.FakeDetector{LoadErr: errors.New("no model")}
	p, err := pipeline.NewBuilder().WithDetectorEngine(det).WithOCREngine(&testutil.FakeOCR{}).Build()
	require.NoError(t, err)

	_, err = PipelineSuite(context.Background(), p, testutil.SolidImage(64, 64, color.White), true)
	require.ErrorIs(t, err, pipeline.ErrInferenceUnavailable)
}
