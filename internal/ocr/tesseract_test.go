//go:build tesseract

package ocr

import (
	"image/color"
	"strings"
	"testing"

	"github.com/MeKo-Tech/eastocr/internal/models"
	"github.com/MeKo-Tech/eastocr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTesseract_RecognizeRegion(t *testing.T) {
	dir := models.GetTessdataDir("", testutil.GetModelsDir(t))
	testutil.SkipUnlessFile(t, models.TrainedDataPath(dir, "eng"), "eng traineddata")

	eng := NewTesseract(TesseractOptions{PageSegMode: 7})
	defer func() { require.NoError(t, eng.Close()) }()

	_, err := eng.Recognize()
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, eng.Init(dir, "eng"))
	assert.Equal(t, []string{"eng"}, eng.LoadedLanguages())

	cfg := testutil.DefaultTextImageConfig()
	cfg.Lines = []string{"HELLO"}
	cfg.Background, cfg.Foreground = color.White, color.Black
	img := testutil.GenerateTextImage(cfg)

	require.NoError(t, eng.SetImage(RGBBuffer(img)))
	require.NoError(t, eng.SetRegion(utilsRect(100, 90, 120, 60)))
	text, err := eng.Recognize()
	require.NoError(t, err)
	assert.Contains(t, strings.ToUpper(text), "HELLO")
}

func TestTesseract_KeepsLineTerminators(t *testing.T) {
	dir := models.GetTessdataDir("", testutil.GetModelsDir(t))
	testutil.SkipUnlessFile(t, models.TrainedDataPath(dir, "eng"), "eng traineddata")

	eng := NewTesseract(TesseractOptions{PageSegMode: 7})
	defer func() { require.NoError(t, eng.Close()) }()
	require.NoError(t, eng.Init(dir, "eng"))

	cfg := testutil.DefaultTextImageConfig()
	cfg.Lines = []string{"HELLO"}
	cfg.Background, cfg.Foreground = color.White, color.Black
	require.NoError(t, eng.SetImage(RGBBuffer(testutil.GenerateTextImage(cfg))))
	require.NoError(t, eng.SetRegion(utilsRect(100, 90, 120, 60)))

	text, err := eng.Recognize()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(text, "\n"), "text %q lost its line terminator", text)
}

func TestTesseract_InitFailsForMissingLanguage(t *testing.T) {
	dir := models.GetTessdataDir("", testutil.GetModelsDir(t))
	testutil.SkipUnlessFile(t, models.TrainedDataPath(dir, "eng"), "eng traineddata")

	eng := NewTesseract(TesseractOptions{})
	defer func() { require.NoError(t, eng.Close()) }()

	require.Error(t, eng.Init(dir, "eng+xyz"))
	assert.Empty(t, eng.LoadedLanguages())
	_, err := eng.Recognize()
	require.ErrorIs(t, err, ErrNotInitialized)

	require.Error(t, eng.Init(t.TempDir(), "eng"))
	assert.Empty(t, eng.LoadedLanguages())
}
