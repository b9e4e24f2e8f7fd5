package detector

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/eastocr/internal/testutil"
	"github.com/MeKo-Tech/eastocr/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionsJSON(t *testing.T) {
	regs := []DetectedRegion{
		{Rect: utils.Rect{X: 72, Y: 30, Width: 17, Height: 21}, Index: 0, Confidence: 0.9},
		{Rect: utils.Rect{X: 1, Y: 2, Width: 3, Height: 4}, Index: 2, Confidence: 0.5},
	}
	data, err := RegionsToJSON(regs, 320, 240)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"width": 17`)
	assert.Contains(t, string(data), `"index": 2`)

	parsed, err := RegionsFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 320, parsed.Width)
	assert.Equal(t, regs, parsed.Regions)

	empty, err := RegionsToJSON(nil, 10, 10)
	require.NoError(t, err)
	assert.Contains(t, string(empty), `"regions": []`)
}

func TestValidateRegions(t *testing.T) {
	ok := []DetectedRegion{{Rect: utils.Rect{X: 0, Y: 0, Width: 10, Height: 10}}}
	require.NoError(t, ValidateRegions(ok, 10, 10))

	require.Error(t, ValidateRegions(ok, 0, 10))
	require.ErrorContains(t, ValidateRegions(ok, 9, 10), "out of bounds")
	require.ErrorContains(t,
		ValidateRegions([]DetectedRegion{{Rect: utils.Rect{Width: 0, Height: 3}}}, 10, 10),
		"non-positive size")
}

func TestRenderRegions(t *testing.T) {
	img := testutil.SolidImage(100, 60, color.White)
	regs := []DetectedRegion{{Rect: utils.Rect{X: 20, Y: 20, Width: 30, Height: 15}, Index: 3}}

	out := RenderRegions(img, regs, nil)
	assert.Equal(t, image.Rect(0, 0, 100, 60), out.Bounds())
	assert.Equal(t, DefaultOverlayColor, out.RGBAAt(20, 20))
	assert.Equal(t, DefaultOverlayColor, out.RGBAAt(49, 34))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(30, 27))

	// label pixels sit above the box
	labelled := false
	for y := 0; y < 20 && !labelled; y++ {
		for x := 20; x < 30; x++ {
			if out.RGBAAt(x, y) == DefaultOverlayColor {
				labelled = true
				break
			}
		}
	}
	assert.True(t, labelled)

	// source untouched
	r, g, b, _ := img.At(20, 20).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{r, g, b})
}
