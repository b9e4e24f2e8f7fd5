package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRGBBuffer(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	img.Set(1, 1, color.NRGBA{R: 7, G: 8, B: 9, A: 255})

	pix, w, h, ch, stride := RGBBuffer(img)
	assert.Equal(t, []int{2, 2, 3, 6}, []int{w, h, ch, stride})
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0, 0, 7, 8, 9}, pix)
}

func TestRGBBuffer_OffsetBounds(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 12, 11))
	img.Set(11, 10, color.RGBA{R: 200, A: 255})

	pix, w, h, _, _ := RGBBuffer(img)
	assert.Equal(t, 2, w)
	assert.Equal(t, 1, h)
	assert.Equal(t, []byte{0, 0, 0, 200, 0, 0}, pix)
}

func TestBufferImage(t *testing.T) {
	pix := []byte{1, 2, 3, 4, 5, 6, 0xEE, 0xEE} // 2x1 RGB with stride padding
	img, err := bufferImage(pix, 2, 1, 3, 8)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 4, G: 5, B: 6, A: 255}, img.NRGBAAt(1, 0))

	gray, err := bufferImage([]byte{9}, 1, 1, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 9, G: 9, B: 9, A: 255}, gray.NRGBAAt(0, 0))

	_, err = bufferImage(pix, 3, 1, 3, 8)
	require.ErrorContains(t, err, "too small")
	_, err = bufferImage(pix, 2, 1, 2, 8)
	require.ErrorContains(t, err, "channel")
	_, err = bufferImage(nil, 0, 0, 3, 0)
	require.Error(t, err)
}

func TestFrameRegion(t *testing.T) {
	var f frame
	_, err := f.current()
	require.ErrorIs(t, err, ErrNoImage)
	require.ErrorIs(t, f.setRegion(utilsRect(0, 0, 1, 1)), ErrNoImage)

	pix, w, h, ch, stride := RGBBuffer(image.NewRGBA(image.Rect(0, 0, 40, 20)))
	require.NoError(t, f.set(pix, w, h, ch, stride))

	require.NoError(t, f.setRegion(utilsRect(30, 10, 20, 20)))
	cur, err := f.current()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 10), cur.Bounds())

	require.Error(t, f.setRegion(utilsRect(50, 0, 5, 5)))

	// a new image clears the region
	require.NoError(t, f.set(pix, w, h, ch, stride))
	cur, err = f.current()
	require.NoError(t, err)
	assert.Equal(t, 40, cur.Bounds().Dx())
}
