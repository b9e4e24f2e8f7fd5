package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{0, 1024},
		{1, 1024},
		{1024, 1024},
		{1025, 2048},
		{2048, 2048},
		{10000, 10240},
		// 320x320x3 detector blob
		{307200, 307200},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sizeClass(tt.input), "sizeClass(%d)", tt.input)
	}
}

func TestGetFloat32(t *testing.T) {
	for _, n := range []int{0, 1, 100, 1024, 5000} {
		buf := GetFloat32(n)
		assert.Len(t, buf, n)
		assert.Equal(t, sizeClass(n), cap(buf))
		PutFloat32(buf)
	}
}

func TestPutFloat32_IgnoresNilAndTiny(t *testing.T) {
	assert.NotPanics(t, func() {
		PutFloat32(nil)
		PutFloat32(make([]float32, 10))
		PutBytes(nil)
	})
}

func TestBuffersServeAfterReturn(t *testing.T) {
	buf := GetFloat32(3000)
	for i := range buf {
		buf[i] = float32(i)
	}
	PutFloat32(buf)

	// Whether or not the pool hands back the same slice, the length and
	// capacity contract holds.
	again := GetFloat32(2500)
	assert.Len(t, again, 2500)
	assert.GreaterOrEqual(t, cap(again), 3072)
}

func TestOddCapacityGoesToLowerClass(t *testing.T) {
	odd := make([]byte, 1500)
	PutBytes(odd)
	for range 4 {
		buf := GetBytes(2048)
		assert.GreaterOrEqual(t, cap(buf), 2048)
	}
}

func TestGetBytes(t *testing.T) {
	buf := GetBytes(320 * 240 * 3)
	assert.Len(t, buf, 320*240*3)
	PutBytes(buf)
}

func TestConcurrentAccess(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				n := (g*200 + i) % 9000
				f := GetFloat32(n)
				b := GetBytes(n)
				if len(f) != n || len(b) != n {
					t.Errorf("wrong length for %d", n)
				}
				PutFloat32(f)
				PutBytes(b)
			}
		}()
	}
	wg.Wait()
}
