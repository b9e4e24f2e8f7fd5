// Package mempool keeps size-classed buffer pools for the per-frame blob and
// pixel buffers.
package mempool

import "sync"

const classStep = 1024

// sizeClass rounds n up to the next multiple of 1024, minimum 1024.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	return (n + classStep - 1) / classStep * classStep
}

// pool is a set of sync.Pools keyed by size class.
type pool[T any] struct {
	classes sync.Map // int -> *sync.Pool
}

func (p *pool[T]) class(cls int) *sync.Pool {
	sp, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]T, cls) }})
	return sp.(*sync.Pool) //nolint:forcetypeassert // only *sync.Pool is stored
}

func (p *pool[T]) get(n int) []T {
	cls := sizeClass(n)
	buf, ok := p.class(cls).Get().([]T)
	if !ok || cap(buf) < cls {
		buf = make([]T, cls)
	}
	return buf[:n]
}

func (p *pool[T]) put(buf []T) {
	if cap(buf) == 0 {
		return
	}
	// A buffer only serves requests up to its own capacity.
	cls := cap(buf) / classStep * classStep
	if cls < classStep {
		return
	}
	p.class(cls).Put(buf[:cap(buf)]) //nolint:staticcheck // slices are small headers
}

var (
	floatPool pool[float32]
	bytePool  pool[byte]
)

// GetFloat32 returns a buffer of length n. Contents are not zeroed.
// Return it with PutFloat32 when done.
func GetFloat32(n int) []float32 { return floatPool.get(n) }

// PutFloat32 returns a buffer to the pool. Nil is ignored.
func PutFloat32(buf []float32) { floatPool.put(buf) }

// GetBytes returns a byte buffer of length n. Contents are not zeroed.
func GetBytes(n int) []byte { return bytePool.get(n) }

// PutBytes returns a byte buffer to the pool. Nil is ignored.
func PutBytes(buf []byte) { bytePool.put(buf) }
