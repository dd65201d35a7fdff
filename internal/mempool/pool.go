// Package mempool recycles slice buffers used on the recognition hot path.
package mempool

import "sync"

const step = 1024

// sizeClass rounds n up to the next multiple of 1024.
func sizeClass(n int) int {
	if n <= step {
		return step
	}
	return (n + step - 1) / step * step
}

// Pool hands out []T buffers bucketed by size class.
type Pool[T any] struct {
	classes sync.Map // int -> *sync.Pool
}

func (p *Pool[T]) class(cls int) *sync.Pool {
	v, _ := p.classes.LoadOrStore(cls, &sync.Pool{New: func() any {
		buf := make([]T, cls)
		return &buf
	}})
	return v.(*sync.Pool)
}

// Get returns a zeroed buffer of length n. Return it with Put.
func (p *Pool[T]) Get(n int) []T {
	cls := sizeClass(n)
	bp := p.class(cls).Get().(*[]T)
	buf := *bp
	if cap(buf) < cls {
		buf = make([]T, cls)
	}
	buf = buf[:n]
	clear(buf)
	return buf
}

// Put returns buf to the pool. Nil slices are ignored.
func (p *Pool[T]) Put(buf []T) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	if cap(buf) < cls {
		// Foreign slices with an odd capacity would poison the bucket.
		return
	}
	buf = buf[:cap(buf)]
	p.class(cls).Put(&buf)
}

var (
	float32s Pool[float32]
	bools    Pool[bool]
)

// GetFloat32 returns a zeroed []float32 of length n from the shared pool.
func GetFloat32(n int) []float32 { return float32s.Get(n) }

// PutFloat32 returns a buffer obtained from GetFloat32.
func PutFloat32(buf []float32) { float32s.Put(buf) }

// GetBool returns a zeroed []bool of length n from the shared pool.
func GetBool(n int) []bool { return bools.Get(n) }

// PutBool returns a buffer obtained from GetBool.
func PutBool(buf []bool) { bools.Put(buf) }
