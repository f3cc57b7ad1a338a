// Package bufpool provides size-classed scratch buffers.
//
// Attribute payloads are mostly small, so the default classes are 1KiB,
// 16KiB and 256KiB. Requests above the largest class are allocated
// directly and never pooled.
//
//	buf := bufpool.Get(n)
//	defer bufpool.Put(buf)
package bufpool

import (
	"slices"
	"sync"
)

// DefaultClasses are the buffer sizes of the package-level pool.
var DefaultClasses = []int{1 << 10, 16 << 10, 256 << 10}

// Pool hands out byte slices from a fixed set of size classes.
type Pool struct {
	classes []int
	pools   []sync.Pool
}

// NewPool creates a pool with the given class sizes. Empty classes select
// DefaultClasses; non-positive sizes are ignored.
func NewPool(classes ...int) *Pool {
	if len(classes) == 0 {
		classes = DefaultClasses
	}
	sizes := make([]int, 0, len(classes))
	for _, c := range classes {
		if c > 0 {
			sizes = append(sizes, c)
		}
	}
	slices.Sort(sizes)
	sizes = slices.Compact(sizes)

	p := &Pool{classes: sizes, pools: make([]sync.Pool, len(sizes))}
	for i, size := range sizes {
		p.pools[i].New = func() any {
			buf := make([]byte, size)
			return &buf
		}
	}
	return p
}

// Get returns a slice of length size. Its capacity is the smallest class
// that fits, or exactly size when no class does.
func (p *Pool) Get(size int) []byte {
	if size < 0 {
		size = 0
	}
	i := p.class(size)
	if i < 0 {
		return make([]byte, size)
	}
	buf := *p.pools[i].Get().(*[]byte)
	return buf[:size]
}

// Put returns buf to its class. Slices whose capacity is not a class size
// are dropped.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	i, ok := slices.BinarySearch(p.classes, cap(buf))
	if !ok {
		return
	}
	full := buf[:cap(buf)]
	p.pools[i].Put(&full)
}

// class returns the index of the smallest class holding size, or -1.
func (p *Pool) class(size int) int {
	i, _ := slices.BinarySearch(p.classes, size)
	if i == len(p.classes) {
		return -1
	}
	return i
}

var defaultPool = NewPool()

// Get returns a buffer from the default pool.
func Get(size int) []byte { return defaultPool.Get(size) }

// Put returns a buffer to the default pool.
func Put(buf []byte) { defaultPool.Put(buf) }
