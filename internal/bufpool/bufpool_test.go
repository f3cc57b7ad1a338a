package bufpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	p := NewPool(64, 1024)

	t.Run("SmallestFittingClass", func(t *testing.T) {
		buf := p.Get(10)
		assert.Len(t, buf, 10)
		assert.Equal(t, 64, cap(buf))

		buf = p.Get(64)
		assert.Equal(t, 64, cap(buf))

		buf = p.Get(65)
		assert.Equal(t, 1024, cap(buf))
	})

	t.Run("Oversized", func(t *testing.T) {
		buf := p.Get(4096)
		assert.Len(t, buf, 4096)
		assert.Equal(t, 4096, cap(buf))
	})

	t.Run("ZeroAndNegative", func(t *testing.T) {
		assert.Len(t, p.Get(0), 0)
		assert.Len(t, p.Get(-5), 0)
	})
}

func TestPutReuses(t *testing.T) {
	p := NewPool(64)
	buf := p.Get(64)
	buf[0] = 0xAB
	p.Put(buf[:3])

	// sync.Pool may drop entries at any time, so only assert the shape.
	again := p.Get(8)
	require.Len(t, again, 8)
	assert.Equal(t, 64, cap(again))
}

func TestPutIgnoresForeignBuffers(t *testing.T) {
	p := NewPool(64)
	assert.NotPanics(t, func() {
		p.Put(nil)
		p.Put(make([]byte, 10))
		p.Put(make([]byte, 4096))
	})
}

func TestNewPoolNormalizesClasses(t *testing.T) {
	p := NewPool(1024, -1, 64, 64, 0)
	assert.Equal(t, []int{64, 1024}, p.classes)

	d := NewPool()
	assert.Equal(t, DefaultClasses, d.classes)
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				buf := Get(n*100 + j)
				buf[len(buf)-1] = byte(j)
				Put(buf)
			}
		}(i + 1)
	}
	wg.Wait()
}
