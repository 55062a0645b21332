package bufarena

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireUntilExhausted(t *testing.T) {
	a := New(4, 16)

	seen := map[int]bool{}
	for i := 0; i < 4; i++ {
		c, err := a.Acquire()
		require.NoError(t, err)
		assert.Equal(t, 0, c.Offset()%16)
		assert.Less(t, c.Offset(), 4*16)
		assert.False(t, seen[c.Offset()])
		seen[c.Offset()] = true
		assert.Len(t, c.Bytes(), 16)
		assert.Equal(t, 16, cap(c.Bytes()))
	}

	_, err := a.Acquire()
	assert.True(t, errors.Is(err, ErrExhausted))
	assert.Equal(t, Stats{Capacity: 4, ChunkSize: 16, InUse: 4}, a.Stats())
}

func TestReleaseIsReusedFirst(t *testing.T) {
	a := New(4, 8)
	c1, err := a.Acquire()
	require.NoError(t, err)
	c2, err := a.Acquire()
	require.NoError(t, err)

	require.NoError(t, a.Release(c1))
	c3, err := a.Acquire()
	require.NoError(t, err)
	assert.Equal(t, c1.Offset(), c3.Offset())

	require.NoError(t, a.Release(c2))
	st := a.Stats()
	assert.Equal(t, 1, st.InUse)
	assert.Equal(t, 1, st.Free)
	assert.Equal(t, 2, st.Untouched)
}

func TestDoubleRelease(t *testing.T) {
	a := New(2, 8)
	c, err := a.Acquire()
	require.NoError(t, err)

	require.NoError(t, a.Release(c))
	assert.True(t, errors.Is(a.Release(c), ErrNotHeld))
	assert.True(t, errors.Is(a.Release(Chunk{}), ErrNotHeld))
	assert.Equal(t, 1, a.Stats().Free)
}

func TestChunksDoNotOverlap(t *testing.T) {
	a := New(3, 4)
	chunks := make([]Chunk, 0, 3)
	for i := 0; i < 3; i++ {
		c, err := a.Acquire()
		require.NoError(t, err)
		for j := range c.Bytes() {
			c.Bytes()[j] = byte(i + 1)
		}
		chunks = append(chunks, c)
	}
	for i, c := range chunks {
		for _, b := range c.Bytes() {
			assert.Equal(t, byte(i+1), b)
		}
	}

	// append 不会写入相邻chunk
	grown := append(chunks[0].Bytes(), 0xff)
	grown[0] = 0xee
	assert.Equal(t, byte(1), chunks[0].Bytes()[0])
	assert.Equal(t, byte(2), chunks[1].Bytes()[0])
}

func TestConcurrentAcquireRelease(t *testing.T) {
	a := New(64, 32)

	var wg sync.WaitGroup
	var mu sync.Mutex
	holders := map[int]int{}
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c, err := a.Acquire()
				if err != nil {
					continue
				}
				mu.Lock()
				_, taken := holders[c.Offset()]
				holders[c.Offset()] = g
				mu.Unlock()
				assert.False(t, taken)

				mu.Lock()
				delete(holders, c.Offset())
				mu.Unlock()
				assert.NoError(t, a.Release(c))
			}
		}(g)
	}
	wg.Wait()
	assert.Equal(t, 0, a.Stats().InUse)
}

func TestZeroChunks(t *testing.T) {
	a := New(0, 4096)
	_, err := a.Acquire()
	assert.True(t, errors.Is(err, ErrExhausted))
}
