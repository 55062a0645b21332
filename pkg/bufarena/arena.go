// Package bufarena hands out fixed-size chunks carved from one contiguous
// allocation. Chunks are reused through a free stack before the arena
// advances into never-used space.
package bufarena

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrExhausted 没有空闲的chunk
	ErrExhausted = errors.New("bufarena: exhausted")
	// ErrNotHeld 释放了一个不属于本arena或未被持有的chunk
	ErrNotHeld = errors.New("bufarena: chunk not held")
)

// Chunk is one chunkSize window of the arena.
type Chunk struct {
	offset int
	buf    []byte
}

// Offset is the chunk's byte offset in the arena. Always a multiple of the chunk size.
func (c Chunk) Offset() int {
	return c.offset
}

// Bytes returns the chunk memory. Its capacity is capped so appends never
// spill into the neighbouring chunk.
func (c Chunk) Bytes() []byte {
	return c.buf
}

// Stats arena使用情况
type Stats struct {
	Capacity  int `json:"capacity"`   // chunk总数
	ChunkSize int `json:"chunk_size"` // 每个chunk的字节数
	InUse     int `json:"in_use"`     // 已借出的chunk数
	Free      int `json:"free"`       // 空闲栈中的chunk数
	Untouched int `json:"untouched"`  // 从未借出过的chunk数
}

type Arena struct {
	mu        sync.Mutex
	buf       []byte
	chunkSize int
	chunks    int
	free      []int  // 空闲chunk的offset，后进先出
	next      int    // 下一个从未使用过的offset
	held      []bool // 按chunk下标记录是否已借出
	inUse     int
}

// New 分配 chunks*chunkSize 字节的arena
func New(chunks, chunkSize int) *Arena {
	if chunks < 0 || chunkSize <= 0 {
		panic(fmt.Sprintf("bufarena: invalid size chunks=%d chunkSize=%d", chunks, chunkSize))
	}
	return &Arena{
		buf:       make([]byte, chunks*chunkSize),
		chunkSize: chunkSize,
		chunks:    chunks,
		free:      make([]int, 0, chunks),
		held:      make([]bool, chunks),
	}
}

// Acquire 优先复用空闲栈中的chunk，其次从未使用区域切出新的chunk
func (a *Arena) Acquire() (Chunk, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var offset int
	if n := len(a.free); n > 0 {
		offset = a.free[n-1]
		a.free = a.free[:n-1]
	} else if a.next+a.chunkSize <= len(a.buf) {
		offset = a.next
		a.next += a.chunkSize
	} else {
		return Chunk{}, ErrExhausted
	}
	a.held[offset/a.chunkSize] = true
	a.inUse++
	return a.chunkAt(offset), nil
}

// Release 归还chunk，chunk内容不做清零
func (a *Arena) Release(c Chunk) error {
	if c.buf == nil || c.offset < 0 || c.offset%a.chunkSize != 0 || c.offset >= len(a.buf) {
		return ErrNotHeld
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := c.offset / a.chunkSize
	if !a.held[idx] {
		return ErrNotHeld
	}
	a.held[idx] = false
	a.inUse--
	a.free = append(a.free, c.offset)
	return nil
}

func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		Capacity:  a.chunks,
		ChunkSize: a.chunkSize,
		InUse:     a.inUse,
		Free:      len(a.free),
		Untouched: (len(a.buf) - a.next) / a.chunkSize,
	}
}

func (a *Arena) chunkAt(offset int) Chunk {
	end := offset + a.chunkSize
	return Chunk{offset: offset, buf: a.buf[offset:end:end]}
}
