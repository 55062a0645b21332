package wkframe

import (
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(frames *[][]byte) func(body []byte) error {
	return func(body []byte) error {
		*frames = append(*frames, append([]byte(nil), body...))
		return nil
	}
}

func TestAssemblerWholeFrame(t *testing.T) {
	asm := newFrameAssembler(0)
	defer asm.release()

	var frames [][]byte
	frame := proto.Encode(42, proto.Data, []byte("hello"), 0)
	require.NoError(t, asm.feed(frame, collect(&frames)))

	require.Len(t, frames, 1)
	assert.Equal(t, frame[proto.LengthSize:], frames[0])
	assert.True(t, asm.awaitingLength())
}

func TestAssemblerOneByteAtATime(t *testing.T) {
	asm := newFrameAssembler(0)
	defer asm.release()

	var frames [][]byte
	frame := proto.Encode(42, proto.Data, []byte("hello"), 0)
	for i := range frame {
		require.NoError(t, asm.feed(frame[i:i+1], collect(&frames)))
		if i < len(frame)-1 {
			assert.Len(t, frames, 0)
		}
	}
	require.Len(t, frames, 1)

	h, payload, err := proto.DecodeBody(frames[0])
	require.NoError(t, err)
	assert.Equal(t, uint64(42), h.RequestID)
	assert.Equal(t, "hello", string(payload))
}

func TestAssemblerRandomFragmentation(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	var stream []byte
	var want [][]byte
	for i := 0; i < 50; i++ {
		payload := make([]byte, r.Intn(9000))
		r.Read(payload)
		frame := proto.Encode(uint64(i), proto.Data, payload, 0)
		stream = append(stream, frame...)
		want = append(want, frame[proto.LengthSize:])
	}

	asm := newFrameAssembler(0)
	defer asm.release()
	var frames [][]byte
	for len(stream) > 0 {
		n := 1 + r.Intn(5000)
		if n > len(stream) {
			n = len(stream)
		}
		require.NoError(t, asm.feed(stream[:n], collect(&frames)))
		stream = stream[n:]
	}
	assert.Equal(t, want, frames)
	assert.True(t, asm.awaitingLength())
}

func TestAssemblerPipelinedFramesInOneRead(t *testing.T) {
	asm := newFrameAssembler(0)
	defer asm.release()

	var stream []byte
	stream = append(stream, proto.Encode(1, proto.Data, []byte("a"), 0)...)
	stream = append(stream, proto.Encode(2, proto.Data, []byte("b"), 0)...)
	stream = append(stream, proto.Encode(3, proto.Data, []byte("c"), 0)[:10]...)

	var frames [][]byte
	require.NoError(t, asm.feed(stream, collect(&frames)))
	require.Len(t, frames, 2)
	assert.False(t, asm.awaitingLength())

	require.NoError(t, asm.feed(proto.Encode(3, proto.Data, []byte("c"), 0)[10:], collect(&frames)))
	require.Len(t, frames, 3)
	h, _, err := proto.DecodeBody(frames[2])
	require.NoError(t, err)
	assert.Equal(t, uint64(3), h.RequestID)
}

func TestAssemblerZeroLengthFrame(t *testing.T) {
	asm := newFrameAssembler(0)
	defer asm.release()

	var frames [][]byte
	require.NoError(t, asm.feed([]byte{0, 0, 0, 0}, collect(&frames)))
	require.Len(t, frames, 1)
	assert.Len(t, frames[0], 0)
}

func TestAssemblerFrameTooLarge(t *testing.T) {
	asm := newFrameAssembler(64)
	defer asm.release()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], 65)
	err := asm.feed(lenBuf[:], func(body []byte) error { return nil })
	assert.True(t, errors.Is(err, ErrFrameTooLarge))
}

func TestAssemblerCallbackErrorStops(t *testing.T) {
	asm := newFrameAssembler(0)
	defer asm.release()

	var stream []byte
	stream = append(stream, proto.Encode(1, proto.Data, nil, 0)...)
	stream = append(stream, proto.Encode(2, proto.Data, nil, 0)...)

	boom := errors.New("boom")
	calls := 0
	err := asm.feed(stream, func(body []byte) error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
	assert.True(t, asm.awaitingLength())
}
