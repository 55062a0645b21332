package wkframe

import (
	"encoding/binary"
	"errors"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	perrors "github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
)

var (
	// ErrFrameTooLarge 长度前缀超过MaxFrameSize，无法再同步流，只能关闭连接
	ErrFrameTooLarge = errors.New("frame too large")
)

// frameAssembler 从任意切分的字节流里还原出 [header][payload]
//
// expected < 0 表示正在等待4字节长度前缀，acc里是已收到的部分前缀；
// expected >= 0 表示正在等待expected字节的帧体，acc里是已收到的部分帧体。
type frameAssembler struct {
	expected     int64
	acc          *bytebufferpool.ByteBuffer
	maxFrameSize int
}

func newFrameAssembler(maxFrameSize int) frameAssembler {
	return frameAssembler{
		expected:     -1,
		acc:          bytebufferpool.Get(),
		maxFrameSize: maxFrameSize,
	}
}

// feed 消费一次读到的数据，每凑齐一个完整的帧体就同步调用一次onFrame
// body只在onFrame内有效
func (f *frameAssembler) feed(data []byte, onFrame func(body []byte) error) error {
	for {
		if f.expected < 0 {
			if len(data) == 0 {
				return nil
			}
			n := proto.LengthSize - f.acc.Len()
			if n > len(data) {
				n = len(data)
			}
			_, _ = f.acc.Write(data[:n])
			data = data[n:]
			if f.acc.Len() < proto.LengthSize {
				return nil
			}
			length := binary.LittleEndian.Uint32(f.acc.B)
			if f.maxFrameSize > 0 && uint64(length) > uint64(f.maxFrameSize) {
				return perrors.Wrapf(ErrFrameTooLarge, "length %d exceeds %d", length, f.maxFrameSize)
			}
			f.expected = int64(length)
			f.acc.Reset()
		}

		n := f.expected - int64(f.acc.Len())
		if n > int64(len(data)) {
			n = int64(len(data))
		}
		_, _ = f.acc.Write(data[:n])
		data = data[n:]
		if int64(f.acc.Len()) < f.expected {
			return nil
		}

		err := onFrame(f.acc.B)
		f.acc.Reset()
		f.expected = -1
		if err != nil {
			return err
		}
	}
}

// awaitingLength 是否处于等待长度前缀的状态
func (f *frameAssembler) awaitingLength() bool {
	return f.expected < 0
}

func (f *frameAssembler) release() {
	if f.acc != nil {
		bytebufferpool.Put(f.acc)
		f.acc = nil
	}
	f.expected = -1
}
