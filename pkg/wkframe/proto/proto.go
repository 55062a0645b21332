package proto

import (
	"encoding/binary"
	"errors"
	"fmt"

	perrors "github.com/pkg/errors"
)

const (
	// Magic 帧头魔数 "MP"
	Magic uint16 = 0x4D50
	// Version 当前协议版本
	Version uint8 = 1

	// LengthSize 外层长度前缀的字节数
	LengthSize = 4
	// HeaderSize 帧头固定长度
	HeaderSize = 20
)

var (
	// ErrProtocol 帧头缺失或payload长度与实际不符
	ErrProtocol = errors.New("protocol error")
)

// Error codes carried in Error frames.
const (
	ErrorCodeNone     uint16 = 0
	ErrorCodeDecode   uint16 = 1
	ErrorCodeInternal uint16 = 2
)

// Payloads carried in Error frames.
const (
	DecodeErrorPayload   = "DECODE_ERROR"
	InternalErrorPayload = "INTERNAL_ERROR"
)

// MsgType 消息类型
type MsgType uint16

const (
	Handshake MsgType = iota
	Data
	Ack
	Error
)

func (m MsgType) String() string {
	switch m {
	case Handshake:
		return "Handshake"
	case Data:
		return "Data"
	case Ack:
		return "Ack"
	case Error:
		return "Error"
	}
	return fmt.Sprintf("MsgType(%d)", uint16(m))
}

// Header 20字节固定帧头，全部小端
//
//	offset 0  magic      uint16
//	offset 2  version    uint8
//	offset 3  flags      uint8
//	offset 4  msgType    uint16
//	offset 6  errorCode  uint16
//	offset 8  requestId  uint64
//	offset 16 payloadLen uint32
type Header struct {
	Magic      uint16
	Version    uint8
	Flags      uint8
	MsgType    MsgType
	ErrorCode  uint16
	RequestID  uint64
	PayloadLen uint32
}

func (h Header) String() string {
	return fmt.Sprintf("Header{MsgType:%s ErrorCode:%d RequestID:%d PayloadLen:%d}", h.MsgType, h.ErrorCode, h.RequestID, h.PayloadLen)
}

// PutHeader 将帧头写入dst，dst长度至少为HeaderSize
func PutHeader(dst []byte, h Header) {
	_ = dst[HeaderSize-1]
	binary.LittleEndian.PutUint16(dst[0:], h.Magic)
	dst[2] = h.Version
	dst[3] = h.Flags
	binary.LittleEndian.PutUint16(dst[4:], uint16(h.MsgType))
	binary.LittleEndian.PutUint16(dst[6:], h.ErrorCode)
	binary.LittleEndian.PutUint64(dst[8:], h.RequestID)
	binary.LittleEndian.PutUint32(dst[16:], h.PayloadLen)
}

// ReadHeader 从src读取帧头，不做magic和version校验
func ReadHeader(src []byte) (Header, error) {
	if len(src) < HeaderSize {
		return Header{}, perrors.Wrapf(ErrProtocol, "header needs %d bytes, got %d", HeaderSize, len(src))
	}
	return Header{
		Magic:      binary.LittleEndian.Uint16(src[0:]),
		Version:    src[2],
		Flags:      src[3],
		MsgType:    MsgType(binary.LittleEndian.Uint16(src[4:])),
		ErrorCode:  binary.LittleEndian.Uint16(src[6:]),
		RequestID:  binary.LittleEndian.Uint64(src[8:]),
		PayloadLen: binary.LittleEndian.Uint32(src[16:]),
	}, nil
}

// Encode 编码一个完整的帧 [length][header][payload]
func Encode(requestID uint64, msgType MsgType, payload []byte, errorCode uint16) []byte {
	return AppendFrame(make([]byte, 0, LengthSize+HeaderSize+len(payload)), requestID, msgType, payload, errorCode)
}

// AppendFrame 将完整的帧追加到dst后面
func AppendFrame(dst []byte, requestID uint64, msgType MsgType, payload []byte, errorCode uint16) []byte {
	var prefix [LengthSize + HeaderSize]byte
	binary.LittleEndian.PutUint32(prefix[0:], uint32(HeaderSize+len(payload)))
	PutHeader(prefix[LengthSize:], Header{
		Magic:      Magic,
		Version:    Version,
		MsgType:    msgType,
		ErrorCode:  errorCode,
		RequestID:  requestID,
		PayloadLen: uint32(len(payload)),
	})
	dst = append(dst, prefix[:]...)
	return append(dst, payload...)
}

// DecodeFrame 解码 [length][header][payload]
func DecodeFrame(full []byte) (Header, []byte, error) {
	if len(full) < LengthSize {
		return Header{}, nil, perrors.Wrap(ErrProtocol, "missing length prefix")
	}
	length := binary.LittleEndian.Uint32(full)
	body := full[LengthSize:]
	if uint64(len(body)) != uint64(length) {
		return Header{}, nil, perrors.Wrapf(ErrProtocol, "length prefix %d does not match %d trailing bytes", length, len(body))
	}
	return DecodeBody(body)
}

// DecodeBody 解码 [header][payload]，长度前缀已被接收状态机消费
// 返回的payload是拷贝，不引用body
func DecodeBody(body []byte) (Header, []byte, error) {
	h, err := ReadHeader(body)
	if err != nil {
		return Header{}, nil, err
	}
	if uint64(h.PayloadLen) != uint64(len(body)-HeaderSize) {
		return h, nil, perrors.Wrapf(ErrProtocol, "payloadLen %d does not match %d trailing bytes", h.PayloadLen, len(body)-HeaderSize)
	}
	payload := make([]byte, h.PayloadLen)
	copy(payload, body[HeaderSize:])
	return h, payload, nil
}
