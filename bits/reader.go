package bits

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/google/uuid"
)

var (
	ErrEOF          = errors.New("end of file")
	ErrReadMismatch = errors.New("read size mismatch")
)

const MaxBinReaderBufferSize = 8

// BitsReader decodes fixed width little/big endian values from a stream.
type BitsReader struct {
	readBuffer [MaxBinReaderBufferSize]byte

	buf   io.Reader
	order binary.ByteOrder

	consumed int
}

func NewReader(buf io.Reader, order binary.ByteOrder) *BitsReader {
	return &BitsReader{buf: buf, order: order}
}

// bytes consumed so far
func (r *BitsReader) Position() int {
	return r.consumed
}

func (r *BitsReader) readNextBytesIntoReadBuffer(size int) error {
	readBytes, err := io.ReadFull(r.buf, r.readBuffer[:size])
	r.consumed += readBytes

	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrReadMismatch
		}
		return err
	}

	return nil
}

func (r *BitsReader) ReadU8() (uint8, error) {
	err := r.readNextBytesIntoReadBuffer(1)
	if err != nil {
		return 0, err
	}

	return r.readBuffer[0], nil
}

func (r *BitsReader) ReadU16() (uint16, error) {
	err := r.readNextBytesIntoReadBuffer(2)
	if err != nil {
		return 0, err
	}

	return r.order.Uint16(r.readBuffer[:2]), nil
}

func (r *BitsReader) ReadU32() (uint32, error) {
	readErr := r.readNextBytesIntoReadBuffer(4)
	if readErr != nil {
		return 0, readErr
	}
	return r.order.Uint32(r.readBuffer[:4]), nil
}

func (r *BitsReader) ReadU64() (uint64, error) {
	readErr := r.readNextBytesIntoReadBuffer(8)
	if readErr != nil {
		return 0, readErr
	}
	return r.order.Uint64(r.readBuffer[:8]), nil
}

func (r *BitsReader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *BitsReader) ReadUUID() (result uuid.UUID, err error) {
	err = r.ReadBytes(16, result[:])
	return result, err
}

func (r *BitsReader) ReadBytes(n int, out []byte) error {
	readBytes, err := io.ReadFull(r.buf, out[:n])
	r.consumed += readBytes

	if readBytes != n {
		return ErrReadMismatch
	}

	return err
}

// u16 length prefixed byte string
func (r *BitsReader) ReadLenBytes() ([]byte, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}

	out := make([]byte, n)
	if err = r.ReadBytes(int(n), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BitsReader) ReadString() (string, error) {
	b, err := r.ReadLenBytes()
	return string(b), err
}
