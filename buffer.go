package bdfs

import "math"

// MaxBufferSize is the largest region Allocate will hand out.
const MaxBufferSize = math.MaxInt32

// Buffer is a fixed-length byte region owned by whoever allocated it. It is
// never resized. Release zeroes it and makes every later access fail.
type Buffer struct {
	data     []byte
	released bool
}

// Allocate returns a zeroed buffer of exactly length bytes.
func Allocate(length int) (buf *Buffer, err error) {
	if length <= 0 {
		return nil, ErrInvalidBufferLength
	}
	if length > MaxBufferSize {
		return nil, ErrOutOfMemory
	}

	defer func() {
		if r := recover(); r != nil {
			buf, err = nil, ErrOutOfMemory
		}
	}()
	return &Buffer{data: make([]byte, length)}, nil
}

// Len returns the buffer length, or 0 after Release.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Bytes exposes the underlying region. The slice must not be used after
// Release.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.released {
		return nil, ErrReleased
	}
	return b.data, nil
}

// Read copies length bytes starting at offset out of the buffer.
func (b *Buffer) Read(offset, length int) ([]byte, error) {
	if b.released {
		return nil, ErrReleased
	}
	if offset < 0 || length < 0 || offset > len(b.data)-length {
		return nil, ErrOutOfBounds
	}
	out := make([]byte, length)
	copy(out, b.data[offset:offset+length])
	return out, nil
}

// Write copies data into the buffer at offset.
func (b *Buffer) Write(data []byte, offset int) error {
	if b.released {
		return ErrReleased
	}
	if offset < 0 || offset > len(b.data)-len(data) {
		return ErrOutOfBounds
	}
	copy(b.data[offset:], data)
	return nil
}

// Release zeroes the region and drops it. Releasing twice is a no-op.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	clear(b.data)
	b.data = nil
	b.released = true
}
