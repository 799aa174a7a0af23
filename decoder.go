package bdfs

import (
	"crypto/cipher"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/rjwvandenberg/bdfs/ice"
)

// Unpacker expands a decrypted compressed payload. dst is allocated by the
// caller to the declared decompressed size; Unpack returns the number of
// bytes it wrote.
type Unpacker interface {
	Unpack(dst, src []byte) (int, error)
}

// UnpackFunc adapts a function to Unpacker.
type UnpackFunc func(dst, src []byte) (int, error)

// Unpack calls f(dst, src).
func (f UnpackFunc) Unpack(dst, src []byte) (int, error) {
	return f(dst, src)
}

// Entry describes one stored asset: its name, the stored (encrypted) length
// and the length of the original payload.
type Entry struct {
	Name           string
	CompressedSize int
	Size           int
}

// Decoder turns stored asset bytes back into payloads.
type Decoder struct {
	block    cipher.Block
	unpacker Unpacker
	logger   *slog.Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithLogger sets the logger used for per-entry debug output.
func WithLogger(l *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.logger = l
	}
}

// NewDecoder creates a decoder for the given cipher. unpacker may be nil, in
// which case compressed payloads fail with ErrNoUnpacker.
func NewDecoder(b cipher.Block, unpacker Unpacker, opts ...DecoderOption) (*Decoder, error) {
	if b.BlockSize() != ice.BlockSize {
		return nil, ice.ErrInvalidBlockLength
	}
	d := &Decoder{
		block:    b,
		unpacker: unpacker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Decode returns a decrypted copy of data. len(data) must be a multiple of 8.
func (d *Decoder) Decode(data []byte) ([]byte, error) {
	if len(data)%ice.BlockSize != 0 {
		return nil, ErrUnaligned
	}
	out := make([]byte, len(data))
	if err := DecryptBlocks(d.block, out, data, len(data)/ice.BlockSize); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeDecompress decrypts data and, when it starts with a compressed header
// declaring size bytes, unpacks it. Otherwise the first size decrypted bytes
// are returned.
func (d *Decoder) DecodeDecompress(data []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, ErrInvalidBufferLength
	}
	if len(data)%ice.BlockSize != 0 {
		return nil, ErrUnaligned
	}
	if size == 0 {
		return []byte{}, nil
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: 0 < %d", ErrShortOutput, size)
	}

	in, err := Allocate(len(data))
	if err != nil {
		return nil, err
	}
	plain, err := in.Bytes()
	if err != nil {
		return nil, err
	}
	if err := DecryptBlocks(d.block, plain, data, len(data)/ice.BlockSize); err != nil {
		in.Release()
		return nil, err
	}

	if !ValidHeader(plain, size) {
		if len(plain) < size {
			in.Release()
			return nil, fmt.Errorf("%w: %d < %d", ErrShortOutput, len(plain), size)
		}
		return plain[:size], nil
	}
	defer in.Release()

	if d.unpacker == nil {
		return nil, ErrNoUnpacker
	}

	out, err := Allocate(size)
	if err != nil {
		return nil, err
	}
	dst, err := out.Bytes()
	if err != nil {
		return nil, err
	}
	n, err := d.unpacker.Unpack(dst, plain)
	if err != nil {
		out.Release()
		return nil, fmt.Errorf("bdfs: unpack: %w", err)
	}
	if n < size {
		out.Release()
		return nil, fmt.Errorf("%w: unpacked %d of %d bytes", ErrShortOutput, n, size)
	}
	return dst, nil
}

// Convert applies the per-entry conversion rules to the stored bytes of e.
// data may extend past e.CompressedSize; the excess is ignored.
//
// Empty entries yield an empty payload. Entries whose stored size is not a
// multiple of the block size, and .dbss entries, are stored in the clear.
// Everything else goes through DecodeDecompress.
func (d *Decoder) Convert(e Entry, data []byte) ([]byte, error) {
	if e.Size < 0 || e.CompressedSize < 0 {
		return nil, ErrOutOfBounds
	}
	if e.Size == 0 || e.CompressedSize == 0 {
		d.logger.Debug("empty entry", slog.String("name", e.Name))
		return []byte{}, nil
	}
	if len(data) < e.CompressedSize {
		return nil, ErrBufferTooSmall
	}
	data = data[:e.CompressedSize]

	var (
		out  []byte
		mode string
	)
	if e.CompressedSize%ice.BlockSize != 0 || strings.EqualFold(path.Ext(e.Name), ".dbss") {
		out, mode = data, "raw"
	} else {
		var err error
		out, err = d.DecodeDecompress(data, e.Size)
		if err != nil {
			return nil, err
		}
		mode = "decoded"
	}

	if len(out) < e.Size {
		return nil, fmt.Errorf("%w: %d < %d", ErrShortOutput, len(out), e.Size)
	}

	d.logger.Debug("converted entry",
		slog.String("name", e.Name),
		slog.String("mode", mode),
		slog.Int("compressed_size", e.CompressedSize),
		slog.Int("size", e.Size),
	)
	return out[:e.Size], nil
}
