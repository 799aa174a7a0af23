package bdfs

import "encoding/binary"

const (
	// Flag values seen on compressed payloads. Both have bit 1 set, which
	// selects 4-byte little-endian size fields.
	FLAGS_COMPRESSED     = 0x6e
	FLAGS_COMPRESSED_ALT = 0x6f

	HEADER_SIZE = 9
)

// Header is the prefix of a decrypted compressed payload:
// flags, compressed size, decompressed size.
type Header struct {
	Flags            byte
	CompressedSize   uint32
	DecompressedSize uint32
}

// ParseHeader decodes the compressed payload header at the start of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HEADER_SIZE {
		return Header{}, ErrInvalidHeader
	}
	if data[0] != FLAGS_COMPRESSED && data[0] != FLAGS_COMPRESSED_ALT {
		return Header{}, ErrInvalidHeader
	}
	return Header{
		Flags:            data[0],
		CompressedSize:   binary.LittleEndian.Uint32(data[1:]),
		DecompressedSize: binary.LittleEndian.Uint32(data[5:]),
	}, nil
}

// ValidHeader reports whether data starts with a compressed header whose
// decompressed size equals size.
func ValidHeader(data []byte, size int) bool {
	h, err := ParseHeader(data)
	if err != nil {
		return false
	}
	return size >= 0 && uint64(h.DecompressedSize) == uint64(size)
}
