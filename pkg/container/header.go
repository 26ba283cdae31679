package container

import (
	"encoding/binary"
	"fmt"
)

const (
	// Magic starts every container.
	Magic = "RPAK"
	// Version is the format version written by this package.
	Version uint16 = 1
	// HeaderSize is the fixed size of the header in bytes.
	HeaderSize = 48
	// MaxPayloadSize bounds the declared uncompressed payload length.
	MaxPayloadSize = 1 << 30
)

// Header is the fixed-width container header.
type Header struct {
	Version     uint16      `json:"version"`
	Compression Compression `json:"compression"`
	Flags       uint8       `json:"flags"`
	RuleCount   uint32      `json:"ruleCount"`
	IndexLen    uint32      `json:"indexLength"`
	PayloadLen  uint64      `json:"payloadLength"`
	StoredLen   uint64      `json:"storedLength"`
	PayloadSum  uint64      `json:"payloadChecksum"`
	IndexSum    uint64      `json:"indexChecksum"`
}

// AppendBinary appends the encoded header to b.
func (h Header) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, Magic...)
	b = binary.LittleEndian.AppendUint16(b, h.Version)
	b = append(b, byte(h.Compression), h.Flags)
	b = binary.LittleEndian.AppendUint32(b, h.RuleCount)
	b = binary.LittleEndian.AppendUint32(b, h.IndexLen)
	b = binary.LittleEndian.AppendUint64(b, h.PayloadLen)
	b = binary.LittleEndian.AppendUint64(b, h.StoredLen)
	b = binary.LittleEndian.AppendUint64(b, h.PayloadSum)
	b = binary.LittleEndian.AppendUint64(b, h.IndexSum)

	return b, nil
}

// Size returns the total container size the header declares.
func (h Header) Size() uint64 {
	return HeaderSize + uint64(h.IndexLen) + h.StoredLen
}

// ReadHeader decodes and checks the header at the start of data. The
// version is checked before anything past it is interpreted.
func ReadHeader(data []byte) (Header, error) {
	var h Header

	if len(data) < len(Magic) {
		return h, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}
	if string(data[:len(Magic)]) != Magic {
		return h, fmt.Errorf("%w: %q", ErrBadMagic, data[:len(Magic)])
	}
	if len(data) < 6 {
		return h, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	h.Version = binary.LittleEndian.Uint16(data[4:6])
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncated, HeaderSize, len(data))
	}

	h.Compression = Compression(data[6])
	h.Flags = data[7]
	h.RuleCount = binary.LittleEndian.Uint32(data[8:12])
	h.IndexLen = binary.LittleEndian.Uint32(data[12:16])
	h.PayloadLen = binary.LittleEndian.Uint64(data[16:24])
	h.StoredLen = binary.LittleEndian.Uint64(data[24:32])
	h.PayloadSum = binary.LittleEndian.Uint64(data[32:40])
	h.IndexSum = binary.LittleEndian.Uint64(data[40:48])

	if !h.Compression.Known() {
		return h, fmt.Errorf("%w: tag %d", ErrUnsupportedCompression, uint8(h.Compression))
	}
	if h.Flags != 0 {
		return h, fmt.Errorf("%w: %#02x", ErrReservedFlags, h.Flags)
	}
	if h.PayloadLen > MaxPayloadSize {
		return h, fmt.Errorf("%w: payload length %d exceeds %d", ErrLengthMismatch, h.PayloadLen, MaxPayloadSize)
	}

	return h, nil
}
