package common

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ReadBytes reads a specified number of bytes
func ReadBytes(reader io.Reader, count int) ([]byte, error) {
	buffer := make([]byte, count)
	n, err := io.ReadFull(reader, buffer)
	if err != nil {
		return nil, err
	}
	if n != count {
		return nil, fmt.Errorf("expected to read %d bytes, got %d", count, n)
	}
	return buffer, nil
}

// BothEndianUint32 decodes an ISO9660 both-byte-order 32-bit field (LSB then MSB).
// The little-endian half wins when the two disagree.
func BothEndianUint32(field []byte) (uint32, error) {
	if len(field) < 8 {
		return 0, fmt.Errorf("both-endian uint32 needs 8 bytes, got %d", len(field))
	}
	lsb := binary.LittleEndian.Uint32(field[0:4])
	if msb := binary.BigEndian.Uint32(field[4:8]); msb != lsb {
		LogDebug("both-endian mismatch: LSB %d, MSB %d", lsb, msb)
	}
	return lsb, nil
}

// BothEndianUint16 decodes an ISO9660 both-byte-order 16-bit field (LSB then MSB).
func BothEndianUint16(field []byte) (uint16, error) {
	if len(field) < 4 {
		return 0, fmt.Errorf("both-endian uint16 needs 4 bytes, got %d", len(field))
	}
	lsb := binary.LittleEndian.Uint16(field[0:2])
	if msb := binary.BigEndian.Uint16(field[2:4]); msb != lsb {
		LogDebug("both-endian mismatch: LSB %d, MSB %d", lsb, msb)
	}
	return lsb, nil
}
