// Package common provides common utilities for CD-ROM operations.
// This file contains functions for MSF conversion and sector arithmetic.
package common

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// MSF addressing constants
const (
	FramesPerSecond = 75
	SecondsPerMin   = 60
	PregapFrames    = 150 // 2 second lead-in before LBA 0
)

// LBAToMSF converts LBA (Logical Block Address) to MSF (Minutes:Seconds:Frames) format
// LBA to MSF conversion: LBA + 150 (pregap)
func LBAToMSF(lba uint32) string {
	totalFrames := lba + PregapFrames

	minutes := totalFrames / (SecondsPerMin * FramesPerSecond)
	seconds := (totalFrames % (SecondsPerMin * FramesPerSecond)) / FramesPerSecond
	frames := totalFrames % FramesPerSecond

	return fmt.Sprintf("%02d:%02d:%02d", minutes, seconds, frames)
}

// MSFToLBA parses an "mm:ss:ff" address and converts it back to an LBA.
// Addresses inside the pregap are rejected.
func MSFToLBA(msf string) (uint32, error) {
	parts := strings.Split(strings.TrimSpace(msf), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("%s %q: expected mm:ss:ff", ErrInvalidMSF, msf)
	}

	var values [3]uint64
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%s %q: %w", ErrInvalidMSF, msf, err)
		}
		values[i] = v
	}
	minutes, seconds, frames := values[0], values[1], values[2]
	if seconds >= SecondsPerMin || frames >= FramesPerSecond {
		return 0, fmt.Errorf("%s %q: seconds or frames out of range", ErrInvalidMSF, msf)
	}

	total := (minutes*SecondsPerMin+seconds)*FramesPerSecond + frames
	if total < PregapFrames {
		return 0, fmt.Errorf("%s %q: address lies in the pregap", ErrInvalidMSF, msf)
	}
	return SafeUint64ToUint32(total - PregapFrames)
}

// GetSizeInSectors calculates the number of sectors needed for a given size in bytes
func GetSizeInSectors(sizeBytes, chunkSize uint32) uint32 {
	if chunkSize == 0 {
		return 0
	}
	return (sizeBytes + chunkSize - 1) / chunkSize
}

// ExtractLBAFromDirRecord extracts LBA from ISO9660 directory record
func ExtractLBAFromDirRecord(dirRecord []byte) uint32 {
	if len(dirRecord) < 6 {
		return 0
	}
	// LBA is at offset 2 (little-endian)
	return binary.LittleEndian.Uint32(dirRecord[2:6])
}
