// Package psx provides PlayStation-specific CD-ROM reading functionality.
// Sector bookkeeping is delegated to stream.SectorStream, so the reader only
// deals with logical block addresses and payload bytes.
package psx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/hansbonini/sectorstream/pkg/common"
	"github.com/hansbonini/sectorstream/pkg/stream"
)

// iso9660Signature is the start of every ISO9660 primary volume descriptor:
// type 0x01 + "CD001" + version 0x01
var iso9660Signature = []byte{VD_TYPE_PRIMARY, 'C', 'D', '0', '0', '1', 0x01}

// CDReader reads logical sectors of a CD image
type CDReader struct {
	stream        *stream.SectorStream
	totalSectors  int64
	currentSector int64
}

// NewCDReader creates a new CD reader over src using the given sector layout
func NewCDReader(src stream.Source, layout stream.Layout) (*CDReader, error) {
	s, err := stream.NewSectorStream(src, layout)
	if err != nil {
		return nil, err
	}
	totalSectors, err := s.SectorCount()
	if err != nil {
		return nil, err
	}

	common.LogDebug(common.DebugLayoutSelected, layout)

	return &CDReader{
		stream:        s,
		totalSectors:  totalSectors,
		currentSector: -1,
	}, nil
}

// Close closes the underlying source
func (r *CDReader) Close() error {
	return r.stream.Close()
}

// TotalSectors returns the number of whole sectors in the image
func (r *CDReader) TotalSectors() int64 {
	return r.totalSectors
}

// CurrentSector returns the last sector sought to, or -1
func (r *CDReader) CurrentSector() int64 {
	return r.currentSector
}

// Stream returns the logical payload stream
func (r *CDReader) Stream() *stream.SectorStream {
	return r.stream
}

func (r *CDReader) chunkSize() int64 {
	return int64(r.stream.Layout().ChunkSize)
}

// SeekToSector positions the reader at the first payload byte of a sector
func (r *CDReader) SeekToSector(lba int64) error {
	if lba >= r.totalSectors || lba < 0 {
		return fmt.Errorf("LBA %d out of bounds (total: %d)", lba, r.totalSectors)
	}
	if err := r.stream.SetPosition(lba * r.chunkSize()); err != nil {
		return err
	}
	r.currentSector = lba
	return nil
}

// ReadBytes fills buffer from the current position, crossing sectors as needed
func (r *CDReader) ReadBytes(buffer []byte) (int, error) {
	n, err := io.ReadFull(r.stream, buffer)
	if n > 0 {
		r.currentSector = (r.stream.Position() - 1) / r.chunkSize()
	}
	return n, err
}

// ReadSector reads the full payload of a single sector
func (r *CDReader) ReadSector(lba int64) ([]byte, error) {
	if err := r.SeekToSector(lba); err != nil {
		return nil, err
	}
	data := make([]byte, r.chunkSize())
	if _, err := r.ReadBytes(data); err != nil {
		return nil, fmt.Errorf("failed to read sector %d: %w", lba, err)
	}
	common.LogDebug(common.DebugSectorRead, lba, common.LBAToMSF(uint32(lba)))
	return data, nil
}

// ValidateISO9660 checks for an ISO9660 primary volume descriptor at sector 16
func (r *CDReader) ValidateISO9660() error {
	if err := r.SeekToSector(CD_PVD_SECTOR); err != nil {
		return err
	}

	header := make([]byte, len(iso9660Signature))
	if _, err := r.ReadBytes(header); err != nil {
		return err
	}

	for i, b := range iso9660Signature {
		if header[i] != b {
			return fmt.Errorf("invalid ISO9660 signature at byte %d: got 0x%02X, expected 0x%02X", i, header[i], b)
		}
	}
	return nil
}

// ReadISODescriptor reads the ISO9660 primary volume descriptor from sector 16
func (r *CDReader) ReadISODescriptor() (*ISODescriptor, error) {
	if r.chunkSize() < CD_DATA_SIZE {
		return nil, fmt.Errorf("sector payload of %d bytes cannot hold a volume descriptor", r.chunkSize())
	}
	if err := r.ValidateISO9660(); err != nil {
		return nil, err
	}
	if err := r.SeekToSector(CD_PVD_SECTOR); err != nil {
		return nil, err
	}
	data, err := common.ReadBytes(r.stream, CD_DATA_SIZE)
	if err != nil {
		return nil, err
	}

	descriptor := &ISODescriptor{}
	descriptor.Type = data[0]
	copy(descriptor.ID[:], data[1:6])
	descriptor.Version = data[6]
	copy(descriptor.SystemID[:], data[8:40])
	copy(descriptor.VolumeID[:], data[40:72])

	if descriptor.VolumeSpaceSize, err = common.BothEndianUint32(data[80:88]); err != nil {
		return nil, err
	}
	if descriptor.VolumeSetSize, err = common.BothEndianUint16(data[120:124]); err != nil {
		return nil, err
	}
	if descriptor.VolumeSequenceNum, err = common.BothEndianUint16(data[124:128]); err != nil {
		return nil, err
	}
	if descriptor.LogicalBlockSize, err = common.BothEndianUint16(data[128:132]); err != nil {
		return nil, err
	}
	if descriptor.PathTableSize, err = common.BothEndianUint32(data[132:140]); err != nil {
		return nil, err
	}
	descriptor.PathTable1Offs = binary.LittleEndian.Uint32(data[140:144])
	descriptor.PathTable2Offs = binary.LittleEndian.Uint32(data[144:148])
	copy(descriptor.RootDirRecord[:], data[156:190])

	return descriptor, nil
}

// ExtractRange copies size payload bytes starting at sector lba into w
func (r *CDReader) ExtractRange(lba int64, size int64, w io.Writer) (int64, error) {
	if err := r.SeekToSector(lba); err != nil {
		return 0, fmt.Errorf("failed to seek to LBA %d: %w", lba, err)
	}
	n, err := io.CopyN(w, r.stream, size)
	if err != nil {
		return n, fmt.Errorf("failed to read data at offset %d: %w", n, err)
	}
	return n, nil
}

// VolumeName returns the volume identifier without padding
func (d *ISODescriptor) VolumeName() string {
	return strings.TrimRight(string(bytes.TrimRight(d.VolumeID[:], "\x00")), " ")
}

// SystemName returns the system identifier without padding
func (d *ISODescriptor) SystemName() string {
	return strings.TrimRight(string(bytes.TrimRight(d.SystemID[:], "\x00")), " ")
}
