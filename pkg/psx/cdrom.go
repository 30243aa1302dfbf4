// Package psx provides PlayStation-specific structures and functionality.
// This file contains CD-ROM related structures for PlayStation disc images.
package psx

import "github.com/hansbonini/sectorstream/pkg/stream"

// Sector size constants for PlayStation CD-ROM
const (
	CD_SECTOR_SIZE  = stream.RawSectorSize // Full CD sector size
	CD_DATA_SIZE    = 2048                 // Data portion of Mode 1 / Form 1 sector
	CD_XA_DATA_SIZE = 2336                 // Data portion of raw Mode 2 sector
	CD_PVD_SECTOR   = 16                   // Primary Volume Descriptor location
)

// VD_TYPE_PRIMARY is the ISO9660 primary volume descriptor type
const VD_TYPE_PRIMARY = 0x01

// ISODescriptor holds the primary volume descriptor fields used by the tools
type ISODescriptor struct {
	Type              byte     // Volume descriptor type
	ID                [5]byte  // Standard identifier "CD001"
	Version           byte     // Volume descriptor version
	SystemID          [32]byte // System identifier
	VolumeID          [32]byte // Volume identifier
	VolumeSpaceSize   uint32   // Volume size in logical blocks
	VolumeSetSize     uint16   // Volume set size
	VolumeSequenceNum uint16   // Volume sequence number
	LogicalBlockSize  uint16   // Logical block size, 2048 on every PSX disc
	PathTableSize     uint32   // Path table size in bytes
	PathTable1Offs    uint32   // LBA to Type-L path table
	PathTable2Offs    uint32   // LBA to optional Type-L path table
	RootDirRecord     [34]byte // Directory entry for root directory
}
