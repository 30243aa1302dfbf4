package stream

import "fmt"

// Raw CD-ROM sector geometry shared by all canonical layouts.
const (
	RawSectorSize = 2352 // Full CD sector size
	SyncSize      = 12   // Sync pattern size
	HeaderSize    = 4    // Header size (3 address bytes + 1 mode byte)
	SubHeaderSize = 8    // XA subheader (stored twice)
)

// Layout describes the format of one physical sector: LeadIn bytes skipped
// before the payload, ChunkSize bytes of payload, and TrailOut bytes skipped
// after it. Layouts are plain values and are never mutated once built.
type Layout struct {
	Name      string `yaml:"name"`
	LeadIn    uint32 `yaml:"lead_in"`
	ChunkSize uint32 `yaml:"chunk_size"`
	TrailOut  uint32 `yaml:"trail_out"`
}

// SectorSize returns the size of one physical sector.
func (l Layout) SectorSize() int64 {
	return int64(l.LeadIn) + int64(l.ChunkSize) + int64(l.TrailOut)
}

// Validate checks that the layout can be used for reading.
func (l Layout) Validate() error {
	if l.SectorSize() == 0 {
		return fmt.Errorf("%w: %q has zero sector size", ErrInvalidLayout, l.Name)
	}
	if l.ChunkSize == 0 {
		return fmt.Errorf("%w: %q has zero chunk size", ErrInvalidLayout, l.Name)
	}
	return nil
}

func (l Layout) String() string {
	return fmt.Sprintf("%s (lead-in %d, chunk %d, trail-out %d, sector %d)",
		l.Name, l.LeadIn, l.ChunkSize, l.TrailOut, l.SectorSize())
}

// Mode1 is a CD-ROM Mode 1 sector: sync + header, 2048 data bytes, EDC + zero + ECC.
func Mode1() Layout {
	return Layout{Name: "mode1", LeadIn: SyncSize + HeaderSize, ChunkSize: 2048, TrailOut: 288}
}

// Mode2 is a raw CD-ROM Mode 2 sector: sync + header, 2336 data bytes.
func Mode2() Layout {
	return Layout{Name: "mode2", LeadIn: SyncSize + HeaderSize, ChunkSize: 2336, TrailOut: 0}
}

// XAForm1 is a CD-ROM XA Mode 2 Form 1 sector: sync + header + subheader,
// 2048 data bytes, EDC + ECC.
func XAForm1() Layout {
	return Layout{Name: "xa-form1", LeadIn: SyncSize + HeaderSize + SubHeaderSize, ChunkSize: 2048, TrailOut: 280}
}

// XAForm2 is a CD-ROM XA Mode 2 Form 2 sector: sync + header + subheader,
// 2324 data bytes, EDC.
func XAForm2() Layout {
	return Layout{Name: "xa-form2", LeadIn: SyncSize + HeaderSize + SubHeaderSize, ChunkSize: 2324, TrailOut: 4}
}
