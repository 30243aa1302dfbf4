package stream

import (
	"fmt"
	"io"

	"github.com/hansbonini/sectorstream/pkg/common"
)

// SectorStream exposes the payload chunks of consecutive physical sectors as
// one contiguous logical stream. The lead-in and trail-out of every sector are
// skipped, and a trailing partial sector is not addressable.
//
// SectorStream is read-only. Writing would require regenerating the EDC/ECC
// data in the trail-out, which is not implemented.
type SectorStream struct {
	src    Source
	layout Layout
	pos    int64
}

// NewSectorStream creates a logical stream over src using layout.
func NewSectorStream(src Source, layout Layout) (*SectorStream, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &SectorStream{src: src, layout: layout}, nil
}

// Layout returns the sector layout of the stream.
func (s *SectorStream) Layout() Layout {
	return s.layout
}

// SectorCount returns the number of whole physical sectors in the source.
func (s *SectorStream) SectorCount() (int64, error) {
	size, err := s.src.Size()
	if err != nil {
		return 0, err
	}
	return size / s.layout.SectorSize(), nil
}

// Size returns the logical length: whole sectors times the chunk size.
func (s *SectorStream) Size() (int64, error) {
	size, err := s.src.Size()
	if err != nil {
		return 0, err
	}
	return s.logicalSize(size), nil
}

// logicalSize converts a source length into the logical length.
func (s *SectorStream) logicalSize(srcSize int64) int64 {
	return srcSize / s.layout.SectorSize() * int64(s.layout.ChunkSize)
}

// Position returns the logical position.
func (s *SectorStream) Position() int64 {
	return s.pos
}

// physical translates a logical position into a physical offset and the
// offset within its chunk.
func (s *SectorStream) physical(p int64) (target, offset int64) {
	chunk := int64(s.layout.ChunkSize)
	sector := p / chunk
	offset = p - sector*chunk
	return sector*s.layout.SectorSize() + int64(s.layout.LeadIn) + offset, offset
}

// SetPosition moves the logical position to p and repositions the source.
// A physical target past the end of the source is clamped to the source's
// length, so the next Read reports io.EOF; the logical position is still p.
func (s *SectorStream) SetPosition(p int64) error {
	if p < 0 {
		return fmt.Errorf("%w: negative position %d", ErrOutOfRange, p)
	}
	size, err := s.src.Size()
	if err != nil {
		return err
	}
	return s.setPosition(p, size)
}

// setPosition positions the source for logical position p, given the
// current source length.
func (s *SectorStream) setPosition(p, size int64) error {
	var target int64
	if p/int64(s.layout.ChunkSize) > size/s.layout.SectorSize() {
		target = size
	} else {
		target, _ = s.physical(p)
	}
	if target > size {
		common.LogDebug("sector stream: physical offset %d past end of source (%d), clamping", target, size)
		target = size
	}

	if _, err := s.src.Seek(target, io.SeekStart); err != nil {
		return err
	}
	s.pos = p
	return nil
}

// Read reads at most up to the end of the current chunk, so a single call
// never returns bytes from two sectors.
func (s *SectorStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	size, err := s.src.Size()
	if err != nil {
		return 0, err
	}
	if s.pos >= s.logicalSize(size) {
		return 0, io.EOF
	}

	// the source may have been moved by someone else since the last call
	if err := s.setPosition(s.pos, size); err != nil {
		return 0, err
	}

	_, offset := s.physical(s.pos)
	if remaining := int64(s.layout.ChunkSize) - offset; int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := s.src.Read(p)
	s.pos += int64(n)
	return n, err
}

// Seek implements io.Seeker for io.SeekStart and io.SeekCurrent. Seeking
// relative to the end is rejected because a truncated final sector makes the
// end of the logical stream ambiguous.
func (s *SectorStream) Seek(offset int64, whence int) (int64, error) {
	var p int64
	switch whence {
	case io.SeekStart:
		p = offset
	case io.SeekCurrent:
		p = s.pos + offset
	case io.SeekEnd:
		return s.pos, fmt.Errorf("%w: end-relative seek on sector stream", ErrUnsupported)
	default:
		return s.pos, fmt.Errorf("%w: invalid whence %d", ErrUnsupported, whence)
	}
	if err := s.SetPosition(p); err != nil {
		return s.pos, err
	}
	return s.pos, nil
}

// Write always fails: payload changes would invalidate the sector's EDC/ECC.
func (s *SectorStream) Write(p []byte) (int, error) {
	return 0, fmt.Errorf("%w: write to sector stream", ErrUnsupported)
}

// Truncate always fails: the sector geometry is fixed by the source.
func (s *SectorStream) Truncate(size int64) error {
	return fmt.Errorf("%w: truncate sector stream", ErrUnsupported)
}

// Close closes the source if it is an io.Closer.
func (s *SectorStream) Close() error {
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ensure interface conformation
var (
	_ Source             = (*SectorStream)(nil)
	_ io.ReadWriteSeeker = (*SectorStream)(nil)
	_ io.Closer          = (*SectorStream)(nil)
)
