// Package stream provides composable read/seek adapters for sector based media.
//
// A SectorStream exposes the payload chunks of fixed-size physical sectors
// (raw CD-ROM images, for example) as one contiguous logical stream. A RangeView
// exposes a window of a larger source as an independent zero-based stream.
// Both adapters implement Source, so they can be nested in any order.
//
// The adapters are not safe for concurrent use. Each keeps a single position
// cursor and seeks the shared source before every read or write.
package stream

import (
	"errors"
	"io"
)

var (
	// ErrUnsupported is returned for operations an adapter never supports.
	ErrUnsupported = errors.New("stream: unsupported operation")
	// ErrOutOfRange is returned when a position falls outside the addressable range.
	ErrOutOfRange = errors.New("stream: position out of range")
	// ErrInvalidLayout is returned for sector layouts that cannot be read.
	ErrInvalidLayout = errors.New("stream: invalid sector layout")
)

// Source is a randomly accessible byte source.
type Source interface {
	io.ReadSeeker
	// Size reports the current length of the source in bytes.
	Size() (int64, error)
}

// WriteSource is a Source that also accepts writes at its current position.
type WriteSource interface {
	Source
	io.Writer
}

// Sized adapts rs to a Source. Sources that already report their size are
// returned unchanged. If rs is also an io.Writer, the result is a WriteSource.
func Sized(rs io.ReadSeeker) Source {
	if s, ok := rs.(Source); ok {
		return s
	}
	if rws, ok := rs.(io.ReadWriteSeeker); ok {
		return &sizedWriter{sized: sized{rs: rws}, w: rws}
	}
	return &sized{rs: rs}
}

type sized struct {
	rs io.ReadSeeker
}

func (s *sized) Read(p []byte) (int, error) {
	return s.rs.Read(p)
}

func (s *sized) Seek(offset int64, whence int) (int64, error) {
	return s.rs.Seek(offset, whence)
}

// Size measures the source with an end-relative seek and restores the cursor.
func (s *sized) Size() (int64, error) {
	cur, err := s.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.rs.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

func (s *sized) Close() error {
	if c, ok := s.rs.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type sizedWriter struct {
	sized
	w io.Writer
}

func (s *sizedWriter) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

// ensure interface conformation
var (
	_ Source      = (*sized)(nil)
	_ WriteSource = (*sizedWriter)(nil)
)
