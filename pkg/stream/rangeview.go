package stream

import (
	"fmt"
	"io"
)

// RangeView exposes the window [start, start+length) of a source as an
// independent zero-based stream.
//
// Unlike SectorStream, which clamps positions past the end of its source,
// RangeView treats its bounds as hard: positions outside [0, length] are
// rejected with ErrOutOfRange and leave the view unchanged.
type RangeView struct {
	src    Source
	start  int64
	length int64
	pos    int64
}

// NewRangeView creates a view of length bytes of src starting at start.
func NewRangeView(src Source, start, length int64) (*RangeView, error) {
	if start < 0 || length < 0 {
		return nil, fmt.Errorf("%w: invalid range start %d length %d", ErrOutOfRange, start, length)
	}
	return &RangeView{src: src, start: start, length: length}, nil
}

// Offset reports where the view begins in the source.
func (v *RangeView) Offset() int64 {
	return v.start
}

// Length reports the length of the view.
func (v *RangeView) Length() int64 {
	return v.length
}

// Size implements Source. The size of a view is fixed at construction.
func (v *RangeView) Size() (int64, error) {
	return v.length, nil
}

// Position returns the position within the view.
func (v *RangeView) Position() int64 {
	return v.pos
}

func (v *RangeView) check(p int64) error {
	if p < 0 || p > v.length {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, p, v.length)
	}
	return nil
}

// SetPosition moves to p and repositions the source at start+p.
func (v *RangeView) SetPosition(p int64) error {
	if err := v.check(p); err != nil {
		return err
	}
	if _, err := v.src.Seek(v.start+p, io.SeekStart); err != nil {
		return err
	}
	v.pos = p
	return nil
}

// Read reads from the source without crossing the end of the view.
func (v *RangeView) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	remaining := v.length - v.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	if _, err := v.src.Seek(v.start+v.pos, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := v.src.Read(p)
	v.pos += int64(n)
	return n, err
}

// Seek implements io.Seeker. An end-relative offset of 0 lands exactly at the
// end of the view. Targets outside the view are rejected.
func (v *RangeView) Seek(offset int64, whence int) (int64, error) {
	var p int64
	switch whence {
	case io.SeekStart:
		p = offset
	case io.SeekCurrent:
		p = v.pos + offset
	case io.SeekEnd:
		p = v.length + offset
	default:
		return v.pos, fmt.Errorf("%w: invalid whence %d", ErrUnsupported, whence)
	}
	if err := v.SetPosition(p); err != nil {
		return v.pos, err
	}
	return v.pos, nil
}

// Write writes to the source without crossing the end of the view. The view
// never grows: if p does not fit, the part that fits is written and
// io.ErrShortWrite is returned.
func (v *RangeView) Write(p []byte) (int, error) {
	w, ok := v.src.(WriteSource)
	if !ok {
		return 0, fmt.Errorf("%w: source is read-only", ErrUnsupported)
	}

	short := false
	remaining := v.length - v.pos
	if remaining < 0 {
		remaining = 0
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
		short = true
	}
	if len(p) > 0 {
		if _, err := v.src.Seek(v.start+v.pos, io.SeekStart); err != nil {
			return 0, err
		}
	}

	n, err := w.Write(p)
	v.pos += int64(n)
	if err == nil && short {
		err = io.ErrShortWrite
	}
	return n, err
}

// ensure interface conformation
var (
	_ Source      = (*RangeView)(nil)
	_ WriteSource = (*RangeView)(nil)
)
