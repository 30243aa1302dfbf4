package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildImage creates sectors whose every byte encodes its physical offset,
// so any misplaced read shows up as a wrong value.
func buildImage(sectors int, extra int, sectorSize int64) []byte {
	data := make([]byte, int64(sectors)*sectorSize+int64(extra))
	for i := range data {
		data[i] = byte(i*7 + i/251)
	}
	return data
}

func canonicalLayouts() []Layout {
	return []Layout{Mode1(), Mode2(), XAForm1(), XAForm2()}
}

func TestSectorStreamSize(t *testing.T) {
	for _, layout := range canonicalLayouts() {
		t.Run(layout.Name, func(t *testing.T) {
			for _, extra := range []int{0, 1, int(layout.SectorSize()) - 1} {
				data := buildImage(3, extra, layout.SectorSize())
				s, err := NewSectorStream(Sized(bytes.NewReader(data)), layout)
				require.NoError(t, err)

				size, err := s.Size()
				require.NoError(t, err)
				assert.Equal(t, int64(len(data))/layout.SectorSize()*int64(layout.ChunkSize), size)
				assert.Equal(t, 3*int64(layout.ChunkSize), size)

				count, err := s.SectorCount()
				require.NoError(t, err)
				assert.Equal(t, int64(3), count)
			}
		})
	}
}

func TestSectorStreamPositionMapping(t *testing.T) {
	for _, layout := range canonicalLayouts() {
		t.Run(layout.Name, func(t *testing.T) {
			data := buildImage(4, 100, layout.SectorSize())
			s, err := NewSectorStream(Sized(bytes.NewReader(data)), layout)
			require.NoError(t, err)

			size, err := s.Size()
			require.NoError(t, err)

			chunk := int64(layout.ChunkSize)
			positions := []int64{0, 1, chunk - 1, chunk, chunk + 1, 2*chunk - 1, 3 * chunk, size - 1}
			for p := int64(0); p < size; p += 997 {
				positions = append(positions, p)
			}

			buf := make([]byte, 1)
			for _, p := range positions {
				require.NoError(t, s.SetPosition(p))
				n, err := s.Read(buf)
				require.NoError(t, err)
				require.Equal(t, 1, n)

				physical := p/chunk*layout.SectorSize() + int64(layout.LeadIn) + p%chunk
				assert.Equal(t, data[physical], buf[0], "position %d", p)
				assert.Equal(t, p+1, s.Position())
			}
		})
	}
}

func TestSectorStreamReadStopsAtChunkEdge(t *testing.T) {
	layout := XAForm1()
	data := buildImage(2, 0, layout.SectorSize())
	s, err := NewSectorStream(Sized(bytes.NewReader(data)), layout)
	require.NoError(t, err)

	_, err = s.Seek(2000, io.SeekStart)
	require.NoError(t, err)

	buf := make([]byte, 500)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 48, n)
	assert.Equal(t, data[24+2000:24+2048], buf[:n])

	// next read starts past the trail-out and lead-in of the next sector
	n, err = s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 500, n)
	assert.Equal(t, data[2352+24:2352+24+500], buf[:n])
}

func TestSectorStreamReadAll(t *testing.T) {
	for _, layout := range canonicalLayouts() {
		t.Run(layout.Name, func(t *testing.T) {
			data := buildImage(5, 17, layout.SectorSize())
			s, err := NewSectorStream(Sized(bytes.NewReader(data)), layout)
			require.NoError(t, err)

			got, err := io.ReadAll(s)
			require.NoError(t, err)

			var want []byte
			for i := int64(0); i < 5; i++ {
				start := i*layout.SectorSize() + int64(layout.LeadIn)
				want = append(want, data[start:start+int64(layout.ChunkSize)]...)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestSectorStreamSingleMode1Sector(t *testing.T) {
	data := make([]byte, 2352)
	for i := 16; i < 16+2048; i++ {
		data[i] = 0x41
	}
	s, err := NewSectorStream(Sized(bytes.NewReader(data)), Mode1())
	require.NoError(t, err)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(2048), size)

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0x41}, 2048), got)

	n, err := s.Read(make([]byte, 16))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestSectorStreamTrailingPartialSectorHidden(t *testing.T) {
	layout := Mode2()
	data := buildImage(1, 1000, layout.SectorSize())
	s, err := NewSectorStream(Sized(bytes.NewReader(data)), layout)
	require.NoError(t, err)

	// position inside the partial sector is physically readable, but not exposed
	require.NoError(t, s.SetPosition(int64(layout.ChunkSize)+10))
	n, err := s.Read(make([]byte, 10))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestSectorStreamClampsPastEnd(t *testing.T) {
	layout := Mode1()
	data := buildImage(2, 0, layout.SectorSize())
	src := Sized(bytes.NewReader(data))
	s, err := NewSectorStream(src, layout)
	require.NoError(t, err)

	// clamping is intentional: no error, position kept, source parked at its end
	for _, p := range []int64{2 * 2048, 2*2048 + 5, 1 << 40, 1<<62 + 3} {
		require.NoError(t, s.SetPosition(p))
		assert.Equal(t, p, s.Position())

		physical, err := src.Seek(0, io.SeekCurrent)
		require.NoError(t, err)
		assert.LessOrEqual(t, physical, int64(len(data)))

		n, err := s.Read(make([]byte, 1))
		assert.Equal(t, 0, n)
		assert.Equal(t, io.EOF, err)
	}
}

func TestSectorStreamSeek(t *testing.T) {
	layout := XAForm2()
	data := buildImage(3, 0, layout.SectorSize())
	s, err := NewSectorStream(Sized(bytes.NewReader(data)), layout)
	require.NoError(t, err)

	pos, err := s.Seek(3000, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), pos)

	pos, err = s.Seek(-1000, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), pos)

	pos, err = s.Seek(0, io.SeekEnd)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, int64(2000), pos)
	assert.Equal(t, int64(2000), s.Position())

	_, err = s.Seek(-2001, io.SeekCurrent)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Equal(t, int64(2000), s.Position())

	_, err = s.Seek(0, 42)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSectorStreamWriteUnsupported(t *testing.T) {
	data := buildImage(1, 0, RawSectorSize)
	s, err := NewSectorStream(Sized(bytes.NewReader(data)), Mode1())
	require.NoError(t, err)

	n, err := s.Write([]byte("data"))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, s.Truncate(0), ErrUnsupported)
}

func TestSectorStreamInvalidLayout(t *testing.T) {
	src := Sized(bytes.NewReader(nil))

	_, err := NewSectorStream(src, Layout{Name: "empty"})
	assert.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewSectorStream(src, Layout{Name: "no-payload", LeadIn: 16, TrailOut: 16})
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

// failingSource passes through to a reader but fails reads on demand.
type failingSource struct {
	Source
	err error
}

func (f *failingSource) Read(p []byte) (int, error) {
	return 0, f.err
}

func TestSectorStreamPropagatesSourceErrors(t *testing.T) {
	boom := errors.New("boom")
	data := buildImage(1, 0, RawSectorSize)
	s, err := NewSectorStream(&failingSource{Source: Sized(bytes.NewReader(data)), err: boom}, Mode1())
	require.NoError(t, err)

	n, err := s.Read(make([]byte, 10))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(0), s.Position())
}

type closeRecorder struct {
	Source
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestSectorStreamClose(t *testing.T) {
	src := &closeRecorder{Source: Sized(bytes.NewReader(nil))}
	s, err := NewSectorStream(src, Mode1())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.True(t, src.closed)
}

// sizeCounter counts how often the stream asks for the source length.
type sizeCounter struct {
	Source
	calls int
}

func (c *sizeCounter) Size() (int64, error) {
	c.calls++
	return c.Source.Size()
}

func TestSectorStreamReadMeasuresSourceOnce(t *testing.T) {
	data := buildImage(3, 0, RawSectorSize)
	src := &sizeCounter{Source: Sized(bytes.NewReader(data))}
	s, err := NewSectorStream(src, XAForm1())
	require.NoError(t, err)

	buf := make([]byte, 100)
	for i := 1; i <= 3; i++ {
		_, err := s.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, i, src.calls)
	}

	require.NoError(t, s.SetPosition(3*2048))
	src.calls = 0
	_, err = s.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 1, src.calls)
}
