package disc

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hansbonini/sectorstream/pkg/stream"
)

func rawImage(sectors int) []byte {
	data := make([]byte, sectors*stream.RawSectorSize)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSplitNameCompressor(t *testing.T) {
	testCases := []struct {
		path, name, compressor string
	}{
		{"/images/game.bin", "game.bin", CompressorNone},
		{"game.bin.gz", "game.bin", CompressorGZip},
		{"GAME.BIN.GZIP", "GAME.BIN", CompressorGZip},
		{"dir/game.zip", "game", CompressorZip},
		{"game.7z", "game", Compressor7Zip},
		{"game.bin.zst", "game.bin", CompressorZstd},
		{"game.bin.lz4", "game.bin", CompressorLZ4},
		{"game.bin.sz", "game.bin", CompressorSnappy},
		{"game", "game", CompressorNone},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			name, compressor := SplitNameCompressor(tc.path)
			assert.Equal(t, tc.name, name)
			assert.Equal(t, tc.compressor, compressor)
		})
	}
}

func TestOpenUncompressed(t *testing.T) {
	data := rawImage(3)
	img, err := Open(writeFile(t, "track01.bin", data))
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, "track01.bin", img.Name())
	assert.Equal(t, CompressorNone, img.Compressor())
	assert.False(t, img.Writable())

	size, err := img.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	got, err := io.ReadAll(img)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = img.Write([]byte{1})
	assert.ErrorIs(t, err, stream.ErrUnsupported)
}

func compress(t *testing.T, compressor string, name string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	switch compressor {
	case CompressorGZip:
		w := gzip.NewWriter(&buf)
		w.Name = name
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case CompressorZstd:
		w, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case CompressorLZ4:
		w := lz4.NewWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case CompressorSnappy:
		w := snappy.NewBufferedWriter(&buf)
		_, err := w.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	case CompressorZip:
		w := zip.NewWriter(&buf)
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	default:
		t.Fatalf("no test writer for %q", compressor)
	}
	return buf.Bytes()
}

func TestOpenCompressed(t *testing.T) {
	data := rawImage(4)
	testCases := []struct {
		file       string
		compressor string
		name       string
	}{
		{"disc.bin.gz", CompressorGZip, "inner.bin"},
		{"disc.bin.zst", CompressorZstd, "disc.bin"},
		{"disc.bin.lz4", CompressorLZ4, "disc.bin"},
		{"disc.bin.sz", CompressorSnappy, "disc.bin"},
		{"disc.zip", CompressorZip, "inner.bin"},
	}

	for _, tc := range testCases {
		t.Run(tc.compressor, func(t *testing.T) {
			path := writeFile(t, tc.file, compress(t, tc.compressor, "inner.bin", data))

			img, err := Open(path)
			require.NoError(t, err)
			defer img.Close()

			assert.Equal(t, tc.compressor, img.Compressor())
			assert.Equal(t, tc.name, img.Name())

			size, err := img.Size()
			require.NoError(t, err)
			assert.Equal(t, int64(len(data)), size)

			// random access works on the decompressed copy
			_, err = img.Seek(int64(stream.RawSectorSize)+24, io.SeekStart)
			require.NoError(t, err)
			buf := make([]byte, 8)
			_, err = io.ReadFull(img, buf)
			require.NoError(t, err)
			assert.Equal(t, data[stream.RawSectorSize+24:stream.RawSectorSize+32], buf)
		})
	}
}

func TestOpenSevenZip(t *testing.T) {
	data := rawImage(1)

	img, err := Open(filepath.Join("testdata", "inner.7z"))
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, Compressor7Zip, img.Compressor())
	assert.Equal(t, "inner.bin", img.Name())

	size, err := img.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)

	got, err := io.ReadAll(img)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOpenSevenZipUsesFirstEntry(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	// two.7z holds first.bin (two raw sectors) and second.bin (100 bytes)
	img, err := Open(filepath.Join("testdata", "two.7z"))
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, "first.bin", img.Name())
	got, err := io.ReadAll(img)
	require.NoError(t, err)
	assert.Equal(t, rawImage(2), got)
	assert.Contains(t, logs.String(), "more than one entry, using first")
}

func TestOpenRejectsOversizedImage(t *testing.T) {
	defer func(limit int64) { MaxImageSize = limit }(MaxImageSize)
	data := rawImage(1)
	gz := writeFile(t, "disc.bin.gz", compress(t, CompressorGZip, "disc.bin", data))

	MaxImageSize = int64(len(data))
	img, err := Open(gz)
	require.NoError(t, err)
	require.NoError(t, img.Close())

	MaxImageSize = int64(len(data)) - 1
	_, err = Open(gz)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = Open(filepath.Join("testdata", "inner.7z"))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = NewImage(bytes.NewReader(data), "raw.bin")
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestNewImage(t *testing.T) {
	data := rawImage(1)
	img, err := NewImage(bytes.NewReader(compress(t, CompressorZstd, "", data)), "stdin.bin.zst")
	require.NoError(t, err)

	assert.Equal(t, "stdin.bin", img.Name())
	got, err := io.ReadAll(img)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.NoError(t, img.Close())
}

func TestOpenCorruptAndEmpty(t *testing.T) {
	_, err := Open(writeFile(t, "broken.bin.gz", []byte("not gzip at all")))
	assert.Error(t, err)

	var empty bytes.Buffer
	require.NoError(t, zip.NewWriter(&empty).Close())
	_, err = Open(writeFile(t, "empty.zip", empty.Bytes()))
	assert.ErrorIs(t, err, ErrEmptyArchive)

	_, err = Open(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenWritable(t *testing.T) {
	data := rawImage(2)
	path := writeFile(t, "patch.bin", data)

	img, err := OpenWritable(path)
	require.NoError(t, err)
	assert.True(t, img.Writable())

	view, err := stream.NewRangeView(img, 100, 4)
	require.NoError(t, err)
	n, err := view.Write([]byte("ABCD"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, img.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCD"), raw[100:104])
	assert.Equal(t, data[:100], raw[:100])
	assert.Equal(t, data[104:], raw[104:])

	_, err = OpenWritable(path + ".gz")
	assert.ErrorIs(t, err, ErrCompressedImage)
}
