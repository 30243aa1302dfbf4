// Package disc opens raw disc images as stream sources. Images may be stored
// compressed; those are decompressed into memory when opened.
package disc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hansbonini/sectorstream/pkg/common"
	"github.com/hansbonini/sectorstream/pkg/stream"
)

// Compressor names
const (
	CompressorNone   = ""
	CompressorGZip   = "gzip"
	CompressorZip    = "zip"
	Compressor7Zip   = "7z"
	CompressorZstd   = "zstd"
	CompressorLZ4    = "lz4"
	CompressorSnappy = "snappy"
)

var (
	// ErrCompressedImage is returned when a compressed image is opened for writing.
	ErrCompressedImage = errors.New("disc: compressed images are read-only")
	// ErrEmptyArchive is returned for zip and 7z archives without entries.
	ErrEmptyArchive = errors.New("disc: empty archive")
	// ErrImageTooLarge is returned when a compressed image expands past MaxImageSize.
	ErrImageTooLarge = errors.New("disc: decompressed image too large")
)

// MaxImageSize bounds the size of a compressed image once it is decompressed
// into memory. It is well above the capacity of any CD.
var MaxImageSize int64 = 2 << 30

// Image is an opened disc image. Reads and seeks go straight to the file for
// uncompressed images and to an in-memory copy otherwise.
type Image struct {
	stream.Source
	file       *os.File
	name       string
	compressor string
	writable   bool
}

// Name returns the image name without directory and compression extension.
func (i *Image) Name() string {
	return i.name
}

// Compressor returns the compressor the image was stored with, or "" if none.
func (i *Image) Compressor() string {
	return i.compressor
}

// Writable reports whether the image was opened for writing.
func (i *Image) Writable() bool {
	return i.writable
}

// Write writes at the current position of a writable image.
func (i *Image) Write(p []byte) (int, error) {
	w, ok := i.Source.(stream.WriteSource)
	if !i.writable || !ok {
		return 0, fmt.Errorf("%w: image %s opened read-only", stream.ErrUnsupported, i.name)
	}
	return w.Write(p)
}

// Close releases the underlying file, if any.
func (i *Image) Close() error {
	if i.file != nil {
		return i.file.Close()
	}
	return nil
}

// Open opens the disc image at path for reading.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	name, compressor := SplitNameCompressor(path)
	if compressor == CompressorNone {
		img := &Image{Source: stream.Sized(f), file: f, name: name}
		logOpened(img)
		return img, nil
	}

	defer f.Close()
	return decompress(f, name, compressor)
}

// OpenWritable opens an uncompressed disc image for reading and writing.
func OpenWritable(path string) (*Image, error) {
	name, compressor := SplitNameCompressor(path)
	if compressor != CompressorNone {
		return nil, fmt.Errorf("%w: %s", ErrCompressedImage, path)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	img := &Image{Source: stream.Sized(f), file: f, name: name, writable: true}
	logOpened(img)
	return img, nil
}

// NewImage reads an image from r. The compressor is taken from the extension
// of name.
func NewImage(r io.Reader, name string) (*Image, error) {
	base, compressor := SplitNameCompressor(name)
	return decompress(r, base, compressor)
}

func decompress(r io.Reader, name, compressor string) (*Image, error) {
	var sponge bytes.Buffer
	var err error

	switch compressor {
	case CompressorNone:
		err = fill(&sponge, r)

	case CompressorGZip:
		var gzr *gzip.Reader
		if gzr, err = gzip.NewReader(r); err != nil {
			return nil, err
		}
		if gzr.Name != "" {
			name, _ = SplitNameCompressor(gzr.Name)
		}
		err = fill(&sponge, gzr)
		if cerr := gzr.Close(); err == nil {
			err = cerr
		}

	case CompressorZstd:
		var dec *zstd.Decoder
		if dec, err = zstd.NewReader(r); err != nil {
			return nil, err
		}
		err = fill(&sponge, dec)
		dec.Close()

	case CompressorLZ4:
		err = fill(&sponge, lz4.NewReader(r))

	case CompressorSnappy:
		err = fill(&sponge, snappy.NewReader(r))

	case CompressorZip, Compressor7Zip:
		name, err = unarchive(r, compressor, &sponge)

	default:
		return nil, fmt.Errorf("unsupported compressor %q", compressor)
	}

	if err != nil {
		return nil, fmt.Errorf("%s image %s: %w", compressor, name, err)
	}

	img := &Image{
		Source:     stream.Sized(bytes.NewReader(sponge.Bytes())),
		name:       name,
		compressor: compressor,
	}
	logOpened(img)
	return img, nil
}

// unarchive extracts the first entry of a zip or 7z archive into sponge and
// returns its name.
func unarchive(r io.Reader, compressor string, sponge *bytes.Buffer) (string, error) {
	var archive bytes.Buffer
	size, err := io.Copy(&archive, r)
	if err != nil {
		return "", err
	}
	ra := bytes.NewReader(archive.Bytes())

	var entry string
	var rc io.ReadCloser

	if compressor == Compressor7Zip {
		zr, err := sevenzip.NewReader(ra, size)
		if err != nil {
			return "", err
		}
		if len(zr.File) == 0 {
			return "", ErrEmptyArchive
		}
		if len(zr.File) > 1 {
			common.LogWarn("7-zip archive has more than one entry, using first")
		}
		entry = zr.File[0].Name
		rc, err = zr.File[0].Open()
		if err != nil {
			return "", err
		}
	} else {
		zr, err := zip.NewReader(ra, size)
		if err != nil {
			return "", err
		}
		if len(zr.File) == 0 {
			return "", ErrEmptyArchive
		}
		if len(zr.File) > 1 {
			common.LogWarn("zip archive has more than one entry, using first")
		}
		entry = zr.File[0].Name
		rc, err = zr.File[0].Open()
		if err != nil {
			return "", err
		}
	}
	defer rc.Close()

	name, _ := SplitNameCompressor(entry)
	return name, fill(sponge, rc)
}

// fill decompresses r into sponge, failing once more than MaxImageSize
// bytes come out.
func fill(sponge *bytes.Buffer, r io.Reader) error {
	n, err := io.Copy(sponge, io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return err
	}
	if n > MaxImageSize {
		return fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, MaxImageSize)
	}
	return nil
}

func logOpened(img *Image) {
	size, _ := img.Size()
	common.LogFields(map[string]interface{}{
		"name":       img.name,
		"compressor": img.compressor,
		"size":       size,
		"writable":   img.Writable(),
	}, "disc image opened")
}

// SplitNameCompressor splits a path into the image name (without directory
// and compression extension) and the compressor implied by the extension.
func SplitNameCompressor(path string) (name, compressor string) {
	_, name = filepath.Split(path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))

	switch ext {
	case "gz", "gzip":
		compressor = CompressorGZip
	case "zip":
		compressor = CompressorZip
	case "7z":
		compressor = Compressor7Zip
	case "zst", "zstd":
		compressor = CompressorZstd
	case "lz4":
		compressor = CompressorLZ4
	case "sz", "snappy":
		compressor = CompressorSnappy
	default:
		return name, CompressorNone
	}
	return strings.TrimSuffix(name, filepath.Ext(name)), compressor
}
