// Package cmd provides command-line interface for CD image processing.
// This file contains commands for extracting, inspecting and patching raw
// CD images through the sector-mapped stream layer.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hansbonini/sectorstream/pkg/common"
	"github.com/hansbonini/sectorstream/pkg/disc"
	"github.com/hansbonini/sectorstream/pkg/psx"
	"github.com/hansbonini/sectorstream/pkg/stream"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// rangeOptions selects the part of a physical image to work on. Sector and
// byte flags are mutually exclusive; zero counts mean "to the end".
type rangeOptions struct {
	StartSector uint64
	Sectors     uint64
	StartMSF    string
	Offset      uint64
	Length      uint64
}

func (o rangeOptions) bySector() bool {
	return o.StartSector != 0 || o.Sectors != 0 || o.StartMSF != ""
}

func (o rangeOptions) byByte() bool {
	return o.Offset != 0 || o.Length != 0
}

// resolve converts the options into a physical byte range of an image of
// the given size. ok is false when the whole image is selected.
func (o rangeOptions) resolve(size int64, layout stream.Layout) (start, length int64, ok bool, err error) {
	if o.bySector() && o.byByte() {
		return 0, 0, false, errors.New(common.ErrConflictingRangeFlags)
	}

	var first, count uint64
	switch {
	case o.bySector():
		first = o.StartSector
		if o.StartMSF != "" {
			lba, err := common.MSFToLBA(o.StartMSF)
			if err != nil {
				return 0, 0, false, err
			}
			first = uint64(lba)
		}
		sectorSize := uint64(layout.SectorSize())
		if first > uint64(size)/sectorSize || o.Sectors > uint64(size)/sectorSize {
			return 0, 0, false, common.FormatErrorString(common.ErrFailedToBuildRange,
				"sector range %d+%d beyond image of %d sectors", first, o.Sectors, size/layout.SectorSize())
		}
		first *= sectorSize
		count = o.Sectors * sectorSize
	case o.byByte():
		first, count = o.Offset, o.Length
	default:
		return 0, size, false, nil
	}

	if start, err = common.SafeUint64ToInt64(first); err != nil {
		return 0, 0, false, common.FormatError(common.ErrFailedToBuildRange, err)
	}
	if length, err = common.SafeUint64ToInt64(count); err != nil {
		return 0, 0, false, common.FormatError(common.ErrFailedToBuildRange, err)
	}
	if start > size {
		return 0, 0, false, common.FormatErrorString(common.ErrFailedToBuildRange,
			"start %d beyond image size %d", start, size)
	}
	if length == 0 || length > size-start {
		length = size - start
	}
	return start, length, true, nil
}

// openPayload wraps an image in an optional range view and a sector stream.
func openPayload(img stream.Source, layout stream.Layout, opts rangeOptions) (*stream.SectorStream, error) {
	size, err := img.Size()
	if err != nil {
		return nil, err
	}
	start, length, ranged, err := opts.resolve(size, layout)
	if err != nil {
		return nil, err
	}

	src := img
	if ranged {
		common.LogInfo(common.InfoRangeSelected, start, length)
		if src, err = stream.NewRangeView(img, start, length); err != nil {
			return nil, common.FormatError(common.ErrFailedToBuildRange, err)
		}
	}

	s, err := stream.NewSectorStream(src, layout)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToBuildStream, err)
	}
	common.LogDebug(common.DebugLayoutSelected, layout)
	return s, nil
}

// extractPayload copies the logical payload of inputFile to outputFile.
func extractPayload(inputFile, outputFile string, layout stream.Layout, opts rangeOptions) (int64, error) {
	img, err := disc.Open(inputFile)
	if err != nil {
		return 0, common.FormatError(common.ErrFailedToOpenImage, err)
	}
	defer img.Close()

	payload, err := openPayload(img, layout, opts)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return 0, common.FormatError(common.ErrFailedToCreateOutputFile, err)
	}
	defer out.Close()

	n, err := io.Copy(out, payload)
	if err != nil {
		return n, common.FormatError(common.ErrFailedToCopyPayload, err)
	}
	return n, out.Close()
}

// volumeInfo is the ISO9660 part of the info report
type volumeInfo struct {
	System    string `yaml:"system"`
	Volume    string `yaml:"volume"`
	Blocks    uint32 `yaml:"blocks"`
	BlockSize uint16 `yaml:"block_size"`
	RootLBA   uint32 `yaml:"root_lba"`
	RootMSF   string `yaml:"root_msf"`
}

// imageInfo is the report printed by 'cd info'
type imageInfo struct {
	Name          string        `yaml:"name"`
	Compressor    string        `yaml:"compressor,omitempty"`
	Layout        stream.Layout `yaml:"layout"`
	PhysicalSize  int64         `yaml:"physical_size"`
	Sectors       int64         `yaml:"sectors"`
	TrailingBytes int64         `yaml:"trailing_bytes"`
	LogicalSize   int64         `yaml:"logical_size"`
	EndMSF        string        `yaml:"end_msf"`
	Volume        *volumeInfo   `yaml:"volume,omitempty"`
}

// describeImage collects geometry and volume information for an image.
func describeImage(img *disc.Image, layout stream.Layout) (*imageInfo, error) {
	physical, err := img.Size()
	if err != nil {
		return nil, err
	}
	reader, err := psx.NewCDReader(img, layout)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToBuildStream, err)
	}
	logical, err := reader.Stream().Size()
	if err != nil {
		return nil, err
	}

	info := &imageInfo{
		Name:          img.Name(),
		Compressor:    img.Compressor(),
		Layout:        layout,
		PhysicalSize:  physical,
		Sectors:       reader.TotalSectors(),
		TrailingBytes: physical % layout.SectorSize(),
		LogicalSize:   logical,
	}
	if lba, err := common.SafeInt64ToUint32(reader.TotalSectors()); err == nil {
		info.EndMSF = common.LBAToMSF(lba)
	}
	if info.TrailingBytes != 0 {
		common.LogWarn(common.WarnTrailingBytes, info.TrailingBytes)
	}

	descriptor, err := reader.ReadISODescriptor()
	if err != nil {
		common.LogDebug(common.WarnNoISO9660, err)
		return info, nil
	}
	rootLBA := common.ExtractLBAFromDirRecord(descriptor.RootDirRecord[:])
	info.Volume = &volumeInfo{
		System:    descriptor.SystemName(),
		Volume:    descriptor.VolumeName(),
		Blocks:    descriptor.VolumeSpaceSize,
		BlockSize: descriptor.LogicalBlockSize,
		RootLBA:   rootLBA,
		RootMSF:   common.LBAToMSF(rootLBA),
	}
	return info, nil
}

// patchImage writes the contents of inputFile into imageFile at offset,
// never past offset+length. It returns the number of bytes written.
func patchImage(imageFile, inputFile string, offset, length int64) (int, error) {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return 0, common.FormatError(common.ErrFailedToReadInput, err)
	}
	if length == 0 {
		length = int64(len(data))
	}

	img, err := disc.OpenWritable(imageFile)
	if err != nil {
		return 0, common.FormatError(common.ErrFailedToOpenImage, err)
	}
	defer img.Close()

	size, err := img.Size()
	if err != nil {
		return 0, common.FormatError(common.ErrFailedToOpenImage, err)
	}
	if offset > size {
		return 0, common.FormatErrorString(common.ErrFailedToBuildRange,
			"offset %d beyond image size %d", offset, size)
	}
	if length > size-offset {
		length = size - offset
	}

	view, err := stream.NewRangeView(img, offset, length)
	if err != nil {
		return 0, common.FormatError(common.ErrFailedToBuildRange, err)
	}

	n, err := view.Write(data)
	if errors.Is(err, io.ErrShortWrite) {
		common.LogWarn(common.WarnPatchTruncated, len(data)-n, len(data))
		err = nil
	}
	if err != nil {
		return n, common.FormatError(common.ErrFailedToPatchImage, err)
	}
	return n, img.Close()
}

// cdCmd represents the parent command for all CD image operations.
var cdCmd = &cobra.Command{
	Use:   "cd",
	Short: "Process raw CD image files",
	Long: `Process raw CD image files (2352-byte sectors).

Commands:
  extract   Copy the logical payload of an image or a range of it
  info      Show image geometry and ISO9660 volume information
  patch     Overwrite a byte range of a raw image

Examples:
  sectorstream cd extract original.bin payload.iso
  sectorstream cd info original.bin`,
}

// cdExtractCmd copies the logical payload of a CD image to a file.
var cdExtractCmd = &cobra.Command{
	Use:   "extract [input_file] [output_file]",
	Short: "Extract the logical payload of a CD image",
	Long: `Extract the logical payload of a CD image.

Every physical sector contributes only its payload chunk; sync patterns,
headers, subheaders and EDC/ECC bytes are skipped. A trailing partial sector
is ignored.

The physical range to read can be restricted either by sectors
(--start-sector or --start-msf, --sectors) or by bytes (--offset, --length).

Example:
  sectorstream cd extract original.bin payload.iso
  sectorstream cd extract --mode mode2 --start-msf 00:04:00 --sectors 75 original.bin second.raw`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		inputFile := args[0]
		outputFile := args[1]

		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")
		layout, err := registry.Lookup(mode)
		if err != nil {
			return err
		}
		opts, err := rangeFlags(cmd)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Processing CD image file: %s\n", inputFile)
		fmt.Fprintf(cmd.OutOrStdout(), "Sector layout: %s\n", layout)

		n, err := extractPayload(inputFile, outputFile, layout, opts)
		if err != nil {
			return fmt.Errorf("failed to process CD image file: %w", err)
		}

		common.LogInfo(common.InfoPayloadExtracted, n, outputFile)
		if size, err := common.SafeInt64ToUint32(n); err == nil {
			common.LogDebug(common.DebugPayloadSectors, common.GetSizeInSectors(size, layout.ChunkSize))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d bytes to: %s\n", n, outputFile)
		return nil
	},
}

// cdInfoCmd prints geometry and volume information for a CD image.
var cdInfoCmd = &cobra.Command{
	Use:   "info [input_file]",
	Short: "Show CD image geometry and volume information",
	Long: `Show CD image geometry and volume information as YAML.

Reports the physical size, the number of whole sectors, trailing bytes that
do not form a sector, the logical payload size for the selected layout and,
when present, the ISO9660 primary volume descriptor.

Example:
  sectorstream cd info original.bin
  sectorstream cd info --mode mode1 game.bin.gz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry(cmd)
		if err != nil {
			return err
		}
		mode, _ := cmd.Flags().GetString("mode")
		layout, err := registry.Lookup(mode)
		if err != nil {
			return err
		}

		img, err := disc.Open(args[0])
		if err != nil {
			return common.FormatError(common.ErrFailedToOpenImage, err)
		}
		defer img.Close()

		info, err := describeImage(img, layout)
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	},
}

// cdPatchCmd overwrites a byte range of a raw CD image.
var cdPatchCmd = &cobra.Command{
	Use:   "patch [image_file] [input_file]",
	Short: "Overwrite a byte range of a raw CD image",
	Long: `Overwrite a byte range of a raw (uncompressed) CD image with the
contents of a file.

The range starts at --offset and spans --length bytes (default: the size of
the input file). Input bytes that do not fit into the range are dropped and
reported; the image never grows. Sector EDC/ECC is not recomputed.

Example:
  sectorstream cd patch --offset 37632 original.bin sector16.raw`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		offset, _ := cmd.Flags().GetUint64("offset")
		length, _ := cmd.Flags().GetUint64("length")

		start, err := common.SafeUint64ToInt64(offset)
		if err != nil {
			return err
		}
		size, err := common.SafeUint64ToInt64(length)
		if err != nil {
			return err
		}

		n, err := patchImage(args[0], args[1], start, size)
		if err != nil {
			return err
		}
		common.LogInfo(common.InfoImagePatched, n, start)
		fmt.Fprintf(cmd.OutOrStdout(), "Patched %d bytes at offset %d of %s\n", n, start, args[0])
		return nil
	},
}

// rangeFlags reads the range selection flags of a command.
func rangeFlags(cmd *cobra.Command) (rangeOptions, error) {
	var opts rangeOptions
	var err error
	if opts.StartSector, err = cmd.Flags().GetUint64("start-sector"); err != nil {
		return opts, err
	}
	if opts.Sectors, err = cmd.Flags().GetUint64("sectors"); err != nil {
		return opts, err
	}
	if opts.StartMSF, err = cmd.Flags().GetString("start-msf"); err != nil {
		return opts, err
	}
	if opts.Offset, err = cmd.Flags().GetUint64("offset"); err != nil {
		return opts, err
	}
	if opts.Length, err = cmd.Flags().GetUint64("length"); err != nil {
		return opts, err
	}
	return opts, nil
}

// init initializes the CD command with its subcommands and flags.
func init() {
	rootCmd.AddCommand(cdCmd)
	cdCmd.AddCommand(cdExtractCmd, cdInfoCmd, cdPatchCmd)

	for _, c := range []*cobra.Command{cdExtractCmd, cdInfoCmd} {
		c.Flags().StringP("mode", "m", stream.XAForm1().Name, "Sector layout name")
	}

	cdExtractCmd.Flags().Uint64("start-sector", 0, "First physical sector to read")
	cdExtractCmd.Flags().Uint64("sectors", 0, "Number of physical sectors to read (0 = to end)")
	cdExtractCmd.Flags().String("start-msf", "", "First physical sector as mm:ss:ff (includes the 2 second pregap)")
	cdExtractCmd.Flags().Uint64("offset", 0, "First physical byte to read")
	cdExtractCmd.Flags().Uint64("length", 0, "Number of physical bytes to read (0 = to end)")

	cdPatchCmd.Flags().Uint64("offset", 0, "Byte offset in the image")
	cdPatchCmd.Flags().Uint64("length", 0, "Length of the writable range (0 = input size)")
}
