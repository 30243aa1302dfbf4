package common

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Global variable to control debug output
var VerboseMode bool = false

func init() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
}

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// Error messages
const (
	ErrFailedToOpenImage        = "failed to open image"
	ErrFailedToCreateOutputFile = "failed to create output file"
	ErrFailedToCopyPayload      = "failed to copy sector payload"
	ErrFailedToOpenLayouts      = "failed to open layouts file"
	ErrFailedToLoadLayouts      = "failed to load layouts"
	ErrFailedToBuildRange       = "failed to build byte range"
	ErrFailedToBuildStream      = "failed to build sector stream"
	ErrFailedToReadInput        = "failed to read input file"
	ErrFailedToPatchImage       = "failed to patch image"
	ErrInvalidMSF               = "invalid MSF address"
	ErrConflictingRangeFlags    = "byte and sector range flags cannot be combined"
)

// Info messages
const (
	InfoRangeSelected    = "Selected byte range %d+%d of image"
	InfoPayloadExtracted = "Extracted %d payload bytes to %s"
	InfoImagePatched     = "Wrote %d bytes at offset %d"
	InfoLayoutsLoaded    = "Loaded %d custom layouts from %s"
)

// Debug messages
const (
	DebugLayoutSelected = "Using sector layout %s"
	DebugSectorRead     = "Read sector %d (%s)"
	DebugPayloadSectors = "Payload spans %d sectors"
)

// Warning messages
const (
	WarnTrailingBytes  = "Image has %d trailing bytes that do not form a whole sector"
	WarnPatchTruncated = "Patch truncated: %d of %d bytes did not fit into the range"
	WarnNoISO9660      = "No ISO9660 volume found: %v"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Infof(message, args...)
	} else {
		log.Info(message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Warnf(message, args...)
	} else {
		log.Warn(message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Errorf(message, args...)
	} else {
		log.Error(message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		log.Debugf(message, args...)
	} else {
		log.Debug(message)
	}
}

// LogFields logs a debug message with structured context
func LogFields(fields map[string]interface{}, message string) {
	if !VerboseMode {
		return
	}
	log.WithFields(log.Fields(fields)).Debug(message)
}

// FormatError creates a formatted error with additional context
func FormatError(baseMessage string, details interface{}) error {
	if err, ok := details.(error); ok {
		return fmt.Errorf("%s: %w", baseMessage, err)
	}
	return fmt.Errorf("%s: %v", baseMessage, details)
}

// FormatErrorString creates a formatted error with string details
func FormatErrorString(baseMessage, details string, args ...interface{}) error {
	if len(args) > 0 {
		return fmt.Errorf("%s: "+details, append([]interface{}{baseMessage}, args...)...)
	}
	return fmt.Errorf("%s: %s", baseMessage, details)
}
