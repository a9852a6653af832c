package domain

import (
	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// MaskInput describes one document to mask.
//
// A nil Spans slice runs the built-in detectors; a non-nil one (even empty) is used
// as given. Empty Format is sniffed from Content and DocumentName. Empty Categories
// fall back to the configured selectable set unless AllCategories is set. Zero
// Algorithm and PlaceholderStyle use the configured defaults.
type MaskInput struct {
	DocumentName     string
	Format           maskingDomain.Format
	Content          []byte
	Spans            []spanDomain.Span
	Categories       []spanDomain.Label
	AllCategories    bool
	Algorithm        cryptoDomain.Algorithm
	PlaceholderStyle maskingDomain.PlaceholderStyle
	PreserveRegions  *bool
}

// MaskOutput is returned once per task. KeyFile is the only copy of the task key.
type MaskOutput struct {
	Task     *Task
	KeyFile  string
	Artifact []byte
	Metadata []byte
	Summary  maskingDomain.Summary
}

// RestoreInput is the restoration triple.
type RestoreInput struct {
	Artifact []byte
	Metadata []byte
	KeyFile  string
}

// RestoreOutput is a restored document.
type RestoreOutput struct {
	TaskID       uuid.UUID
	DocumentName string
	Format       maskingDomain.Format
	Content      []byte
	// Restored is the number of masked spans recovered.
	Restored int
	// Revealed counts recovered values that could not be written back into an image.
	Revealed int
}
