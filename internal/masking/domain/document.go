package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// Format identifies how document content is laid out.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// LocationKind returns the span location kind that addresses content of this format.
func (f Format) LocationKind() spanDomain.LocationKind {
	switch f {
	case FormatPNG, FormatJPEG:
		return spanDomain.LocationImage
	default:
		return spanDomain.LocationText
	}
}

// Extension returns the file extension used for artifacts of this format.
func (f Format) Extension() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatCSV:
		return ".csv"
	case FormatPNG, FormatJPEG:
		return ".png"
	default:
		return ".bin"
	}
}

// Document is an input to masking.
type Document struct {
	Name    string
	Format  Format
	Content []byte
}

// PlaceholderStyle selects how masked text spans are rendered.
type PlaceholderStyle string

const (
	// PlaceholderLabel renders [LABEL].
	PlaceholderLabel PlaceholderStyle = "label"

	// PlaceholderTagged renders [ENC:LABEL_xxxxxxxx] with a tag unique per span.
	PlaceholderTagged PlaceholderStyle = "tagged"
)

// ParsePlaceholderStyle accepts a style name. Empty selects PlaceholderLabel.
func ParsePlaceholderStyle(raw string) (PlaceholderStyle, error) {
	switch PlaceholderStyle(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PlaceholderLabel:
		return PlaceholderLabel, nil
	case PlaceholderTagged:
		return PlaceholderTagged, nil
	default:
		return "", ErrInvalidPlaceholderStyle
	}
}

// Placeholder marks where a span was masked in an artifact. For text it carries the
// inserted text at its post-mask location; for images the location is the filled box.
type Placeholder struct {
	SpanID   string
	Label    spanDomain.Label
	Location spanDomain.Location
	Text     string
}

// MaskedArtifact is the masked document.
type MaskedArtifact struct {
	TaskID       uuid.UUID
	Name         string
	Format       Format
	Content      []byte
	Placeholders []Placeholder
}

// RecordVersion is the restoration record layout written by this build.
const RecordVersion = 1

// RecordEntry is everything needed to put one masked span back.
//
// Location is where the placeholder sits in the artifact (post-mask coordinates for
// text). SourceLocation is where the span was in the original document.
// EncryptedValue holds the sealed original text; EncryptedRegion holds the sealed
// original pixels of an image region when they were preserved.
type RecordEntry struct {
	SpanID          string
	Label           spanDomain.Label
	Confidence      float64
	Layers          []spanDomain.SourceLayer
	Location        spanDomain.Location
	SourceLocation  spanDomain.Location
	Placeholder     string
	EncryptedValue  []byte
	EncryptedRegion []byte
}

// RestorationRecord is the metadata that, together with the task key, reverses a mask.
// It names the key by id only.
type RestorationRecord struct {
	Version          int
	TaskID           uuid.UUID
	KeyID            uuid.UUID
	Algorithm        cryptoDomain.Algorithm
	Format           Format
	DocumentName     string
	PlaceholderStyle PlaceholderStyle
	CreatedAt        time.Time
	Entries          []RecordEntry
}
