// Package service serializes restoration records. The format is self-describing JSON
// validated against an embedded JSON Schema on the way in; it never contains key
// material, only the key id.
package service

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// SchemaURL identifies the embedded schema.
const SchemaURL = "https://piimask.local/schema/restoration_record.v1.json"

// ContentType is the media type used when serving metadata files.
const ContentType = "application/json"

//go:embed schema/restoration_record.v1.json
var schemaJSON []byte

// Schema returns the raw JSON Schema for restoration records.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

// Codec encodes and decodes restoration records.
type Codec interface {
	Marshal(record *maskingDomain.RestorationRecord) ([]byte, error)
	Unmarshal(data []byte) (*maskingDomain.RestorationRecord, error)
}

// JSONCodec implements Codec.
type JSONCodec struct {
	schema *jsonschema.Schema
}

// NewJSONCodec compiles the embedded schema.
func NewJSONCodec() (*JSONCodec, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(SchemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add restoration record schema: %w", err)
	}
	schema, err := compiler.Compile(SchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile restoration record schema: %w", err)
	}
	return &JSONCodec{schema: schema}, nil
}

type recordJSON struct {
	FormatVersion    int          `json:"format_version"`
	TaskID           string       `json:"task_id"`
	KeyRef           keyRefJSON   `json:"key_ref"`
	Document         documentJSON `json:"document"`
	PlaceholderStyle string       `json:"placeholder_style"`
	CreatedAt        time.Time    `json:"created_at"`
	Entries          []entryJSON  `json:"entries"`
}

type keyRefJSON struct {
	KeyID     string `json:"key_id"`
	Algorithm string `json:"algorithm"`
}

type documentJSON struct {
	Name   string `json:"name,omitempty"`
	Format string `json:"format"`
}

type entryJSON struct {
	SpanID          string        `json:"span_id"`
	Label           string        `json:"label"`
	Confidence      float64       `json:"confidence"`
	Layers          []string      `json:"layers,omitempty"`
	Location        locationJSON  `json:"location"`
	SourceLocation  *locationJSON `json:"source_location,omitempty"`
	Placeholder     string        `json:"placeholder,omitempty"`
	EncryptedValue  []byte        `json:"encrypted_value"`
	EncryptedRegion []byte        `json:"encrypted_region,omitempty"`
}

type locationJSON struct {
	Kind  string   `json:"kind"`
	Start *int     `json:"start,omitempty"`
	End   *int     `json:"end,omitempty"`
	Page  *int     `json:"page,omitempty"`
	Box   *boxJSON `json:"box,omitempty"`
}

type boxJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Marshal validates the record and renders indented JSON.
func (c *JSONCodec) Marshal(record *maskingDomain.RestorationRecord) ([]byte, error) {
	if err := record.Validate(); err != nil {
		return nil, err
	}

	out := recordJSON{
		FormatVersion:    record.Version,
		TaskID:           record.TaskID.String(),
		KeyRef:           keyRefJSON{KeyID: record.KeyID.String(), Algorithm: string(record.Algorithm)},
		Document:         documentJSON{Name: record.DocumentName, Format: string(record.Format)},
		PlaceholderStyle: string(record.PlaceholderStyle),
		CreatedAt:        record.CreatedAt,
		Entries:          make([]entryJSON, 0, len(record.Entries)),
	}
	if out.PlaceholderStyle == "" {
		out.PlaceholderStyle = string(maskingDomain.PlaceholderLabel)
	}

	for _, e := range record.Entries {
		ej := entryJSON{
			SpanID:          e.SpanID,
			Label:           string(e.Label),
			Confidence:      e.Confidence,
			Location:        encodeLocation(e.Location),
			Placeholder:     e.Placeholder,
			EncryptedValue:  e.EncryptedValue,
			EncryptedRegion: e.EncryptedRegion,
		}
		for _, l := range e.Layers {
			ej.Layers = append(ej.Layers, string(l))
		}
		if e.SourceLocation.Kind != "" {
			src := encodeLocation(e.SourceLocation)
			ej.SourceLocation = &src
		}
		out.Entries = append(out.Entries, ej)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode restoration record: %w", err)
	}
	return data, nil
}

// Unmarshal checks data against the schema, decodes it and validates the result.
func (c *JSONCodec) Unmarshal(data []byte) (*maskingDomain.RestorationRecord, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: not JSON: %v", maskingDomain.ErrInvalidRecord, err)
	}
	if err := c.schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", maskingDomain.ErrInvalidRecord, err)
	}

	var in recordJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", maskingDomain.ErrInvalidRecord, err)
	}

	taskID, err := uuid.Parse(in.TaskID)
	if err != nil {
		return nil, fmt.Errorf("%w: task id: %v", maskingDomain.ErrInvalidRecord, err)
	}
	keyID, err := uuid.Parse(in.KeyRef.KeyID)
	if err != nil {
		return nil, fmt.Errorf("%w: key id: %v", maskingDomain.ErrInvalidRecord, err)
	}

	record := &maskingDomain.RestorationRecord{
		Version:          in.FormatVersion,
		TaskID:           taskID,
		KeyID:            keyID,
		Algorithm:        cryptoDomain.Algorithm(in.KeyRef.Algorithm),
		Format:           maskingDomain.Format(in.Document.Format),
		DocumentName:     in.Document.Name,
		PlaceholderStyle: maskingDomain.PlaceholderStyle(in.PlaceholderStyle),
		CreatedAt:        in.CreatedAt,
		Entries:          make([]maskingDomain.RecordEntry, 0, len(in.Entries)),
	}

	for _, ej := range in.Entries {
		e := maskingDomain.RecordEntry{
			SpanID:          ej.SpanID,
			Label:           spanDomain.Label(ej.Label),
			Confidence:      ej.Confidence,
			Location:        decodeLocation(ej.Location),
			Placeholder:     ej.Placeholder,
			EncryptedValue:  ej.EncryptedValue,
			EncryptedRegion: ej.EncryptedRegion,
		}
		for _, l := range ej.Layers {
			e.Layers = append(e.Layers, spanDomain.SourceLayer(l))
		}
		if ej.SourceLocation != nil {
			e.SourceLocation = decodeLocation(*ej.SourceLocation)
		}
		record.Entries = append(record.Entries, e)
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func encodeLocation(loc spanDomain.Location) locationJSON {
	out := locationJSON{Kind: string(loc.Kind)}
	switch loc.Kind {
	case spanDomain.LocationText:
		start, end := loc.Text.Start, loc.Text.End
		out.Start, out.End = &start, &end
	case spanDomain.LocationImage:
		page := loc.Image.Page
		b := loc.Image.Box
		out.Page = &page
		out.Box = &boxJSON{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
	}
	return out
}

func decodeLocation(in locationJSON) spanDomain.Location {
	switch spanDomain.LocationKind(in.Kind) {
	case spanDomain.LocationText:
		return spanDomain.TextLocation(deref(in.Start), deref(in.End))
	case spanDomain.LocationImage:
		box := spanDomain.BoundingBox{}
		if in.Box != nil {
			box = spanDomain.BoundingBox{X: in.Box.X, Y: in.Box.Y, Width: in.Box.Width, Height: in.Box.Height}
		}
		return spanDomain.ImageLocation(deref(in.Page), box)
	default:
		return spanDomain.Location{Kind: spanDomain.LocationKind(in.Kind)}
	}
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
