// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	detectionService "github.com/allisson/piimask/internal/detection/service"
	"github.com/allisson/piimask/internal/errors"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	maskingService "github.com/allisson/piimask/internal/masking/service"
	selectionDomain "github.com/allisson/piimask/internal/selection/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
	customValidation "github.com/allisson/piimask/internal/validation"
)

var (
	formatNames    = []any{"", "text", "txt", "csv", "png", "jpeg", "jpg"}
	algorithmNames = []any{"", string(cryptoDomain.AESGCM), string(cryptoDomain.ChaCha20)}
	styleNames     = []any{"", string(maskingDomain.PlaceholderLabel), string(maskingDomain.PlaceholderTagged)}
)

// MaskOptions are the knobs shared by JSON and multipart mask requests.
type MaskOptions struct {
	Format           string   `json:"format,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	AllCategories    bool     `json:"all_categories,omitempty"`
	Algorithm        string   `json:"algorithm,omitempty"`
	PlaceholderStyle string   `json:"placeholder_style,omitempty"`
	PreserveRegions  *bool    `json:"preserve_regions,omitempty"`
}

// Validate checks option values against the supported names.
func (o *MaskOptions) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Format, validation.In(formatNames...)),
		validation.Field(&o.Categories, validation.Each(customValidation.CategoryLabel)),
		validation.Field(&o.Algorithm, validation.In(algorithmNames...)),
		validation.Field(&o.PlaceholderStyle, validation.In(styleNames...)),
	)
}

// ToMaskInput builds a use case input around already decoded content. A nil spans
// slice asks the use case to run detection.
func (o *MaskOptions) ToMaskInput(name string, content []byte, spans []spanDomain.Span) (*taskDomain.MaskInput, error) {
	input := &taskDomain.MaskInput{
		DocumentName:    name,
		Content:         content,
		Spans:           spans,
		Categories:      selectionDomain.ParseLabels(o.Categories),
		AllCategories:   o.AllCategories,
		PreserveRegions: o.PreserveRegions,
	}

	var err error
	if o.Format != "" {
		if input.Format, err = maskingService.ParseFormat(o.Format); err != nil {
			return nil, err
		}
	}
	if o.Algorithm != "" {
		if input.Algorithm, err = cryptoDomain.ParseAlgorithm(o.Algorithm); err != nil {
			return nil, err
		}
	}
	if o.PlaceholderStyle != "" {
		if input.PlaceholderStyle, err = maskingDomain.ParsePlaceholderStyle(o.PlaceholderStyle); err != nil {
			return nil, err
		}
	}
	return input, nil
}

// MaskTaskRequest is the JSON form of POST /v1/tasks. Content is base64 encoded.
// Omitting spans runs the built-in detectors; an empty array masks nothing.
type MaskTaskRequest struct {
	MaskOptions
	DocumentName string                      `json:"document_name"`
	Content      string                      `json:"content"`
	Spans        []detectionService.SpanJSON `json:"spans"`
}

// Validate checks if the mask request is valid.
func (r *MaskTaskRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.DocumentName,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
			validation.Length(1, 255),
		),
		validation.Field(&r.Content, validation.Required, customValidation.Base64),
	)
	if err != nil {
		return err
	}
	return r.MaskOptions.Validate()
}

// ToMaskInput decodes the content and spans.
func (r *MaskTaskRequest) ToMaskInput() (*taskDomain.MaskInput, error) {
	content, err := base64.StdEncoding.DecodeString(r.Content)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "content: %v", err)
	}

	var spans []spanDomain.Span
	if r.Spans != nil {
		spans = make([]spanDomain.Span, 0, len(r.Spans))
		for _, s := range r.Spans {
			spans = append(spans, s.ToDomain())
		}
	}
	return r.MaskOptions.ToMaskInput(r.DocumentName, content, spans)
}

// RestoreTaskRequest carries the key file for restoring a stored task.
type RestoreTaskRequest struct {
	KeyFile string `json:"key_file"`
}

// Validate checks if the restore task request is valid.
func (r *RestoreTaskRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.KeyFile, validation.Required, customValidation.KeyFile),
	)
}

// RestoreRequest is the JSON form of POST /v1/restore. Artifact and metadata are base64.
type RestoreRequest struct {
	MaskedArtifact string `json:"masked_artifact"`
	MetadataFile   string `json:"metadata_file"`
	KeyFile        string `json:"key_file"`
}

// Validate checks if the restore request is valid.
func (r *RestoreRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.MaskedArtifact, validation.Required, customValidation.Base64),
		validation.Field(&r.MetadataFile, validation.Required, customValidation.Base64),
		validation.Field(&r.KeyFile, validation.Required, customValidation.KeyFile),
	)
}

// ToRestoreInput decodes the base64 fields.
func (r *RestoreRequest) ToRestoreInput() (*taskDomain.RestoreInput, error) {
	artifact, err := base64.StdEncoding.DecodeString(r.MaskedArtifact)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "masked_artifact: %v", err)
	}
	metadata, err := base64.StdEncoding.DecodeString(r.MetadataFile)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "metadata_file: %v", err)
	}
	return &taskDomain.RestoreInput{Artifact: artifact, Metadata: metadata, KeyFile: r.KeyFile}, nil
}
