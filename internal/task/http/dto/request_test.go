package dto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	detectionService "github.com/allisson/piimask/internal/detection/service"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func TestMaskTaskRequest_Validate(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		req := MaskTaskRequest{
			DocumentName: "contact.txt",
			Content:      encode("Contact John Tan"),
			MaskOptions: MaskOptions{
				Categories:       []string{"NAME", "bank_account"},
				Algorithm:        "chacha20-poly1305",
				PlaceholderStyle: "tagged",
				Format:           "txt",
			},
		}

		assert.NoError(t, req.Validate())
	})

	t.Run("Error_MissingDocumentName", func(t *testing.T) {
		req := MaskTaskRequest{Content: encode("x")}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "document_name")
	})

	t.Run("Error_PaddedDocumentName", func(t *testing.T) {
		req := MaskTaskRequest{DocumentName: " a.txt", Content: encode("x")}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "leading or trailing whitespace")
	})

	t.Run("Error_InvalidBase64", func(t *testing.T) {
		req := MaskTaskRequest{DocumentName: "a.txt", Content: "not-valid-base64!@#$%"}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base64")
	})

	t.Run("Error_InvalidCategory", func(t *testing.T) {
		req := MaskTaskRequest{
			DocumentName: "a.txt",
			Content:      encode("x"),
			MaskOptions:  MaskOptions{Categories: []string{"NAME", "credit card"}},
		}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "categories")
	})

	t.Run("Error_UnknownAlgorithm", func(t *testing.T) {
		req := MaskTaskRequest{
			DocumentName: "a.txt",
			Content:      encode("x"),
			MaskOptions:  MaskOptions{Algorithm: "des"},
		}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "algorithm")
	})

	t.Run("Error_UnknownFormat", func(t *testing.T) {
		req := MaskTaskRequest{
			DocumentName: "a.zip",
			Content:      encode("x"),
			MaskOptions:  MaskOptions{Format: "zip"},
		}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "format")
	})
}

func TestMaskTaskRequest_ToMaskInput(t *testing.T) {
	t.Run("OmittedSpansRunDetection", func(t *testing.T) {
		req := MaskTaskRequest{DocumentName: "a.txt", Content: encode("hello")}

		input, err := req.ToMaskInput()

		require.NoError(t, err)
		assert.Nil(t, input.Spans)
		assert.Equal(t, []byte("hello"), input.Content)
		assert.Empty(t, input.Format)
		assert.Empty(t, input.Algorithm)
		assert.Empty(t, input.PlaceholderStyle)
	})

	t.Run("EmptySpansAreKept", func(t *testing.T) {
		req := MaskTaskRequest{
			DocumentName: "a.txt",
			Content:      encode("hello"),
			Spans:        []detectionService.SpanJSON{},
		}

		input, err := req.ToMaskInput()

		require.NoError(t, err)
		assert.NotNil(t, input.Spans)
		assert.Empty(t, input.Spans)
	})

	t.Run("OptionsAreParsed", func(t *testing.T) {
		preserve := false
		req := MaskTaskRequest{
			DocumentName: "scan.jpg",
			Content:      encode("jpeg bytes"),
			Spans: []detectionService.SpanJSON{{
				Label:      "name",
				Confidence: 0.9,
				Location: detectionService.LocationJSON{
					Kind: "image",
					Box:  &detectionService.BoxJSON{X: 1, Y: 2, Width: 3, Height: 4},
				},
			}},
			MaskOptions: MaskOptions{
				Format:           "jpg",
				Categories:       []string{"name"},
				AllCategories:    true,
				Algorithm:        "CHACHA20-POLY1305",
				PlaceholderStyle: "tagged",
				PreserveRegions:  &preserve,
			},
		}

		input, err := req.ToMaskInput()

		require.NoError(t, err)
		assert.Equal(t, maskingDomain.FormatJPEG, input.Format)
		assert.Equal(t, cryptoDomain.ChaCha20, input.Algorithm)
		assert.Equal(t, maskingDomain.PlaceholderTagged, input.PlaceholderStyle)
		assert.Equal(t, []spanDomain.Label{"NAME"}, input.Categories)
		assert.True(t, input.AllCategories)
		require.NotNil(t, input.PreserveRegions)
		assert.False(t, *input.PreserveRegions)
		require.Len(t, input.Spans, 1)
		assert.Equal(t, spanDomain.Label("NAME"), input.Spans[0].Label)
		require.NotNil(t, input.Spans[0].Location.Image)
		assert.Equal(t, 3, input.Spans[0].Location.Image.Box.Width)
	})
}

func TestRestoreTaskRequest_Validate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		req := RestoreTaskRequest{KeyFile: "piimask-key:v1:..."}
		assert.NoError(t, req.Validate())
	})

	t.Run("Error_Empty", func(t *testing.T) {
		req := RestoreTaskRequest{}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key_file")
	})

	t.Run("Error_NotAKeyFile", func(t *testing.T) {
		req := RestoreTaskRequest{KeyFile: "hunter2"}
		assert.Error(t, req.Validate())
	})
}

func TestRestoreRequest(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		req := RestoreRequest{
			MaskedArtifact: encode("Contact [NAME]"),
			MetadataFile:   encode("{}"),
			KeyFile:        "piimask-key:v1:...",
		}

		require.NoError(t, req.Validate())
		input, err := req.ToRestoreInput()

		require.NoError(t, err)
		assert.Equal(t, []byte("Contact [NAME]"), input.Artifact)
		assert.Equal(t, []byte("{}"), input.Metadata)
		assert.Equal(t, req.KeyFile, input.KeyFile)
	})

	t.Run("Error_MissingMetadata", func(t *testing.T) {
		req := RestoreRequest{MaskedArtifact: encode("x"), KeyFile: "piimask-key:v1:..."}

		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "metadata_file")
	})
}
