package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	taskUsecase "github.com/allisson/piimask/internal/task/usecase"
)

// MetadataEntry is one record entry as shown by inspect-metadata. Ciphertexts are
// reduced to a flag.
type MetadataEntry struct {
	SpanID          string  `json:"span_id"`
	Label           string  `json:"label"`
	Confidence      float64 `json:"confidence"`
	Location        string  `json:"location"`
	Placeholder     string  `json:"placeholder,omitempty"`
	PreservedRegion bool    `json:"preserved_region"`
}

// MetadataSummary is the inspect-metadata output.
type MetadataSummary struct {
	TaskID           string          `json:"task_id"`
	KeyID            string          `json:"key_id"`
	Algorithm        string          `json:"algorithm"`
	Format           string          `json:"format"`
	DocumentName     string          `json:"document_name,omitempty"`
	PlaceholderStyle string          `json:"placeholder_style"`
	CreatedAt        time.Time       `json:"created_at"`
	Entries          []MetadataEntry `json:"entries"`
}

// RunInspectMetadata validates a metadata file and prints what it records. It needs
// no key and reveals no masked values.
func RunInspectMetadata(codec taskUsecase.RecordCodec, writer io.Writer, path, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}
	record, err := codec.Unmarshal(data)
	if err != nil {
		return err
	}

	summary := MetadataSummary{
		TaskID:           record.TaskID.String(),
		KeyID:            record.KeyID.String(),
		Algorithm:        string(record.Algorithm),
		Format:           string(record.Format),
		DocumentName:     record.DocumentName,
		PlaceholderStyle: string(record.PlaceholderStyle),
		CreatedAt:        record.CreatedAt,
		Entries:          make([]MetadataEntry, 0, len(record.Entries)),
	}
	for _, e := range record.Entries {
		summary.Entries = append(summary.Entries, MetadataEntry{
			SpanID:          e.SpanID,
			Label:           string(e.Label),
			Confidence:      e.Confidence,
			Location:        e.Location.String(),
			Placeholder:     e.Placeholder,
			PreservedRegion: len(e.EncryptedRegion) > 0,
		})
	}

	if format == "json" {
		return writeJSON(writer, summary)
	}

	_, _ = fmt.Fprintf(writer, "Task ID:   %s\n", summary.TaskID)
	_, _ = fmt.Fprintf(writer, "Key ID:    %s (%s)\n", summary.KeyID, summary.Algorithm)
	_, _ = fmt.Fprintf(writer, "Format:    %s\n", summary.Format)
	if summary.DocumentName != "" {
		_, _ = fmt.Fprintf(writer, "Document:  %s\n", summary.DocumentName)
	}
	_, _ = fmt.Fprintf(writer, "Style:     %s\n", summary.PlaceholderStyle)
	_, _ = fmt.Fprintf(writer, "Created:   %s\n", summary.CreatedAt.Format(time.RFC3339))
	_, _ = fmt.Fprintf(writer, "Entries:   %d\n\n", len(summary.Entries))

	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SPAN\tLABEL\tCONFIDENCE\tLOCATION\tPLACEHOLDER")
	for _, e := range summary.Entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n", e.SpanID, e.Label, e.Confidence, e.Location, e.Placeholder)
	}
	return tw.Flush()
}
