package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	maskingService "github.com/allisson/piimask/internal/masking/service"
	taskUsecase "github.com/allisson/piimask/internal/task/usecase"
)

// RestoreFileOptions configures RunRestoreFile.
type RestoreFileOptions struct {
	ArtifactPath string
	MetadataPath string
	KeyPath      string
	OutputPath   string
	OutputFormat string
}

// RestoreFileResult describes a restored document. Restored values are never printed.
type RestoreFileResult struct {
	TaskID     string `json:"task_id"`
	OutputPath string `json:"output_path"`
	Format     string `json:"format"`
	Restored   int    `json:"restored_spans"`
}

// RunRestoreFile restores a document from its masked artifact, metadata file and key
// file. Nothing is written unless every entry decrypts and verifies.
func RunRestoreFile(ctx context.Context, deps OfflineDeps, writer io.Writer, opts RestoreFileOptions) error {
	if err := validateFormat(opts.OutputFormat); err != nil {
		return err
	}

	artifact, err := os.ReadFile(opts.ArtifactPath)
	if err != nil {
		return fmt.Errorf("failed to read masked artifact: %w", err)
	}
	metadata, err := os.ReadFile(opts.MetadataPath)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}
	keyFile, err := os.ReadFile(opts.KeyPath)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}

	record, err := deps.Codec.Unmarshal(metadata)
	if err != nil {
		return err
	}

	key, err := taskUsecase.OpenKey(ctx, deps.KeyWrapper, strings.TrimSpace(string(keyFile)))
	if err != nil {
		return err
	}
	defer key.Close()

	result, err := deps.Engine.Restore(ctx, maskingService.RestoreRequest{
		Artifact: artifact,
		Record:   record,
		Key:      key,
	})
	if err != nil {
		return fmt.Errorf("failed to restore document: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		base := strings.TrimSuffix(filepath.Base(opts.ArtifactPath), filepath.Ext(opts.ArtifactPath))
		base = strings.TrimSuffix(base, ".masked")
		outputPath = filepath.Join(filepath.Dir(opts.ArtifactPath), base+".restored"+result.Format.Extension())
	}
	if err := os.WriteFile(outputPath, result.Content, 0o600); err != nil {
		return fmt.Errorf("failed to write restored document: %w", err)
	}

	out := RestoreFileResult{
		TaskID:     record.TaskID.String(),
		OutputPath: outputPath,
		Format:     string(result.Format),
		Restored:   result.Restored,
	}
	deps.Logger.Info("document restored",
		slog.String("task_id", out.TaskID),
		slog.Int("restored_spans", out.Restored),
	)

	if opts.OutputFormat == "json" {
		return writeJSON(writer, out)
	}
	_, err = fmt.Fprintf(writer, "Restored %d span(s) of task %s to %s\n", out.Restored, out.TaskID, out.OutputPath)
	return err
}
