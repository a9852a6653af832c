package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	cryptoService "github.com/allisson/piimask/internal/crypto/service"
	detectionService "github.com/allisson/piimask/internal/detection/service"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	maskingService "github.com/allisson/piimask/internal/masking/service"
	selectionDomain "github.com/allisson/piimask/internal/selection/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
	taskUsecase "github.com/allisson/piimask/internal/task/usecase"
)

// OfflineDeps are the components the file-based commands need. None of them touch
// the database or the artifact bucket. Detector and KeyWrapper may be nil.
type OfflineDeps struct {
	Engine     taskUsecase.MaskEngine
	Codec      taskUsecase.RecordCodec
	Detector   taskUsecase.SpanDetector
	KeyWrapper cryptoService.KeyWrapper
	Config     taskUsecase.Config
	Logger     *slog.Logger
}

// MaskFileOptions configures RunMaskFile. Empty fields fall back to OfflineDeps.Config.
type MaskFileOptions struct {
	InputPath       string
	OutputDir       string
	SpansPath       string
	Format          string
	Categories      []string
	AllCategories   bool
	Algorithm       string
	Style           string
	PreserveRegions *bool
	OutputFormat    string
}

// MaskFileResult lists the files written by RunMaskFile.
type MaskFileResult struct {
	TaskID        string         `json:"task_id"`
	KeyID         string         `json:"key_id"`
	ArtifactPath  string         `json:"artifact_path"`
	MetadataPath  string         `json:"metadata_path"`
	KeyPath       string         `json:"key_path"`
	Detected      int            `json:"detected"`
	Masked        int            `json:"masked"`
	Skipped       int            `json:"skipped"`
	Rejected      int            `json:"rejected"`
	MaskedByLabel map[string]int `json:"masked_by_label,omitempty"`
}

// RunMaskFile masks a local document and writes the masked artifact, the metadata file
// and the key file next to each other. Spans come from SpansPath (a JSON array) or from
// the built-in detectors.
func RunMaskFile(ctx context.Context, deps OfflineDeps, writer io.Writer, opts MaskFileOptions) error {
	if err := validateFormat(opts.OutputFormat); err != nil {
		return err
	}

	content, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if len(content) == 0 {
		return fmt.Errorf("input %s is empty", opts.InputPath)
	}
	if limit := deps.Config.MaxDocumentSize; limit > 0 && int64(len(content)) > limit {
		return fmt.Errorf("input is %d bytes, limit is %d", len(content), limit)
	}

	req, err := buildMaskRequest(ctx, deps, opts, content)
	if err != nil {
		return err
	}

	result, err := deps.Engine.Mask(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to mask document: %w", err)
	}
	defer result.Key.Close()

	metadata, err := deps.Codec.Marshal(result.Record)
	if err != nil {
		return err
	}
	keyFile, err := taskUsecase.ExportKey(ctx, deps.KeyWrapper, result.Key)
	if err != nil {
		return err
	}

	outDir := opts.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(opts.InputPath)
	}
	base := strings.TrimSuffix(filepath.Base(opts.InputPath), filepath.Ext(opts.InputPath))
	out := MaskFileResult{
		TaskID:       result.Artifact.TaskID.String(),
		KeyID:        result.Key.ID.String(),
		ArtifactPath: filepath.Join(outDir, base+".masked"+result.Artifact.Format.Extension()),
		MetadataPath: filepath.Join(outDir, base+".metadata.json"),
		KeyPath:      filepath.Join(outDir, base+".key"),
		Detected:     result.Summary.Detected,
		Masked:       result.Summary.Masked,
		Skipped:      result.Summary.Skipped,
		Rejected:     len(result.Summary.Rejected),
	}
	if len(result.Summary.MaskedByLabel) > 0 {
		out.MaskedByLabel = make(map[string]int, len(result.Summary.MaskedByLabel))
		for label, n := range result.Summary.MaskedByLabel {
			out.MaskedByLabel[string(label)] = n
		}
	}

	if err := os.WriteFile(out.ArtifactPath, result.Artifact.Content, 0o600); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.WriteFile(out.MetadataPath, metadata, 0o600); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.WriteFile(out.KeyPath, []byte(keyFile+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}

	deps.Logger.Info("document masked",
		slog.String("task_id", out.TaskID),
		slog.Int("masked", out.Masked),
		slog.Int("skipped", out.Skipped),
		slog.Int("rejected", out.Rejected),
	)

	if opts.OutputFormat == "json" {
		return writeJSON(writer, out)
	}
	return writeMaskText(writer, out)
}

func buildMaskRequest(
	ctx context.Context,
	deps OfflineDeps,
	opts MaskFileOptions,
	content []byte,
) (maskingService.MaskRequest, error) {
	var (
		format maskingDomain.Format
		err    error
	)
	if opts.Format != "" {
		format, err = maskingService.ParseFormat(opts.Format)
	} else {
		format, err = maskingService.DetectFormat(opts.InputPath, content)
	}
	if err != nil {
		return maskingService.MaskRequest{}, err
	}
	doc := maskingDomain.Document{Name: filepath.Base(opts.InputPath), Format: format, Content: content}

	spans, err := loadSpans(ctx, deps, opts.SpansPath, doc)
	if err != nil {
		return maskingService.MaskRequest{}, err
	}

	req := maskingService.MaskRequest{
		Document:        doc,
		Spans:           spans,
		Selection:       deps.Config.Selection(selectionDomain.ParseLabels(opts.Categories), opts.AllCategories),
		Algorithm:       deps.Config.DefaultAlgorithm,
		Style:           deps.Config.PlaceholderStyle,
		PreserveRegions: deps.Config.PreserveRegions,
	}
	if opts.Algorithm != "" {
		if req.Algorithm, err = cryptoDomain.ParseAlgorithm(opts.Algorithm); err != nil {
			return maskingService.MaskRequest{}, err
		}
	}
	if opts.Style != "" {
		if req.Style, err = maskingDomain.ParsePlaceholderStyle(opts.Style); err != nil {
			return maskingService.MaskRequest{}, err
		}
	}
	if opts.PreserveRegions != nil {
		req.PreserveRegions = *opts.PreserveRegions
	}
	return req, nil
}

func loadSpans(
	ctx context.Context,
	deps OfflineDeps,
	path string,
	doc maskingDomain.Document,
) ([]spanDomain.Span, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open spans file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		return detectionService.DecodeSpans(f)
	}
	if deps.Detector == nil {
		return nil, nil
	}
	return deps.Detector.Detect(ctx, doc)
}

func writeMaskText(w io.Writer, out MaskFileResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Task ID:  %s\n", out.TaskID)
	fmt.Fprintf(&b, "Key ID:   %s\n", out.KeyID)
	fmt.Fprintf(&b, "Artifact: %s\n", out.ArtifactPath)
	fmt.Fprintf(&b, "Metadata: %s\n", out.MetadataPath)
	fmt.Fprintf(&b, "Key file: %s\n", out.KeyPath)
	fmt.Fprintf(&b, "Spans: %d detected, %d masked, %d skipped, %d rejected\n",
		out.Detected, out.Masked, out.Skipped, out.Rejected)

	labels := make([]string, 0, len(out.MaskedByLabel))
	for label := range out.MaskedByLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Fprintf(&b, "  %-14s %d\n", label, out.MaskedByLabel[label])
	}
	b.WriteString("\nKeep the key file safe: it is the only way to restore this document.\n")

	_, err := io.WriteString(w, b.String())
	return err
}
