package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	cryptoService "github.com/allisson/piimask/internal/crypto/service"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	selectionDomain "github.com/allisson/piimask/internal/selection/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// MaskRequest is one masking task. A zero TaskID gets a fresh UUIDv7.
type MaskRequest struct {
	TaskID          uuid.UUID
	Document        maskingDomain.Document
	Spans           []spanDomain.Span
	Selection       selectionDomain.Selection
	Algorithm       cryptoDomain.Algorithm
	Style           maskingDomain.PlaceholderStyle
	PreserveRegions bool
}

// MaskResult carries everything a mask run produces. Key is returned to the caller
// exactly once and is not referenced by Artifact or Record.
type MaskResult struct {
	Artifact *maskingDomain.MaskedArtifact
	Record   *maskingDomain.RestorationRecord
	Key      *cryptoDomain.TaskKey
	Summary  maskingDomain.Summary
}

// RestoreRequest reverses one mask.
type RestoreRequest struct {
	Artifact []byte
	Record   *maskingDomain.RestorationRecord
	Key      *cryptoDomain.TaskKey
}

// RestoreResult is the reconstructed document.
type RestoreResult struct {
	Content []byte
	Format  maskingDomain.Format
	// Restored counts the record entries verified and decrypted, whether they were
	// written back into Content or returned in Revealed.
	Restored int
	Revealed []RevealedValue
}

// Engine runs the mask and restoration pipelines. It holds no per-task state and is
// safe for concurrent use across tasks; spans within one task are handled in order.
type Engine struct {
	registry     *Registry
	vault        cryptoService.Vault
	iouThreshold float64
	logger       *slog.Logger
	now          func() time.Time
}

// NewEngine creates an Engine.
func NewEngine(registry *Registry, vault cryptoService.Vault, iouThreshold float64, logger *slog.Logger) *Engine {
	return &Engine{
		registry:     registry,
		vault:        vault,
		iouThreshold: iouThreshold,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Mask validates, merges and selects spans, then masks the selected ones with a new
// task key. Invalid spans are dropped and reported in the summary; spans that are not
// selected are never bounds-checked or recorded. Nothing is persisted here, and a
// cancelled context yields no result at all.
func (e *Engine) Mask(ctx context.Context, req MaskRequest) (*MaskResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	strategy, err := e.registry.For(req.Document.Format)
	if err != nil {
		return nil, err
	}

	taskID := req.TaskID
	if taskID == uuid.Nil {
		if taskID, err = uuid.NewV7(); err != nil {
			return nil, fmt.Errorf("failed to generate task id: %w", err)
		}
	}

	if req.Style == "" {
		req.Style = maskingDomain.PlaceholderLabel
	}
	if req.Algorithm == "" {
		req.Algorithm = cryptoDomain.AESGCM
	}

	spans := prepareSpans(req.Spans)
	valid, rejected := spanDomain.Partition(spans)
	valid, rejected = rejectKindMismatch(valid, rejected, req.Document.Format.LocationKind())
	for _, r := range rejected {
		e.logger.Warn("span rejected",
			slog.String("task_id", taskID.String()),
			slog.String("span_id", r.Span.ID),
			slog.String("location", r.Span.Location.String()),
			slog.Any("error", r.Err),
		)
	}

	merged, err := spanDomain.MergeOverlapping(valid, e.iouThreshold)
	if err != nil {
		return nil, err
	}
	toMask, toSkip := req.Selection.Filter(merged)

	key, err := e.vault.GenerateKey(req.Algorithm)
	if err != nil {
		return nil, err
	}
	sealer, err := e.vault.NewSealer(key)
	if err != nil {
		key.Close()
		return nil, err
	}

	out, err := strategy.Mask(ctx, MaskInput{
		TaskID:          taskID,
		Content:         req.Document.Content,
		Spans:           toMask,
		Sealer:          sealer,
		Style:           req.Style,
		PreserveRegions: req.PreserveRegions,
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		key.Close()
		return nil, err
	}

	artifactFormat := req.Document.Format
	if artifactFormat == maskingDomain.FormatJPEG {
		artifactFormat = maskingDomain.FormatPNG
	}

	result := &MaskResult{
		Artifact: &maskingDomain.MaskedArtifact{
			TaskID:       taskID,
			Name:         req.Document.Name,
			Format:       artifactFormat,
			Content:      out.Content,
			Placeholders: out.Placeholders,
		},
		Record: &maskingDomain.RestorationRecord{
			Version:          maskingDomain.RecordVersion,
			TaskID:           taskID,
			KeyID:            key.ID,
			Algorithm:        key.Algorithm,
			Format:           artifactFormat,
			DocumentName:     req.Document.Name,
			PlaceholderStyle: req.Style,
			CreatedAt:        e.now(),
			Entries:          out.Entries,
		},
		Key:     key,
		Summary: maskingDomain.NewSummary(len(req.Spans), merged, toMask, toSkip, rejected),
	}

	e.logger.Info("document masked",
		slog.String("task_id", taskID.String()),
		slog.String("format", string(req.Document.Format)),
		slog.Int("detected", result.Summary.Detected),
		slog.Int("masked", result.Summary.Masked),
		slog.Int("skipped", result.Summary.Skipped),
		slog.Int("rejected", len(result.Summary.Rejected)),
	)
	return result, nil
}

// Restore checks the key belongs to the record, then lets the format strategy verify
// placeholders and rebuild the document. Any decryption failure aborts the whole call.
func (e *Engine) Restore(ctx context.Context, req RestoreRequest) (*RestoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Record.Validate(); err != nil {
		return nil, err
	}
	if req.Key == nil || req.Key.ID != req.Record.KeyID || req.Key.Algorithm != req.Record.Algorithm {
		return nil, fmt.Errorf("%w: key does not belong to this record", cryptoDomain.ErrDecryptionFailed)
	}

	strategy, err := e.registry.For(req.Record.Format)
	if err != nil {
		return nil, err
	}
	sealer, err := e.vault.NewSealer(req.Key)
	if err != nil {
		return nil, err
	}

	out, err := strategy.Restore(ctx, RestoreInput{
		TaskID:  req.Record.TaskID,
		Content: req.Artifact,
		Entries: req.Record.Entries,
		Sealer:  sealer,
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		e.logger.Warn("restore failed",
			slog.String("task_id", req.Record.TaskID.String()),
			slog.Any("error", err),
		)
		return nil, err
	}

	e.logger.Info("document restored",
		slog.String("task_id", req.Record.TaskID.String()),
		slog.Int("entries", len(req.Record.Entries)),
	)
	return &RestoreResult{
		Content:  out.Content,
		Format:   req.Record.Format,
		Restored: len(req.Record.Entries),
		Revealed: out.Revealed,
	}, nil
}

// prepareSpans copies input spans, fills missing ids and normalizes labels.
// Generated ids skip any id a caller already supplied.
func prepareSpans(in []spanDomain.Span) []spanDomain.Span {
	taken := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s.ID != "" {
			taken[s.ID] = struct{}{}
		}
	}

	out := make([]spanDomain.Span, len(in))
	next := 0
	for i, s := range in {
		s = s.Clone()
		if s.ID == "" {
			for {
				next++
				id := fmt.Sprintf("span-%04d", next)
				if _, ok := taken[id]; !ok {
					s.ID = id
					taken[id] = struct{}{}
					break
				}
			}
		}
		s.Label = spanDomain.NormalizeLabel(string(s.Label))
		out[i] = s
	}
	return out
}

func rejectKindMismatch(
	valid []spanDomain.Span,
	rejected []spanDomain.Rejection,
	kind spanDomain.LocationKind,
) ([]spanDomain.Span, []spanDomain.Rejection) {
	kept := valid[:0]
	for _, s := range valid {
		if s.Location.Kind != kind {
			rejected = append(rejected, spanDomain.Rejection{
				Span: s,
				Err:  fmt.Errorf("%w: %s location on a %s document", spanDomain.ErrInvalidSpan, s.Location.Kind, kind),
			})
			continue
		}
		kept = append(kept, s)
	}
	return kept, rejected
}
