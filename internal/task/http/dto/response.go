package dto

import (
	"sort"
	"time"

	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

// StatsResponse holds the processing counters of a task.
type StatsResponse struct {
	Detected          int     `json:"detected"`
	Merged            int     `json:"merged"`
	Masked            int     `json:"masked"`
	Skipped           int     `json:"skipped"`
	Rejected          int     `json:"rejected"`
	LowConfidence     int     `json:"low_confidence"`
	AverageConfidence float64 `json:"average_confidence"`
}

// TaskResponse represents a task in API responses. It never carries key material.
type TaskResponse struct {
	ID               string        `json:"id"`
	DocumentName     string        `json:"document_name"`
	SourceFormat     string        `json:"source_format"`
	ArtifactFormat   string        `json:"artifact_format"`
	Algorithm        string        `json:"algorithm"`
	KeyID            string        `json:"key_id"`
	PlaceholderStyle string        `json:"placeholder_style"`
	Stats            StatsResponse `json:"stats"`
	RestoreCount     int           `json:"restore_count"`
	LastRestoredAt   *time.Time    `json:"last_restored_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// RejectedSpanResponse names a span that could not be masked and why.
type RejectedSpanResponse struct {
	SpanID string `json:"span_id"`
	Reason string `json:"reason"`
}

// LabelCountResponse is the masked span count of one category.
type LabelCountResponse struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MaskTaskResponse is returned once from POST /v1/tasks.
// SECURITY: KeyFile is the only copy of the task key and is never stored server side.
type MaskTaskResponse struct {
	Task          TaskResponse           `json:"task"`
	KeyFile       string                 `json:"key_file"`
	Rejected      []RejectedSpanResponse `json:"rejected"`
	MaskedByLabel []LabelCountResponse   `json:"masked_by_label"`
}

// MapTaskToResponse converts a domain task to an API response.
func MapTaskToResponse(task *taskDomain.Task) TaskResponse {
	return TaskResponse{
		ID:               task.ID.String(),
		DocumentName:     task.DocumentName,
		SourceFormat:     string(task.SourceFormat),
		ArtifactFormat:   string(task.ArtifactFormat),
		Algorithm:        string(task.Algorithm),
		KeyID:            task.KeyID.String(),
		PlaceholderStyle: string(task.PlaceholderStyle),
		Stats: StatsResponse{
			Detected:          task.Stats.Detected,
			Merged:            task.Stats.Merged,
			Masked:            task.Stats.Masked,
			Skipped:           task.Stats.Skipped,
			Rejected:          task.Stats.Rejected,
			LowConfidence:     task.Stats.LowConfidence,
			AverageConfidence: task.Stats.AverageConfidence,
		},
		RestoreCount:   task.RestoreCount,
		LastRestoredAt: task.LastRestoredAt,
		CreatedAt:      task.CreatedAt,
	}
}

// MapMaskOutputToResponse converts a mask result to an API response. Labels are sorted
// so the response is stable.
func MapMaskOutputToResponse(out *taskDomain.MaskOutput) MaskTaskResponse {
	resp := MaskTaskResponse{
		Task:          MapTaskToResponse(out.Task),
		KeyFile:       out.KeyFile,
		Rejected:      make([]RejectedSpanResponse, 0, len(out.Summary.Rejected)),
		MaskedByLabel: make([]LabelCountResponse, 0, len(out.Summary.MaskedByLabel)),
	}
	for _, r := range out.Summary.Rejected {
		resp.Rejected = append(resp.Rejected, RejectedSpanResponse{SpanID: r.SpanID, Reason: r.Reason})
	}
	for label, count := range out.Summary.MaskedByLabel {
		resp.MaskedByLabel = append(resp.MaskedByLabel, LabelCountResponse{Label: string(label), Count: count})
	}
	sort.Slice(resp.MaskedByLabel, func(i, j int) bool {
		return resp.MaskedByLabel[i].Label < resp.MaskedByLabel[j].Label
	})
	return resp
}
