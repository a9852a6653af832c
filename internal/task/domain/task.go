package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
)

// Stats are the processing counters recorded for a task.
type Stats struct {
	Detected          int
	Merged            int
	Masked            int
	Skipped           int
	Rejected          int
	LowConfidence     int
	AverageConfidence float64
}

// StatsFromSummary copies the counters out of a mask summary.
func StatsFromSummary(s maskingDomain.Summary) Stats {
	return Stats{
		Detected:          s.Detected,
		Merged:            s.Merged,
		Masked:            s.Masked,
		Skipped:           s.Skipped,
		Rejected:          len(s.Rejected),
		LowConfidence:     s.LowConfidence,
		AverageConfidence: s.AverageConfidence,
	}
}

// Task is one completed mask run. The key is never part of a task; only its id is.
type Task struct {
	ID               uuid.UUID
	DocumentName     string
	SourceFormat     maskingDomain.Format
	ArtifactFormat   maskingDomain.Format
	Algorithm        cryptoDomain.Algorithm
	KeyID            uuid.UUID
	PlaceholderStyle maskingDomain.PlaceholderStyle
	ArtifactKey      string
	MetadataKey      string
	Stats            Stats
	RestoreCount     int
	LastRestoredAt   *time.Time
	CreatedAt        time.Time
}

// Expired reports whether the task is older than retention at now.
func (t *Task) Expired(now time.Time, retention time.Duration) bool {
	return retention > 0 && !t.CreatedAt.Add(retention).After(now)
}
