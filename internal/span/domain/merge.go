package domain

import (
	"slices"

	"github.com/allisson/piimask/internal/errors"
)

// MergeOverlapping collapses overlapping detections into single spans.
//
// Text spans merge when their ranges intersect; image spans merge when they sit on the
// same page and their IoU exceeds iouThreshold. A merged span covers the union of its
// members, keeps the highest confidence and the union of source layers, and takes the
// label of the most confident member. On equal confidence a dictionary-backed label wins
// over one that is not. The surviving span keeps the winner's id and lists absorbed ids
// in MergedFrom.
//
// Any invalid span fails the whole call with ErrInvalidSpan; use Partition first when
// invalid spans should be reported and dropped instead.
func MergeOverlapping(spans []Span, iouThreshold float64) ([]Span, error) {
	var texts, images []Span
	for _, s := range spans {
		if err := s.Validate(); err != nil {
			return nil, errors.Wrapf(err, "span %s", s.ID)
		}
		switch s.Location.Kind {
		case LocationText:
			texts = append(texts, s.Clone())
		case LocationImage:
			images = append(images, s.Clone())
		}
	}

	merged := append(mergeText(texts), mergeImages(images, iouThreshold)...)
	SortByStart(merged)
	return merged, nil
}

func mergeText(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	SortByStart(spans)

	out := make([]Span, 0, len(spans))
	cur := spans[0]
	for _, next := range spans[1:] {
		if next.Location.Text.Overlaps(*cur.Location.Text) {
			cur = absorb(cur, next)
			cur.Location.Text.End = max(cur.Location.Text.End, next.Location.Text.End)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

// mergeImages repeats pairwise merging until stable because a union box can start
// overlapping a region it did not overlap before.
func mergeImages(spans []Span, iouThreshold float64) []Span {
	SortByStart(spans)

	for changed := true; changed; {
		changed = false
	scan:
		for i := 0; i < len(spans); i++ {
			for j := i + 1; j < len(spans); j++ {
				a, b := spans[i].Location.Image, spans[j].Location.Image
				if a.Page != b.Page || a.Box.IoU(b.Box) <= iouThreshold {
					continue
				}
				union := a.Box.Union(b.Box)
				spans[i] = absorb(spans[i], spans[j])
				spans[i].Location.Image.Box = union
				spans = slices.Delete(spans, j, j+1)
				changed = true
				break scan
			}
		}
	}
	return spans
}

// absorb folds b into a. Location is left to the caller.
func absorb(a, b Span) Span {
	winner, loser := a, b
	if labelWins(b, a) {
		winner, loser = b, a
	}

	out := a
	out.ID = winner.ID
	out.Label = winner.Label
	out.Confidence = max(a.Confidence, b.Confidence)
	out.Text = winner.Text
	if out.Text == "" {
		out.Text = loser.Text
	}

	out.Layers = slices.Clone(winner.Layers)
	for _, l := range loser.Layers {
		if !slices.Contains(out.Layers, l) {
			out.Layers = append(out.Layers, l)
		}
	}

	out.MergedFrom = append(slices.Clone(winner.MergedFrom), loser.ID)
	out.MergedFrom = append(out.MergedFrom, loser.MergedFrom...)
	return out
}

// labelWins reports whether candidate's label should replace incumbent's.
func labelWins(candidate, incumbent Span) bool {
	if candidate.Confidence != incumbent.Confidence {
		return candidate.Confidence > incumbent.Confidence
	}
	return candidate.HasLayer(LayerDictionary) && !incumbent.HasLayer(LayerDictionary)
}
