// Package domain implements category selection: deciding which merged spans a
// task masks and which it leaves in place.
package domain

import (
	"slices"

	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// DefaultSelectable lists the categories offered for opt-in masking when the caller
// does not name any.
var DefaultSelectable = []spanDomain.Label{
	spanDomain.LabelName,
	spanDomain.LabelRace,
	spanDomain.LabelOrg,
	spanDomain.LabelStatus,
	spanDomain.LabelLocation,
	spanDomain.LabelReligion,
}

// DefaultMandatory lists identifiers that are masked whatever the selection says.
var DefaultMandatory = []spanDomain.Label{
	spanDomain.LabelIC,
	spanDomain.LabelPassport,
	spanDomain.LabelBankAccount,
	spanDomain.LabelManual,
}

// Selection is the set of categories a task masks. Mandatory labels and spans drawn by
// hand (manual layer) are always masked.
type Selection struct {
	all       bool
	enabled   map[spanDomain.Label]struct{}
	mandatory map[spanDomain.Label]struct{}
}

// NewSelection selects exactly the given labels in addition to the mandatory ones.
// An empty enabled list masks mandatory categories only.
func NewSelection(enabled, mandatory []spanDomain.Label) Selection {
	return Selection{enabled: toSet(enabled), mandatory: toSet(mandatory)}
}

// SelectAll masks every category.
func SelectAll(mandatory []spanDomain.Label) Selection {
	return Selection{all: true, enabled: map[spanDomain.Label]struct{}{}, mandatory: toSet(mandatory)}
}

// Masks reports whether spans with the given label are masked.
func (s Selection) Masks(label spanDomain.Label) bool {
	if s.all {
		return true
	}
	if _, ok := s.mandatory[label]; ok {
		return true
	}
	_, ok := s.enabled[label]
	return ok
}

// Filter splits spans into those to mask and those to leave untouched. Every input
// span lands in exactly one output, and relative order is preserved in both.
func (s Selection) Filter(spans []spanDomain.Span) (toMask, toSkip []spanDomain.Span) {
	for _, sp := range spans {
		if sp.HasLayer(spanDomain.LayerManual) || s.Masks(sp.Label) {
			toMask = append(toMask, sp)
			continue
		}
		toSkip = append(toSkip, sp)
	}
	return toMask, toSkip
}

// All reports whether the selection masks every category.
func (s Selection) All() bool {
	return s.all
}

// Enabled returns the explicitly enabled labels, sorted.
func (s Selection) Enabled() []spanDomain.Label {
	return sortedLabels(s.enabled)
}

// Mandatory returns the mandatory labels, sorted.
func (s Selection) Mandatory() []spanDomain.Label {
	return sortedLabels(s.mandatory)
}

func toSet(labels []spanDomain.Label) map[spanDomain.Label]struct{} {
	set := make(map[spanDomain.Label]struct{}, len(labels))
	for _, l := range labels {
		if l = spanDomain.NormalizeLabel(string(l)); l != "" {
			set[l] = struct{}{}
		}
	}
	return set
}

func sortedLabels(set map[spanDomain.Label]struct{}) []spanDomain.Label {
	out := make([]spanDomain.Label, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// ParseLabels normalizes a list of raw category names, dropping blanks and duplicates.
func ParseLabels(raw []string) []spanDomain.Label {
	var out []spanDomain.Label
	for _, r := range raw {
		l := spanDomain.NormalizeLabel(r)
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}
	return out
}
