package service

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/allisson/piimask/internal/errors"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// DefaultDictionaryConfidence is used when a dictionary file does not set one.
const DefaultDictionaryConfidence = 0.9

// DefaultIgnoreWords are document boilerplate that dictionary terms never match.
var DefaultIgnoreWords = []string{
	"malaysia", "kad pengenalan", "identity card", "mykad", "lelaki", "perempuan",
	"warganegara", "copy", "confidential", "draft", "sample", "specimen",
	"watermark", "void", "duplicate", "original", "certified",
}

// ErrInvalidDictionary is returned for unreadable or malformed dictionary files.
var ErrInvalidDictionary = errors.Wrap(errors.ErrInvalidInput, "invalid dictionary")

// Dictionary is the YAML document loaded by LoadDictionary:
//
//	confidence: 0.9
//	ignore: [draft, sample]
//	labels:
//	  ORG: [Petronas, Maybank]
//	  RELIGION: [Islam, Buddha]
type Dictionary struct {
	Confidence float64             `yaml:"confidence"`
	Ignore     []string            `yaml:"ignore"`
	Labels     map[string][]string `yaml:"labels"`
}

// LoadDictionary reads a dictionary file.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDictionary, "open %s: %v", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ParseDictionary(f)
}

// ParseDictionary decodes a dictionary from r.
func ParseDictionary(r io.Reader) (*Dictionary, error) {
	var d Dictionary
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, errors.Wrapf(ErrInvalidDictionary, "%v", err)
	}
	if d.Confidence == 0 {
		d.Confidence = DefaultDictionaryConfidence
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return nil, errors.Wrapf(ErrInvalidDictionary, "confidence %v outside [0,1]", d.Confidence)
	}
	return &d, nil
}

type dictionaryEntry struct {
	label   spanDomain.Label
	pattern *regexp.Regexp
}

// DictionaryDetector matches whole-word, case-insensitive terms per label.
type DictionaryDetector struct {
	entries    []dictionaryEntry
	ignore     map[string]struct{}
	confidence float64
}

// NewDictionaryDetector compiles d. Ignore words from d are added to DefaultIgnoreWords.
func NewDictionaryDetector(d *Dictionary) (*DictionaryDetector, error) {
	det := &DictionaryDetector{
		ignore:     make(map[string]struct{}),
		confidence: d.Confidence,
	}
	if det.confidence == 0 {
		det.confidence = DefaultDictionaryConfidence
	}
	for _, w := range slices.Concat(DefaultIgnoreWords, d.Ignore) {
		det.ignore[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}

	labels := make([]string, 0, len(d.Labels))
	for l := range d.Labels {
		labels = append(labels, l)
	}
	slices.Sort(labels)

	for _, raw := range labels {
		label := spanDomain.NormalizeLabel(raw)
		if label == "" {
			return nil, errors.Wrap(ErrInvalidDictionary, "empty label")
		}

		var terms []string
		for _, t := range d.Labels[raw] {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, skip := det.ignore[strings.ToLower(t)]; skip {
				continue
			}
			terms = append(terms, regexp.QuoteMeta(t))
		}
		if len(terms) == 0 {
			continue
		}
		// Longer terms first so "Bank Islam" wins over "Islam".
		slices.SortFunc(terms, func(a, b string) int {
			return cmp.Or(cmp.Compare(len(b), len(a)), strings.Compare(a, b))
		})

		pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(terms, "|") + `)\b`)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidDictionary, "label %s: %v", label, err)
		}
		det.entries = append(det.entries, dictionaryEntry{label: label, pattern: pattern})
	}
	return det, nil
}

// Name implements Detector.
func (d *DictionaryDetector) Name() string {
	return "dictionary"
}

// Detect implements Detector. Image documents yield no spans.
func (d *DictionaryDetector) Detect(ctx context.Context, doc maskingDomain.Document) ([]spanDomain.Span, error) {
	if doc.Format.LocationKind() != spanDomain.LocationText {
		return nil, nil
	}
	if !utf8.Valid(doc.Content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", maskingDomain.ErrUnsupportedFormat)
	}

	text := string(doc.Content)
	idx := newRuneIndex(text)

	var spans []spanDomain.Span
	for _, e := range d.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, m := range e.pattern.FindAllStringIndex(text, -1) {
			value := text[m[0]:m[1]]
			if _, skip := d.ignore[strings.ToLower(value)]; skip {
				continue
			}
			spans = append(spans, spanDomain.Span{
				Label:      e.label,
				Location:   spanDomain.TextLocation(idx.rune(m[0]), idx.rune(m[1])),
				Confidence: d.confidence,
				Layers:     []spanDomain.SourceLayer{spanDomain.LayerDictionary},
				Text:       value,
			})
		}
	}
	return spans, nil
}
