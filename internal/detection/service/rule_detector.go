package service

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// Rule is one regular expression bound to a label.
type Rule struct {
	Label      spanDomain.Label
	Pattern    *regexp.Regexp
	Confidence float64
}

var (
	icRe          = regexp.MustCompile(`\b\d{6}-\d{2}-\d{4}\b`)
	emailRe       = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+(?:\.[a-zA-Z0-9-]+)+`)
	dobRe         = regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`)
	bankAccountRe = regexp.MustCompile(`\b\d{10,16}\b`)
	passportRe    = regexp.MustCompile(`\b[A-Z]\d{7}\b`)
	phoneRe       = regexp.MustCompile(`\+60\d{1,2}[-\s]?\d{6,8}\b|\b01\d[-\s]?\d{7,8}\b`)
	moneyRe       = regexp.MustCompile(`\bRM\s?\d+(?:,\d{3})*(?:\.\d{2})?\b`)
	genderRe      = regexp.MustCompile(`(?i)\b(?:LELAKI|PEREMPUAN|MALE|FEMALE)\b`)
	nationalityRe = regexp.MustCompile(`(?i)\b(?:WARGANEGARA|WARGA ASING|NON-CITIZEN|CITIZEN)\b`)
)

// DefaultRules returns the built-in Malaysian identifier rules. Bank account numbers
// are ambiguous with other long digit runs and carry a lower confidence.
func DefaultRules() []Rule {
	return []Rule{
		{Label: spanDomain.LabelIC, Pattern: icRe, Confidence: 1},
		{Label: spanDomain.LabelEmail, Pattern: emailRe, Confidence: 1},
		{Label: spanDomain.LabelDOB, Pattern: dobRe, Confidence: 1},
		{Label: spanDomain.LabelBankAccount, Pattern: bankAccountRe, Confidence: 0.85},
		{Label: spanDomain.LabelPassport, Pattern: passportRe, Confidence: 1},
		{Label: spanDomain.LabelPhone, Pattern: phoneRe, Confidence: 1},
		{Label: spanDomain.LabelMoney, Pattern: moneyRe, Confidence: 1},
		{Label: spanDomain.LabelGender, Pattern: genderRe, Confidence: 1},
		{Label: spanDomain.LabelNationality, Pattern: nationalityRe, Confidence: 1},
	}
}

// RuleDetector matches regular expressions against text documents.
type RuleDetector struct {
	rules []Rule
}

// NewRuleDetector creates a RuleDetector. A nil rules slice selects DefaultRules.
func NewRuleDetector(rules []Rule) *RuleDetector {
	if rules == nil {
		rules = DefaultRules()
	}
	return &RuleDetector{rules: rules}
}

// Name implements Detector.
func (d *RuleDetector) Name() string {
	return "rule"
}

// Detect implements Detector. Image documents yield no spans.
func (d *RuleDetector) Detect(ctx context.Context, doc maskingDomain.Document) ([]spanDomain.Span, error) {
	if doc.Format.LocationKind() != spanDomain.LocationText {
		return nil, nil
	}
	if !utf8.Valid(doc.Content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", maskingDomain.ErrUnsupportedFormat)
	}

	text := string(doc.Content)
	idx := newRuneIndex(text)

	var spans []spanDomain.Span
	for _, rule := range d.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, m := range rule.Pattern.FindAllStringIndex(text, -1) {
			if m[0] == m[1] {
				continue
			}
			spans = append(spans, spanDomain.Span{
				Label:      rule.Label,
				Location:   spanDomain.TextLocation(idx.rune(m[0]), idx.rune(m[1])),
				Confidence: rule.Confidence,
				Layers:     []spanDomain.SourceLayer{spanDomain.LayerRule},
				Text:       text[m[0]:m[1]],
			})
		}
	}
	return spans, nil
}
