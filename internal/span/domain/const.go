package domain

import "strings"

// Label is an open category tag such as NAME or PHONE. Labels are compared upper-case.
type Label string

// Well-known labels produced by the built-in detectors and accepted from external ones.
const (
	LabelName        Label = "NAME"
	LabelPerson      Label = "PERSON"
	LabelOrg         Label = "ORG"
	LabelLocation    Label = "LOCATION"
	LabelRace        Label = "RACE"
	LabelReligion    Label = "RELIGION"
	LabelStatus      Label = "STATUS"
	LabelPhone       Label = "PHONE"
	LabelEmail       Label = "EMAIL"
	LabelIC          Label = "IC"
	LabelPassport    Label = "PASSPORT"
	LabelDOB         Label = "DOB"
	LabelBankAccount Label = "BANK_ACCOUNT"
	LabelMoney       Label = "MONEY"
	LabelGender      Label = "GENDER"
	LabelNationality Label = "NATIONALITY"
	LabelManual      Label = "MANUAL"
)

// NormalizeLabel trims and upper-cases a raw label.
func NormalizeLabel(raw string) Label {
	return Label(strings.ToUpper(strings.TrimSpace(raw)))
}

// SourceLayer names the detection layer that produced or confirmed a span.
type SourceLayer string

const (
	LayerNER        SourceLayer = "ner"
	LayerDictionary SourceLayer = "dictionary"
	LayerLLM        SourceLayer = "llm"
	LayerValidated  SourceLayer = "validated"
	LayerRule       SourceLayer = "rule"
	LayerManual     SourceLayer = "manual"
)

const (
	// DefaultIoUThreshold is the intersection-over-union above which two image regions
	// on the same page are considered the same detection.
	DefaultIoUThreshold = 0.3

	// LowConfidenceThreshold marks spans worth a human look in processing summaries.
	LowConfidenceThreshold = 0.7
)
