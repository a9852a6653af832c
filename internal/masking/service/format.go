package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
)

// DetectFormat sniffs content and falls back to the file extension for text, where
// sniffing cannot tell plain text from CSV.
func DetectFormat(name string, content []byte) (maskingDomain.Format, error) {
	mt := mimetype.Detect(content)
	switch {
	case mt.Is("image/png"):
		return maskingDomain.FormatPNG, nil
	case mt.Is("image/jpeg"):
		return maskingDomain.FormatJPEG, nil
	case mt.Is("text/csv"):
		return maskingDomain.FormatCSV, nil
	}

	isText := false
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			isText = true
			break
		}
	}
	if !isText {
		return "", fmt.Errorf("%w: %s", maskingDomain.ErrUnsupportedFormat, mt.String())
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return maskingDomain.FormatCSV, nil
	default:
		return maskingDomain.FormatText, nil
	}
}

// ParseFormat accepts an explicit format name.
func ParseFormat(raw string) (maskingDomain.Format, error) {
	switch f := maskingDomain.Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case maskingDomain.FormatText, maskingDomain.FormatCSV, maskingDomain.FormatPNG, maskingDomain.FormatJPEG:
		return f, nil
	case "txt":
		return maskingDomain.FormatText, nil
	case "jpg":
		return maskingDomain.FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", maskingDomain.ErrUnsupportedFormat, raw)
	}
}
