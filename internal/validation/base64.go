// Package validation holds request rules shared by the HTTP DTOs.
package validation

import (
	"encoding/base64"

	validation "github.com/jellydator/validation"
)

// Base64 accepts standard base64 with padding, the encoding used for document, artifact
// and metadata payloads in JSON bodies. Empty strings pass so Required decides.
var Base64 = validation.NewStringRuleWithError(
	func(s string) bool {
		_, err := base64.StdEncoding.DecodeString(s)
		return err == nil
	},
	validation.NewError("validation_base64", "must be valid base64-encoded data"),
)
