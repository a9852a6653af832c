package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/piimask/internal/errors"
)

var (
	// labelRegex matches category labels such as NAME or BANK_ACCOUNT, any case.
	labelRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)
)

// keyFilePrefix is the leading field of every key file line.
const keyFilePrefix = "piimask-key:"

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// CategoryLabel validates a category label.
var CategoryLabel = validation.NewStringRuleWithError(
	func(s string) bool {
		return labelRegex.MatchString(s)
	},
	validation.NewError("validation_category_label", "must be a category label such as NAME or BANK_ACCOUNT"),
)

// KeyFile validates the shape of key file content. Full parsing happens in the crypto domain.
var KeyFile = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.HasPrefix(strings.TrimSpace(s), keyFilePrefix)
	},
	validation.NewError("validation_key_file", "must be a piimask key file"),
)
