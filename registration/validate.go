package registration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type FieldViolation struct {
	Field   Field
	Message string
}

type FieldViolations []FieldViolation

func (v FieldViolations) Error() string {
	msgs := make([]string, 0, len(v))
	for _, violation := range v {
		msgs = append(msgs, fmt.Sprintf("%s: %s", violation.Field, violation.Message))
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed validation.
func (v FieldViolations) Has(field Field) bool {
	for _, violation := range v {
		if violation.Field == field {
			return true
		}
	}
	return false
}

// ValidateDraft enforces the required markers of the form. Presentation layers
// call it before handing a draft to the pipeline.
func ValidateDraft(d Draft) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return NewInvalidDraftError("Draft could not be validated", err)
	}

	violations := FieldViolations{}
	for _, fe := range validationErrs {
		violations = append(violations, FieldViolation{
			Field:   Field(strings.ToLower(fe.Field())),
			Message: violationMessage(fe),
		})
	}

	return NewInvalidDraftError("Draft is missing required fields", violations)
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return "Invalid value"
	}
}
