package registration

import "fmt"

type ErrorReason string

const (
	REASON_NOT_READY           ErrorReason = "NOT_READY"
	REASON_INVALID_DRAFT       ErrorReason = "INVALID_DRAFT"
	REASON_UNKNOWN_FIELD       ErrorReason = "UNKNOWN_FIELD"
	REASON_TOKENIZATION_FAILED ErrorReason = "TOKENIZATION_FAILED"
	REASON_SUBMISSION_FAILED   ErrorReason = "SUBMISSION_FAILED"
	REASON_SUBMISSION_REJECTED ErrorReason = "SUBMISSION_REJECTED"
	REASON_UNEXPECTED          ErrorReason = "UNEXPECTED"
)

type Error struct {
	Reason  ErrorReason
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s. Cause: %s", e.Reason, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newRegistrationError(reason ErrorReason, message string, cause error) *Error {
	return &Error{
		Reason:  reason,
		Message: message,
		Cause:   cause,
	}
}

func NewNotReadyError(message string) *Error {
	return newRegistrationError(REASON_NOT_READY, message, nil)
}

func NewInvalidDraftError(message string, cause error) *Error {
	return newRegistrationError(REASON_INVALID_DRAFT, message, cause)
}

func NewUnknownFieldError(message string) *Error {
	return newRegistrationError(REASON_UNKNOWN_FIELD, message, nil)
}

func NewTokenizationFailedError(message string, cause error) *Error {
	return newRegistrationError(REASON_TOKENIZATION_FAILED, message, cause)
}

func NewSubmissionFailedError(message string, cause error) *Error {
	return newRegistrationError(REASON_SUBMISSION_FAILED, message, cause)
}

func NewSubmissionRejectedError(message string) *Error {
	return newRegistrationError(REASON_SUBMISSION_REJECTED, message, nil)
}

func NewUnexpectedError(message string, cause error) *Error {
	return newRegistrationError(REASON_UNEXPECTED, message, cause)
}
