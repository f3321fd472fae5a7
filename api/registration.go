package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime/types"
)

const maxBodyBytes = 65536

type ErrorCode string

const (
	InvalidBody          ErrorCode = "InvalidBody"
	InputValidationError ErrorCode = "InputValidationError"
	NotFound             ErrorCode = "NotFound"
	NotReady             ErrorCode = "NotReady"
	PaymentFailed        ErrorCode = "PaymentFailed"
	Rejected             ErrorCode = "Rejected"
	SubmissionFailed     ErrorCode = "SubmissionFailed"
	InternalError        ErrorCode = "InternalError"
)

type Error struct {
	Code      ErrorCode        `json:"code"`
	Message   string           `json:"message"`
	RequestId *uuid.UUID       `json:"requestId,omitempty"`
	Fields    []FieldViolation `json:"fields,omitempty"`
}

type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Card struct {
	Token string `json:"token"`
}

type RegistrationRequest struct {
	Name       string      `json:"name"`
	Email      types.Email `json:"email"`
	Address    string      `json:"address"`
	Phone      string      `json:"phone"`
	Membership string      `json:"membership"`
	Card       Card        `json:"card"`
}

type RegistrationResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	PaymentMethodId string `json:"paymentMethodId"`
}

func (a *API) postRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body RegistrationRequest
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		logger.Warn("Invalid body for registration", slog.String("error", err.Error()))
		a.writeError(w, r, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}

	draft, card, err := formValuesToDraft(apiRegistrationLookup(body), tokenOnlyCardFields)
	if err != nil {
		logger.Warn("Invalid body for registration", slog.String("error", err.Error()))
		a.writeError(w, r, http.StatusBadRequest, InvalidBody, "Invalid body")
		return
	}

	err = registration.ValidateDraft(draft)
	if err != nil {
		logger.Warn("Registration is missing required fields", slog.String("error", err.Error()))
		a.writeJSON(w, http.StatusBadRequest, a.newError(r, InputValidationError, "Registration is missing required fields", violationsFromErr(err)))
		return
	}

	result, err := a.submitter.Submit(ctx, draft, card, nil)
	if err != nil {
		logger.Error("Error trying to register", slog.String("error", err.Error()))

		var registrationErr *registration.Error
		if errors.As(err, &registrationErr) {
			switch registrationErr.Reason {
			case registration.REASON_NOT_READY:
				a.writeError(w, r, http.StatusServiceUnavailable, NotReady, "Payment client is not ready")
				return
			case registration.REASON_TOKENIZATION_FAILED:
				a.writeError(w, r, http.StatusPaymentRequired, PaymentFailed, "Failed to create payment method")
				return
			case registration.REASON_SUBMISSION_REJECTED:
				message := registrationErr.Message
				if message == "" {
					message = "Payment failed"
				}
				a.writeError(w, r, http.StatusUnprocessableEntity, Rejected, message)
				return
			case registration.REASON_SUBMISSION_FAILED:
				a.writeError(w, r, http.StatusBadGateway, SubmissionFailed, "Failed to submit registration")
				return
			}
		}

		a.writeError(w, r, http.StatusInternalServerError, InternalError, "Failed to register")
		return
	}

	a.writeJSON(w, http.StatusOK, RegistrationResponse{
		Success:         true,
		Message:         result.Confirmation.Message,
		PaymentMethodId: result.PaymentMethodID,
	})
}

func apiRegistrationLookup(body RegistrationRequest) func(registration.Field) string {
	values := map[registration.Field]string{
		registration.FIELD_NAME:       body.Name,
		registration.FIELD_EMAIL:      string(body.Email),
		registration.FIELD_ADDRESS:    body.Address,
		registration.FIELD_PHONE:      body.Phone,
		registration.FIELD_MEMBERSHIP: body.Membership,
		registration.FIELD_CARD_TOKEN: body.Card.Token,
	}

	return func(field registration.Field) string {
		return values[field]
	}
}

// formValuesToDraft folds every draft field and the given card fields into a
// fresh draft and card entry. Values are trimmed so whitespace alone never
// satisfies a required field.
func formValuesToDraft(lookup func(registration.Field) string, cardFields []registration.Field) (registration.Draft, registration.CardEntry, error) {
	draft := registration.NewDraft()
	for _, field := range registration.Fields() {
		value := strings.TrimSpace(lookup(field))
		if field == registration.FIELD_MEMBERSHIP && value == "" {
			continue
		}

		var err error
		draft, err = draft.Update(field, value)
		if err != nil {
			return registration.Draft{}, registration.CardEntry{}, err
		}
	}

	card := registration.CardEntry{}
	for _, field := range cardFields {
		var err error
		card, err = card.Update(field, strings.TrimSpace(lookup(field)))
		if err != nil {
			return registration.Draft{}, registration.CardEntry{}, err
		}
	}

	return draft, card, nil
}

func violationsFromErr(err error) []FieldViolation {
	var violations registration.FieldViolations
	if !errors.As(err, &violations) {
		return nil
	}

	out := make([]FieldViolation, 0, len(violations))
	for _, v := range violations {
		out = append(out, FieldViolation{Field: string(v.Field), Message: v.Message})
	}
	return out
}

func (a *API) newError(r *http.Request, code ErrorCode, message string, fields []FieldViolation) Error {
	e := Error{
		Code:    code,
		Message: message,
		Fields:  fields,
	}
	if requestId, ok := getRequestIdFromCtx(r.Context()); ok {
		e.RequestId = &requestId
	}
	return e
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, message string) {
	a.writeJSON(w, status, a.newError(r, code, message, nil))
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		a.logger.Error("failed to marshal response", slog.String("error", err.Error()))
		status = http.StatusInternalServerError
		jsonBody = []byte(`{"message": "failed to build response", "code": "InternalError"}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonBody)
}
