package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/International-Combat-Archery-Alliance/fan-registration/registration"

	ConfirmationMessage = "Payment Successful! The owner has been notified."
)

// PaymentMethod is the tokenized card. Only its ID leaves the pipeline.
type PaymentMethod struct {
	ID string
}

type PaymentTokenizer interface {
	Ready() bool
	Tokenize(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error)
}

type SubmitFormRequest struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Address         string     `json:"address"`
	Phone           string     `json:"phone"`
	Membership      Membership `json:"membership"`
	PaymentMethodID string     `json:"paymentMethodId"`
}

type SubmitFormResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type Backend interface {
	SubmitForm(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error)
}

type Notification struct {
	Name       string
	Email      string
	Membership Membership
}

type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

type Confirmation struct {
	Message         string
	PaymentMethodID string
}

type Confirmer interface {
	Confirm(ctx context.Context, confirmation Confirmation)
}

type ConfirmerFunc func(ctx context.Context, confirmation Confirmation)

func (f ConfirmerFunc) Confirm(ctx context.Context, confirmation Confirmation) {
	f(ctx, confirmation)
}

type Result struct {
	PaymentMethodID string
	Confirmation    Confirmation
}

func NewSubmitFormRequest(d Draft, paymentMethodID string) SubmitFormRequest {
	return SubmitFormRequest{
		Name:            d.Name,
		Email:           d.Email,
		Address:         d.Address,
		Phone:           d.Phone,
		Membership:      d.Membership,
		PaymentMethodID: paymentMethodID,
	}
}

func NewNotification(d Draft) Notification {
	return Notification{
		Name:       d.Name,
		Email:      d.Email,
		Membership: d.Membership,
	}
}

type Pipeline struct {
	tokenizer PaymentTokenizer
	backend   Backend
	notifier  Notifier
	logger    *slog.Logger
	tracer    trace.Tracer

	notifications sync.WaitGroup
}

func NewPipeline(tokenizer PaymentTokenizer, backend Backend, notifier Notifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		tokenizer: tokenizer,
		backend:   backend,
		notifier:  notifier,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// Submit runs one submission attempt. The confirmer is called at most once, and
// only after the backend accepted the registration and the notification was
// dispatched. Notification delivery is not awaited.
func (p *Pipeline) Submit(ctx context.Context, draft Draft, card CardEntry, confirmer Confirmer) (result Result, err error) {
	ctx, span := p.tracer.Start(ctx, "registration.Submit", trace.WithAttributes(
		attribute.String("membership", string(draft.Membership)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	_, err = guard("preflight", func() (struct{}, error) {
		return struct{}{}, p.preflight(card)
	})
	if err != nil {
		p.logger.WarnContext(ctx, "Payment widget not ready", slog.String("error", err.Error()))
		return Result{}, err
	}

	paymentMethod, err := guard("tokenization", func() (PaymentMethod, error) {
		return p.tokenizer.Tokenize(ctx, card, draft)
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to create payment method", slog.String("error", err.Error()))
		var regErr *Error
		if errors.As(err, &regErr) {
			return Result{}, err
		}
		return Result{}, NewTokenizationFailedError("Failed to create payment method", err)
	}
	span.AddEvent("payment method created")

	resp, err := guard("submission", func() (SubmitFormResponse, error) {
		return p.backend.SubmitForm(ctx, NewSubmitFormRequest(draft, paymentMethod.ID))
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "Error in payment processing", slog.String("error", err.Error()))
		var regErr *Error
		if errors.As(err, &regErr) {
			return Result{}, err
		}
		return Result{}, NewSubmissionFailedError("Failed to submit registration", err)
	}

	if !resp.Success {
		p.logger.ErrorContext(ctx, "Payment failed", slog.String("message", resp.Message))
		return Result{}, NewSubmissionRejectedError(resp.Message)
	}

	p.dispatchNotification(ctx, NewNotification(draft))

	confirmation := Confirmation{
		Message:         ConfirmationMessage,
		PaymentMethodID: paymentMethod.ID,
	}
	if confirmer != nil {
		confirmer.Confirm(ctx, confirmation)
	}

	return Result{
		PaymentMethodID: paymentMethod.ID,
		Confirmation:    confirmation,
	}, nil
}

func (p *Pipeline) preflight(card CardEntry) error {
	if p.tokenizer == nil || p.backend == nil {
		return NewNotReadyError("Payment client is not configured")
	}

	if !p.tokenizer.Ready() {
		return NewNotReadyError("Payment client is not initialized")
	}

	if card.IsZero() {
		return NewNotReadyError("Card input is missing")
	}

	return nil
}

// dispatchNotification spawns the notification and returns without waiting.
// The request context's cancellation is dropped so the send outlives the request.
func (p *Pipeline) dispatchNotification(ctx context.Context, notification Notification) {
	if p.notifier == nil {
		p.logger.WarnContext(ctx, "No notifier configured, skipping notification")
		return
	}

	ctx = context.WithoutCancel(ctx)

	p.notifications.Add(1)
	go func() {
		defer p.notifications.Done()

		ctx, span := p.tracer.Start(ctx, "registration.Notify")
		defer span.End()

		_, err := guard("notification", func() (struct{}, error) {
			return struct{}{}, p.notifier.Notify(ctx, notification)
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			p.logger.ErrorContext(ctx, "Failed to send notification", slog.String("error", err.Error()), slog.String("email", notification.Email))
		}
	}()
}

// Close waits for dispatched notifications to finish or for ctx to be done.
func (p *Pipeline) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.notifications.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notifications still in flight: %w", ctx.Err())
	}
}

func guard[T any](stage string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewUnexpectedError(fmt.Sprintf("Panic during %s", stage), fmt.Errorf("%v", r))
		}
	}()

	return fn()
}
