package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ Submitter = &mockSubmitter{}

type submitCall struct {
	Draft registration.Draft
	Card  registration.CardEntry
}

type mockSubmitter struct {
	SubmitFunc func(ctx context.Context, draft registration.Draft, card registration.CardEntry, confirmer registration.Confirmer) (registration.Result, error)

	mu    sync.Mutex
	calls []submitCall
}

func (m *mockSubmitter) Submit(ctx context.Context, draft registration.Draft, card registration.CardEntry, confirmer registration.Confirmer) (registration.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, submitCall{Draft: draft, Card: card})
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, draft, card, confirmer)
	}
	return succeedingSubmit(ctx, draft, card, confirmer)
}

func (m *mockSubmitter) Calls() []submitCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]submitCall(nil), m.calls...)
}

func succeedingSubmit(ctx context.Context, draft registration.Draft, card registration.CardEntry, confirmer registration.Confirmer) (registration.Result, error) {
	confirmation := registration.Confirmation{
		Message:         registration.ConfirmationMessage,
		PaymentMethodID: "pm_123",
	}
	if confirmer != nil {
		confirmer.Confirm(ctx, confirmation)
	}
	return registration.Result{PaymentMethodID: "pm_123", Confirmation: confirmation}, nil
}

func failingSubmit(err error) func(ctx context.Context, draft registration.Draft, card registration.CardEntry, confirmer registration.Confirmer) (registration.Result, error) {
	return func(ctx context.Context, draft registration.Draft, card registration.CardEntry, confirmer registration.Confirmer) (registration.Result, error) {
		return registration.Result{}, err
	}
}
