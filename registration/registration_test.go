package registration

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noopLogger = slog.New(slog.DiscardHandler)

var _ PaymentTokenizer = &mockTokenizer{}

type mockTokenizer struct {
	ReadyFunc    func() bool
	TokenizeFunc func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error)
	calls        int
}

func (m *mockTokenizer) Ready() bool {
	if m.ReadyFunc != nil {
		return m.ReadyFunc()
	}
	return true
}

func (m *mockTokenizer) Tokenize(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
	m.calls++
	return m.TokenizeFunc(ctx, card, billing)
}

var _ Backend = &mockBackend{}

type mockBackend struct {
	SubmitFormFunc func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error)
	calls          int
}

func (m *mockBackend) SubmitForm(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
	m.calls++
	return m.SubmitFormFunc(ctx, request)
}

var _ Notifier = &mockNotifier{}

type mockNotifier struct {
	NotifyFunc func(ctx context.Context, notification Notification) error

	mu    sync.Mutex
	calls []Notification
}

func (m *mockNotifier) Notify(ctx context.Context, notification Notification) error {
	m.mu.Lock()
	m.calls = append(m.calls, notification)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, notification)
	}
	return nil
}

func (m *mockNotifier) Calls() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.calls...)
}

type recordingConfirmer struct {
	confirmations []Confirmation
}

func (r *recordingConfirmer) Confirm(ctx context.Context, confirmation Confirmation) {
	r.confirmations = append(r.confirmations, confirmation)
}

func aliceDraft() Draft {
	return Draft{
		Name:       "Alice",
		Email:      "a@x.com",
		Address:    "1 St",
		Phone:      "555",
		Membership: VIP,
	}
}

var testCard = CardEntry{Token: "tok_visa"}

func closePipeline(t *testing.T, p *Pipeline) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, p.Close(ctx))
}

func TestSubmit(t *testing.T) {
	t.Run("successful submission", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				assert.Equal(t, testCard, card)
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
		var gotRequest SubmitFormRequest
		backend := &mockBackend{
			SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
				gotRequest = request
				return SubmitFormResponse{Success: true}, nil
			},
		}
		notifier := &mockNotifier{}
		confirmer := &recordingConfirmer{}

		p := NewPipeline(tokenizer, backend, notifier, noopLogger)
		result, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)
		require.NoError(t, err)
		closePipeline(t, p)

		expectedRequest := SubmitFormRequest{
			Name:            "Alice",
			Email:           "a@x.com",
			Address:         "1 St",
			Phone:           "555",
			Membership:      VIP,
			PaymentMethodID: "pm_1",
		}
		if diff := cmp.Diff(expectedRequest, gotRequest); diff != "" {
			t.Errorf("submit form request mismatch (-want +got):\n%s", diff)
		}

		assert.Equal(t, []Notification{{Name: "Alice", Email: "a@x.com", Membership: VIP}}, notifier.Calls())
		require.Len(t, confirmer.confirmations, 1)
		assert.Equal(t, ConfirmationMessage, confirmer.confirmations[0].Message)
		assert.Equal(t, "pm_1", result.PaymentMethodID)
	})

	t.Run("tokenization error never calls the backend", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{}, errors.New("card declined")
			},
		}
		backend := &mockBackend{}
		notifier := &mockNotifier{}
		confirmer := &recordingConfirmer{}

		p := NewPipeline(tokenizer, backend, notifier, noopLogger)
		_, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)
		closePipeline(t, p)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_TOKENIZATION_FAILED, regErr.Reason)
		assert.Equal(t, 0, backend.calls)
		assert.Empty(t, notifier.Calls())
		assert.Empty(t, confirmer.confirmations)
	})

	t.Run("tokenizer registration errors are passed through", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{}, NewTokenizationFailedError("Your card was declined.", nil)
			},
		}

		p := NewPipeline(tokenizer, &mockBackend{}, &mockNotifier{}, noopLogger)
		_, err := p.Submit(context.Background(), aliceDraft(), testCard, nil)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, "Your card was declined.", regErr.Message)
	})

	t.Run("business rejection", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
		backend := &mockBackend{
			SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
				return SubmitFormResponse{Success: false, Message: "declined"}, nil
			},
		}
		notifier := &mockNotifier{}
		confirmer := &recordingConfirmer{}

		p := NewPipeline(tokenizer, backend, notifier, noopLogger)
		_, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)
		closePipeline(t, p)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_SUBMISSION_REJECTED, regErr.Reason)
		assert.Equal(t, "declined", regErr.Message)
		assert.Empty(t, notifier.Calls())
		assert.Empty(t, confirmer.confirmations)
	})

	t.Run("network failure during submission", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
		backend := &mockBackend{
			SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
				return SubmitFormResponse{}, errors.New("connection refused")
			},
		}
		notifier := &mockNotifier{}
		confirmer := &recordingConfirmer{}

		p := NewPipeline(tokenizer, backend, notifier, noopLogger)
		assert.NotPanics(t, func() {
			_, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)

			var regErr *Error
			require.True(t, errors.As(err, &regErr))
			assert.Equal(t, REASON_SUBMISSION_FAILED, regErr.Reason)
		})
		closePipeline(t, p)

		assert.Empty(t, notifier.Calls())
		assert.Empty(t, confirmer.confirmations)
	})

	t.Run("panic during submission is contained", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
		backend := &mockBackend{
			SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
				panic("malformed response")
			},
		}
		confirmer := &recordingConfirmer{}

		p := NewPipeline(tokenizer, backend, &mockNotifier{}, noopLogger)
		assert.NotPanics(t, func() {
			_, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)

			var regErr *Error
			require.True(t, errors.As(err, &regErr))
			assert.Equal(t, REASON_UNEXPECTED, regErr.Reason)
		})
		assert.Empty(t, confirmer.confirmations)
	})

	t.Run("panic during tokenization is contained", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				panic("widget exploded")
			},
		}
		backend := &mockBackend{}

		p := NewPipeline(tokenizer, backend, &mockNotifier{}, noopLogger)
		_, err := p.Submit(context.Background(), aliceDraft(), testCard, nil)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_UNEXPECTED, regErr.Reason)
		assert.Equal(t, 0, backend.calls)
	})

	t.Run("notification failure still confirms once", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
		backend := &mockBackend{
			SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
				return SubmitFormResponse{Success: true}, nil
			},
		}
		notifier := &mockNotifier{
			NotifyFunc: func(ctx context.Context, notification Notification) error {
				return errors.New("emailjs unavailable")
			},
		}
		confirmer := &recordingConfirmer{}

		p := NewPipeline(tokenizer, backend, notifier, noopLogger)
		_, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)
		require.NoError(t, err)
		closePipeline(t, p)

		assert.Len(t, notifier.Calls(), 1)
		assert.Len(t, confirmer.confirmations, 1)
	})

	t.Run("confirmation does not wait for the notification", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
		backend := &mockBackend{
			SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
				return SubmitFormResponse{Success: true}, nil
			},
		}
		release := make(chan struct{})
		notifier := &mockNotifier{
			NotifyFunc: func(ctx context.Context, notification Notification) error {
				<-release
				return nil
			},
		}
		confirmer := &recordingConfirmer{}

		p := NewPipeline(tokenizer, backend, notifier, noopLogger)
		_, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)
		require.NoError(t, err)
		assert.Len(t, confirmer.confirmations, 1)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.Error(t, p.Close(ctx))

		close(release)
		closePipeline(t, p)
	})

	t.Run("notification outlives a cancelled request", func(t *testing.T) {
		tokenizer := &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
		backend := &mockBackend{
			SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
				return SubmitFormResponse{Success: true}, nil
			},
		}
		var notifyCtxErr error
		notifier := &mockNotifier{
			NotifyFunc: func(ctx context.Context, notification Notification) error {
				notifyCtxErr = ctx.Err()
				return nil
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		p := NewPipeline(tokenizer, backend, notifier, noopLogger)
		_, err := p.Submit(ctx, aliceDraft(), testCard, nil)
		cancel()
		require.NoError(t, err)
		closePipeline(t, p)

		assert.NoError(t, notifyCtxErr)
	})
}

func TestSubmitPreflight(t *testing.T) {
	successfulTokenizer := func() *mockTokenizer {
		return &mockTokenizer{
			TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
				return PaymentMethod{ID: "pm_1"}, nil
			},
		}
	}

	t.Run("missing tokenizer", func(t *testing.T) {
		backend := &mockBackend{}
		p := NewPipeline(nil, backend, &mockNotifier{}, noopLogger)

		_, err := p.Submit(context.Background(), aliceDraft(), testCard, nil)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_NOT_READY, regErr.Reason)
		assert.Equal(t, 0, backend.calls)
	})

	t.Run("missing backend", func(t *testing.T) {
		tokenizer := successfulTokenizer()
		p := NewPipeline(tokenizer, nil, &mockNotifier{}, noopLogger)

		_, err := p.Submit(context.Background(), aliceDraft(), testCard, nil)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_NOT_READY, regErr.Reason)
		assert.Equal(t, 0, tokenizer.calls)
	})

	t.Run("tokenizer not initialized", func(t *testing.T) {
		tokenizer := successfulTokenizer()
		tokenizer.ReadyFunc = func() bool { return false }
		backend := &mockBackend{}
		p := NewPipeline(tokenizer, backend, &mockNotifier{}, noopLogger)

		_, err := p.Submit(context.Background(), aliceDraft(), testCard, nil)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_NOT_READY, regErr.Reason)
		assert.Equal(t, 0, tokenizer.calls)
		assert.Equal(t, 0, backend.calls)
	})

	t.Run("panicking readiness check is contained", func(t *testing.T) {
		tokenizer := successfulTokenizer()
		tokenizer.ReadyFunc = func() bool {
			var m map[string]bool
			m["ready"] = true
			return true
		}
		backend := &mockBackend{}
		confirmer := &recordingConfirmer{}
		p := NewPipeline(tokenizer, backend, &mockNotifier{}, noopLogger)

		var err error
		assert.NotPanics(t, func() {
			_, err = p.Submit(context.Background(), aliceDraft(), testCard, confirmer)
		})

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_UNEXPECTED, regErr.Reason)
		assert.Equal(t, 0, tokenizer.calls)
		assert.Equal(t, 0, backend.calls)
		assert.Empty(t, confirmer.confirmations)
	})

	t.Run("card input missing", func(t *testing.T) {
		tokenizer := successfulTokenizer()
		backend := &mockBackend{}
		confirmer := &recordingConfirmer{}
		p := NewPipeline(tokenizer, backend, &mockNotifier{}, noopLogger)

		_, err := p.Submit(context.Background(), aliceDraft(), CardEntry{}, confirmer)

		var regErr *Error
		require.True(t, errors.As(err, &regErr))
		assert.Equal(t, REASON_NOT_READY, regErr.Reason)
		assert.Equal(t, 0, tokenizer.calls)
		assert.Empty(t, confirmer.confirmations)
	})
}

func TestSubmitWithoutNotifier(t *testing.T) {
	tokenizer := &mockTokenizer{
		TokenizeFunc: func(ctx context.Context, card CardEntry, billing Draft) (PaymentMethod, error) {
			return PaymentMethod{ID: "pm_1"}, nil
		},
	}
	backend := &mockBackend{
		SubmitFormFunc: func(ctx context.Context, request SubmitFormRequest) (SubmitFormResponse, error) {
			return SubmitFormResponse{Success: true}, nil
		},
	}
	confirmer := &recordingConfirmer{}

	p := NewPipeline(tokenizer, backend, nil, noopLogger)
	_, err := p.Submit(context.Background(), aliceDraft(), testCard, confirmer)

	assert.NoError(t, err)
	assert.Len(t, confirmer.confirmations, 1)
}
