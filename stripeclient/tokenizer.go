package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/International-Combat-Archery-Alliance/fan-registration/ptr"
	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"github.com/stripe/stripe-go/v85"
)

var _ registration.PaymentTokenizer = &Tokenizer{}

type paymentMethodCreator interface {
	Create(ctx context.Context, params *stripe.PaymentMethodCreateParams) (*stripe.PaymentMethod, error)
}

// Tokenizer turns card entries into Stripe payment methods.
type Tokenizer struct {
	paymentMethods paymentMethodCreator
}

// NewTokenizer wraps an already constructed Stripe client. A nil client gives
// a tokenizer that reports not ready.
func NewTokenizer(client *stripe.Client) *Tokenizer {
	if client == nil {
		return &Tokenizer{}
	}

	return newTokenizer(client.V1PaymentMethods)
}

func newTokenizer(paymentMethods paymentMethodCreator) *Tokenizer {
	return &Tokenizer{paymentMethods: paymentMethods}
}

func (t *Tokenizer) Ready() bool {
	return t != nil && t.paymentMethods != nil
}

func (t *Tokenizer) Tokenize(ctx context.Context, card registration.CardEntry, billing registration.Draft) (registration.PaymentMethod, error) {
	cardParams, err := toCardParams(card)
	if err != nil {
		return registration.PaymentMethod{}, registration.NewTokenizationFailedError("Card details are invalid", err)
	}

	params := &stripe.PaymentMethodCreateParams{
		Type: ptr.String(string(stripe.PaymentMethodTypeCard)),
		Card: cardParams,
		BillingDetails: &stripe.PaymentMethodCreateBillingDetailsParams{
			Name:  ptr.NonEmptyString(billing.Name),
			Email: ptr.NonEmptyString(billing.Email),
			Phone: ptr.NonEmptyString(billing.Phone),
			Address: &stripe.AddressParams{
				Line1: ptr.NonEmptyString(billing.Address),
			},
		},
	}

	pm, err := t.paymentMethods.Create(ctx, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return registration.PaymentMethod{}, registration.NewTokenizationFailedError(stripeErr.Msg, err)
		}
		return registration.PaymentMethod{}, err
	}

	if pm == nil || pm.ID == "" {
		return registration.PaymentMethod{}, registration.NewTokenizationFailedError("Stripe returned a payment method without an ID", nil)
	}

	return registration.PaymentMethod{ID: pm.ID}, nil
}

func toCardParams(card registration.CardEntry) (*stripe.PaymentMethodCreateCardParams, error) {
	if card.HasToken() {
		return &stripe.PaymentMethodCreateCardParams{
			Token: ptr.String(card.Token),
		}, nil
	}

	expMonth, err := strconv.ParseInt(strings.TrimSpace(card.ExpMonth), 10, 64)
	if err != nil || expMonth < 1 || expMonth > 12 {
		return nil, fmt.Errorf("invalid expiry month %q", card.ExpMonth)
	}

	expYear, err := strconv.ParseInt(strings.TrimSpace(card.ExpYear), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry year %q", card.ExpYear)
	}

	return &stripe.PaymentMethodCreateCardParams{
		Number:   ptr.String(strings.ReplaceAll(card.Number, " ", "")),
		ExpMonth: ptr.Int64(expMonth),
		ExpYear:  ptr.Int64(expYear),
		CVC:      ptr.NonEmptyString(card.CVC),
	}, nil
}
