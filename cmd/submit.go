package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/International-Combat-Archery-Alliance/fan-registration/config"
	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"github.com/spf13/cobra"
)

var promptLabels = map[registration.Field]string{
	registration.FIELD_NAME:           "Name",
	registration.FIELD_EMAIL:          "Email",
	registration.FIELD_ADDRESS:        "Address",
	registration.FIELD_PHONE:          "Phone",
	registration.FIELD_MEMBERSHIP:     "Membership Type",
	registration.FIELD_CARD_TOKEN:     "Card token (leave blank to type the card)",
	registration.FIELD_CARD_NUMBER:    "Card Number",
	registration.FIELD_CARD_EXP_MONTH: "Expiry Month",
	registration.FIELD_CARD_EXP_YEAR:  "Expiry Year",
	registration.FIELD_CARD_CVC:       "CVC",
}

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit",
		Short: "Fill in the registration form in the terminal and submit it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return submit(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func submit(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(ctx, &lazySSMResolver{})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Env)

	tp, err := setupTracing(ctx, cfg, logger)
	if err != nil {
		return err
	}

	pipeline, cleanup, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	p := newPrompter(in, out)
	draft, card, err := p.promptRegistration()
	if err != nil {
		return err
	}

	_, err = pipeline.Submit(ctx, draft, card, registration.ConfirmerFunc(func(_ context.Context, c registration.Confirmation) {
		fmt.Fprintln(out, c.Message)
	}))

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	closeErr := pipeline.Close(closeCtx)

	flushErr := tp.Shutdown(closeCtx)
	if flushErr != nil {
		logger.Error("Failed to flush traces", slog.String("error", flushErr.Error()))
	}

	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return closeErr
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}

	return strings.TrimSpace(line), nil
}

// promptRegistration asks for every field, then asks again for the ones that
// fail validation until the draft is complete.
func (p *prompter) promptRegistration() (registration.Draft, registration.CardEntry, error) {
	draft := registration.NewDraft()
	fields := registration.Fields()

	for {
		for _, field := range fields {
			value, err := p.askDraftField(field)
			if err != nil {
				return registration.Draft{}, registration.CardEntry{}, err
			}
			if value == "" && field == registration.FIELD_MEMBERSHIP {
				value = string(registration.BASIC)
			}

			draft, err = draft.Update(field, value)
			if err != nil {
				return registration.Draft{}, registration.CardEntry{}, err
			}
		}

		err := registration.ValidateDraft(draft)
		if err == nil {
			break
		}

		var violations registration.FieldViolations
		if !errors.As(err, &violations) {
			return registration.Draft{}, registration.CardEntry{}, err
		}

		fields = fields[:0:0]
		for _, v := range violations {
			fmt.Fprintf(p.out, "%s: %s\n", promptLabels[v.Field], v.Message)
			fields = append(fields, v.Field)
		}
	}

	card, err := p.promptCard()
	if err != nil {
		return registration.Draft{}, registration.CardEntry{}, err
	}

	return draft, card, nil
}

func (p *prompter) askDraftField(field registration.Field) (string, error) {
	if field != registration.FIELD_MEMBERSHIP {
		return p.ask(promptLabels[field] + " *")
	}

	options := []string{}
	for _, m := range registration.Memberships() {
		options = append(options, string(m))
	}

	return p.ask(fmt.Sprintf("%s * [%s] (default %s)", promptLabels[field], strings.Join(options, "/"), registration.BASIC))
}

func (p *prompter) promptCard() (registration.CardEntry, error) {
	card := registration.CardEntry{}

	token, err := p.ask(promptLabels[registration.FIELD_CARD_TOKEN])
	if err != nil {
		return registration.CardEntry{}, err
	}
	if token != "" {
		return card.Update(registration.FIELD_CARD_TOKEN, token)
	}

	for _, field := range registration.CardFields() {
		if field == registration.FIELD_CARD_TOKEN {
			continue
		}

		value, err := p.ask(promptLabels[field])
		if err != nil {
			return registration.CardEntry{}, err
		}

		card, err = card.Update(field, value)
		if err != nil {
			return registration.CardEntry{}, err
		}
	}

	return card, nil
}
