package main

import (
	"fmt"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/fan-registration/backend"
	"github.com/International-Combat-Archery-Alliance/fan-registration/config"
	"github.com/International-Combat-Archery-Alliance/fan-registration/notify"
	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"github.com/International-Combat-Archery-Alliance/fan-registration/stripeclient"
	"github.com/stripe/stripe-go/v85"
)

// buildPipeline wires the adapters picked by cfg. The returned cleanup closes
// whatever connections the notifier holds.
func buildPipeline(cfg config.Config, logger *slog.Logger) (*registration.Pipeline, func(), error) {
	var stripeClient *stripe.Client
	if cfg.StripeSecretKey != "" {
		stripeClient = stripe.NewClient(cfg.StripeSecretKey)
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set, payments will report not ready")
	}
	tokenizer := stripeclient.NewTokenizer(stripeClient)

	backendClient, err := backend.NewClient(cfg.BackendURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	notifier, cleanup, err := createNotifier(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return registration.NewPipeline(tokenizer, backendClient, notifier, logger), cleanup, nil
}

func createNotifier(cfg config.Config, logger *slog.Logger) (registration.Notifier, func(), error) {
	noCleanup := func() {}

	switch cfg.Notifier {
	case config.NOTIFIER_EMAILJS:
		notifier, err := notify.NewEmailJSNotifier(notify.EmailJSConfig{
			ServiceID:   cfg.EmailJSServiceID,
			TemplateID:  cfg.EmailJSTemplateID,
			UserID:      cfg.EmailJSUserID,
			AccessToken: cfg.EmailJSAccessToken,
		}, nil)
		if err != nil {
			return nil, nil, err
		}
		return notifier, noCleanup, nil
	case config.NOTIFIER_EMAIL:
		sender, err := createEmailSender(logger, cfg.Env)
		if err != nil {
			return nil, nil, err
		}
		return registration.NewEmailNotifier(sender, cfg.FromEmail, cfg.OwnerEmail), noCleanup, nil
	case config.NOTIFIER_NATS:
		conn, err := notify.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			err := conn.Drain()
			if err != nil {
				logger.Error("Failed to drain nats connection", slog.String("error", err.Error()))
			}
		}
		return notify.NewNATSNotifier(conn, cfg.NATSSubject), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown notifier %q", cfg.Notifier)
	}
}
