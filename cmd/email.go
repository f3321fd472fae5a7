package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/International-Combat-Archery-Alliance/email"
	"github.com/International-Combat-Archery-Alliance/email/awsses"
	"github.com/International-Combat-Archery-Alliance/fan-registration/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

var _ email.Sender = &EmailLogger{}

// email.Sender that logs out the email contents for local dev
type EmailLogger struct {
	logger *slog.Logger
}

func (el *EmailLogger) SendEmail(ctx context.Context, e email.Email) error {
	el.logger.InfoContext(ctx, "email that would be sent",
		slog.String("from", e.FromAddress),
		slog.Any("to", e.ToAddresses),
		slog.String("subject", e.Subject),
		slog.String("body", e.TextBody),
	)

	return nil
}

func createProdAWSEmailSender() (*awsses.AWSSESSender, error) {
	cfg, err := loadAWSConfig()
	if err != nil {
		return nil, err
	}

	sesClient := sesv2.NewFromConfig(cfg)
	sender := awsses.NewAWSSESSender(sesClient)

	return sender, nil
}

func createEmailSender(logger *slog.Logger, env config.Environment) (email.Sender, error) {
	if env == config.LOCAL {
		return &EmailLogger{logger: logger}, nil
	}

	sender, err := createProdAWSEmailSender()
	if err != nil {
		return nil, fmt.Errorf("failed to create ses sender: %w", err)
	}
	return sender, nil
}
