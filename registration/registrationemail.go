package registration

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"

	"github.com/International-Combat-Archery-Alliance/email"
)

//go:embed templates
var templates embed.FS

var _ Notifier = &EmailNotifier{}

// EmailNotifier tells the owner about a new registration by email.
type EmailNotifier struct {
	sender       email.Sender
	fromAddress  string
	ownerAddress string
}

func NewEmailNotifier(sender email.Sender, fromAddress string, ownerAddress string) *EmailNotifier {
	return &EmailNotifier{
		sender:       sender,
		fromAddress:  fromAddress,
		ownerAddress: ownerAddress,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, notification Notification) error {
	htmlBody, err := makeHtmlBody(notification)
	if err != nil {
		return err
	}

	textOnlyBody, err := makeTextOnlyBody(notification)
	if err != nil {
		return err
	}

	return n.sender.SendEmail(ctx, email.Email{
		FromAddress: n.fromAddress,
		ToAddresses: []string{n.ownerAddress},
		Subject:     fmt.Sprintf("New fan registration - %q (%s)", notification.Name, notification.Membership.Label()),
		HTMLBody:    htmlBody,
		TextBody:    textOnlyBody,
	})
}

func makeHtmlBody(notification Notification) (string, error) {
	tmpl, err := template.New("owner-notification.tmpl").ParseFS(templates, "templates/owner-notification.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Notification": notification,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}

func makeTextOnlyBody(notification Notification) (string, error) {
	tmpl, err := texttemplate.New("owner-notification-textonly.tmpl").ParseFS(templates, "templates/owner-notification-textonly.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to parse email template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Notification": notification,
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute email template: %w", err)
	}

	return buf.String(), nil
}
