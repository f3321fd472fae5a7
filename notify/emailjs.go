package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultEmailJSURL = "https://api.emailjs.com/api/v1.0/email/send"

var _ registration.Notifier = &EmailJSNotifier{}

type EmailJSConfig struct {
	ServiceID  string
	TemplateID string
	UserID     string
	// AccessToken is the account private key. Only needed when the account
	// requires it for API calls.
	AccessToken string
	URL         string
}

// EmailJSNotifier sends the registration template through the EmailJS REST API.
type EmailJSNotifier struct {
	cfg        EmailJSConfig
	httpClient *http.Client
}

func NewEmailJSNotifier(cfg EmailJSConfig, httpClient *http.Client) (*EmailJSNotifier, error) {
	var missing []string
	if cfg.ServiceID == "" {
		missing = append(missing, "service id")
	}
	if cfg.TemplateID == "" {
		missing = append(missing, "template id")
	}
	if cfg.UserID == "" {
		missing = append(missing, "user id")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("emailjs config is missing %s", strings.Join(missing, ", "))
	}

	if cfg.URL == "" {
		cfg.URL = DefaultEmailJSURL
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &EmailJSNotifier{
		cfg:        cfg,
		httpClient: httpClient,
	}, nil
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func (n *EmailJSNotifier) Notify(ctx context.Context, notification registration.Notification) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:   n.cfg.ServiceID,
		TemplateID:  n.cfg.TemplateID,
		UserID:      n.cfg.UserID,
		AccessToken: n.cfg.AccessToken,
		TemplateParams: map[string]string{
			"name":       notification.Name,
			"email":      notification.Email,
			"membership": string(notification.Membership),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to encode emailjs request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach emailjs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("emailjs responded with status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return nil
}
