package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"github.com/nats-io/nats.go"
)

const DefaultNATSSubject = "fans.registered"

var _ registration.Notifier = &NATSNotifier{}

type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSNotifier publishes registrations for whatever service notifies the owner.
type NATSNotifier struct {
	conn    publisher
	subject string
}

func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	return newNATSNotifier(conn, subject)
}

func newNATSNotifier(conn publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultNATSSubject
	}

	return &NATSNotifier{
		conn:    conn,
		subject: subject,
	}
}

type natsMessage struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Membership string `json:"membership"`
}

func (n *NATSNotifier) Notify(ctx context.Context, notification registration.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(natsMessage{
		Name:       notification.Name,
		Email:      notification.Email,
		Membership: string(notification.Membership),
	})
	if err != nil {
		return fmt.Errorf("failed to encode nats message: %w", err)
	}

	err = n.conn.Publish(n.subject, data)
	if err != nil {
		return fmt.Errorf("failed to publish to %q: %w", n.subject, err)
	}

	return nil
}

func ConnectNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("fan-registration"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %q: %w", url, err)
	}

	return conn, nil
}
