package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Environment int

const (
	LOCAL Environment = iota
	PROD
)

func (e Environment) String() string {
	switch e {
	case LOCAL:
		return "LOCAL"
	case PROD:
		return "PROD"
	default:
		return fmt.Sprintf("Environment(%d)", int(e))
	}
}

type NotifierKind string

const (
	NOTIFIER_EMAILJS NotifierKind = "emailjs"
	NOTIFIER_EMAIL   NotifierKind = "email"
	NOTIFIER_NATS    NotifierKind = "nats"
)

type Config struct {
	Env  Environment
	Host string
	Port string

	BackendURL string

	StripeSecretKey      string
	StripePublishableKey string

	Notifier NotifierKind

	EmailJSServiceID   string
	EmailJSTemplateID  string
	EmailJSUserID      string
	EmailJSAccessToken string

	OwnerEmail string
	FromEmail  string

	NATSURL     string
	NATSSubject string

	AllowedOrigin string

	// OTLPEndpoint turns on trace export when set. The exporter reads the
	// rest of the OTEL_EXPORTER_OTLP_* variables itself.
	OTLPEndpoint string
}

// SecretResolver looks up values written as "ssm:<parameter name>".
type SecretResolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

const secretPrefix = "ssm:"

var secretKeys = []string{
	"STRIPE_SECRET_KEY",
	"EMAILJS_ACCESS_TOKEN",
	"EMAILJS_USER_ID",
}

// Load reads the configuration from the environment, after merging in a .env
// file when one exists. resolver may be nil when no value uses the ssm: prefix.
func Load(ctx context.Context, resolver SecretResolver) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env file: %w", err)
	}

	return FromLookup(ctx, os.LookupEnv, resolver)
}

// FromLookup builds the configuration from an arbitrary lookup function.
func FromLookup(ctx context.Context, lookup func(string) (string, bool), resolver SecretResolver) (Config, error) {
	get := func(key string, defaultVal string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return defaultVal
	}

	secrets := map[string]string{}
	for _, key := range secretKeys {
		v := get(key, "")
		if !strings.HasPrefix(v, secretPrefix) {
			secrets[key] = v
			continue
		}

		if resolver == nil {
			return Config{}, fmt.Errorf("%s references %q but no secret resolver is configured", key, v)
		}

		resolved, err := resolver.Resolve(ctx, strings.TrimPrefix(v, secretPrefix))
		if err != nil {
			return Config{}, fmt.Errorf("failed to resolve %s: %w", key, err)
		}
		secrets[key] = resolved
	}

	env, err := parseEnvironment(get("ENV", "LOCAL"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:                  env,
		Host:                 get("HOST", "0.0.0.0"),
		Port:                 get("PORT", "8080"),
		BackendURL:           get("BACKEND_URL", "http://localhost:3000"),
		StripeSecretKey:      secrets["STRIPE_SECRET_KEY"],
		StripePublishableKey: get("STRIPE_PUBLISHABLE_KEY", ""),
		Notifier:             NotifierKind(strings.ToLower(get("NOTIFIER", string(NOTIFIER_EMAILJS)))),
		EmailJSServiceID:     get("EMAILJS_SERVICE_ID", ""),
		EmailJSTemplateID:    get("EMAILJS_TEMPLATE_ID", ""),
		EmailJSUserID:        secrets["EMAILJS_USER_ID"],
		EmailJSAccessToken:   secrets["EMAILJS_ACCESS_TOKEN"],
		OwnerEmail:           get("OWNER_EMAIL", ""),
		FromEmail:            get("FROM_EMAIL", ""),
		NATSURL:              get("NATS_URL", "nats://127.0.0.1:4222"),
		NATSSubject:          get("NATS_SUBJECT", "fans.registered"),
		AllowedOrigin:        get("ALLOWED_ORIGIN", ""),
		OTLPEndpoint:         get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	err = cfg.validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func parseEnvironment(v string) (Environment, error) {
	switch strings.ToUpper(v) {
	case "LOCAL":
		return LOCAL, nil
	case "PROD":
		return PROD, nil
	default:
		return LOCAL, fmt.Errorf("unknown ENV %q", v)
	}
}

func (c Config) validate() error {
	var errs []error

	switch c.Notifier {
	case NOTIFIER_EMAILJS:
		if c.EmailJSServiceID == "" || c.EmailJSTemplateID == "" || c.EmailJSUserID == "" {
			errs = append(errs, errors.New("NOTIFIER=emailjs needs EMAILJS_SERVICE_ID, EMAILJS_TEMPLATE_ID and EMAILJS_USER_ID"))
		}
	case NOTIFIER_EMAIL:
		if c.OwnerEmail == "" || c.FromEmail == "" {
			errs = append(errs, errors.New("NOTIFIER=email needs OWNER_EMAIL and FROM_EMAIL"))
		}
	case NOTIFIER_NATS:
		if c.NATSURL == "" {
			errs = append(errs, errors.New("NOTIFIER=nats needs NATS_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER %q", c.Notifier))
	}

	if c.Env == PROD {
		if c.StripeSecretKey == "" {
			errs = append(errs, errors.New("STRIPE_SECRET_KEY must be set in PROD"))
		}
		if c.AllowedOrigin == "" {
			errs = append(errs, errors.New("ALLOWED_ORIGIN must be set in PROD"))
		}
	}

	return errors.Join(errs...)
}
