package api

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/fan-registration/config"
	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openapiSpec []byte

type Submitter interface {
	Submit(ctx context.Context, draft registration.Draft, card registration.CardEntry, confirmer registration.Confirmer) (registration.Result, error)
}

var _ Submitter = (*registration.Pipeline)(nil)

type API struct {
	submitter            Submitter
	logger               *slog.Logger
	env                  config.Environment
	stripePublishableKey string
	allowedOrigin        string
}

func NewAPI(submitter Submitter, logger *slog.Logger, env config.Environment, stripePublishableKey string, allowedOrigin string) *API {
	return &API{
		submitter:            submitter,
		logger:               logger,
		env:                  env,
		stripePublishableKey: stripePublishableKey,
		allowedOrigin:        allowedOrigin,
	}
}

func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	swagger, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}

	err = swagger.Validate(loader.Context)
	if err != nil {
		return nil, fmt.Errorf("openapi spec is invalid: %w", err)
	}

	return swagger, nil
}

// Handler wires the form pages, the JSON API and the middlewares.
func (a *API) Handler() (http.Handler, error) {
	swagger, err := GetSwagger()
	if err != nil {
		return nil, err
	}

	swagger.Servers = nil

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/registrations", a.postRegistration)

	r := http.NewServeMux()
	r.HandleFunc("GET /{$}", a.getForm)
	r.HandleFunc("POST /{$}", a.postForm)
	r.HandleFunc("GET /healthz", a.getHealth)
	r.Handle("/api/", a.openapiValidateMiddleware(swagger)(apiMux))

	return useMiddlewares(r, a.corsMiddleware(), a.loggingMiddleware()), nil
}

func (a *API) getHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
