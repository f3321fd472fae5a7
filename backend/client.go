package backend

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	SubmitFormPath = "/api/submit-form"

	maxResponseBytes = 1 << 20
)

//go:embed contract.yaml
var contract []byte

var _ registration.Backend = &Client{}

// Client talks to the registration backend. Outgoing requests are checked
// against the backend's published contract before they are sent.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	router     routers.Router
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	router, err := loadContractRouter()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    u,
		httpClient: httpClient,
		router:     router,
	}, nil
}

func loadContractRouter() (routers.Router, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(contract)
	if err != nil {
		return nil, fmt.Errorf("failed to load backend contract: %w", err)
	}

	err = doc.Validate(loader.Context)
	if err != nil {
		return nil, fmt.Errorf("backend contract is invalid: %w", err)
	}

	doc.Servers = nil

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend contract router: %w", err)
	}

	return router, nil
}

func (c *Client) SubmitForm(ctx context.Context, request registration.SubmitFormRequest) (registration.SubmitFormResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return registration.SubmitFormResponse{}, fmt.Errorf("failed to encode submit form request: %w", err)
	}

	err = c.validateRequest(ctx, body)
	if err != nil {
		return registration.SubmitFormResponse{}, err
	}

	endpoint := c.baseURL.JoinPath(SubmitFormPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return registration.SubmitFormResponse{}, fmt.Errorf("failed to build submit form request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return registration.SubmitFormResponse{}, fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return registration.SubmitFormResponse{}, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return registration.SubmitFormResponse{}, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return decodeResponse(respBody)
}

// validateRequest matches body against the contract using the contract's own
// path, so a base URL with a path prefix still validates.
func (c *Client) validateRequest(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, SubmitFormPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	route, pathParams, err := c.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("submit form route missing from backend contract: %w", err)
	}

	err = openapi3filter.ValidateRequest(ctx, &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
	})
	if err != nil {
		return fmt.Errorf("request does not match backend contract: %w", err)
	}

	return nil
}

type wireResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func decodeResponse(body []byte) (registration.SubmitFormResponse, error) {
	var wire wireResponse
	err := json.Unmarshal(body, &wire)
	if err != nil {
		return registration.SubmitFormResponse{}, fmt.Errorf("malformed backend response: %w", err)
	}

	// a body without the flag counts as a rejection
	return registration.SubmitFormResponse{
		Success: wire.Success,
		Message: wire.Message,
	}, nil
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded with status %d: %s", e.StatusCode, e.Body)
}
