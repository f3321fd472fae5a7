package api

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/International-Combat-Archery-Alliance/fan-registration/registration"
)

//go:embed templates/*.html.tmpl
var pageTemplates embed.FS

var (
	formTemplate         = template.Must(template.ParseFS(pageTemplates, "templates/layout.html.tmpl", "templates/form.html.tmpl"))
	confirmationTemplate = template.Must(template.ParseFS(pageTemplates, "templates/layout.html.tmpl", "templates/confirmation.html.tmpl"))
)

var fieldLabels = map[registration.Field]string{
	registration.FIELD_NAME:       "Name",
	registration.FIELD_EMAIL:      "Email",
	registration.FIELD_ADDRESS:    "Address",
	registration.FIELD_PHONE:      "Phone",
	registration.FIELD_MEMBERSHIP: "Membership Type",
}

// Browsers only hand over the token Stripe.js created. Raw card details
// never reach this server over HTTP.
var tokenOnlyCardFields = []registration.Field{registration.FIELD_CARD_TOKEN}

var fieldInputTypes = map[registration.Field]string{
	registration.FIELD_EMAIL: "email",
	registration.FIELD_PHONE: "tel",
}

type formInput struct {
	Name     string
	Label    string
	Type     string
	Value    string
	Required bool
	Error    string
}

type membershipOption struct {
	Value    string
	Label    string
	Selected bool
}

type formPage struct {
	Inputs               []formInput
	Memberships          []membershipOption
	CardTokenField       string
	StripePublishableKey string
	HasErrors            bool
}

type confirmationPage struct {
	Message string
}

func newFormPage(draft registration.Draft, violations registration.FieldViolations, stripePublishableKey string) formPage {
	page := formPage{
		CardTokenField:       string(registration.FIELD_CARD_TOKEN),
		StripePublishableKey: stripePublishableKey,
		HasErrors:            len(violations) > 0,
	}

	for _, field := range registration.Fields() {
		if field == registration.FIELD_MEMBERSHIP {
			continue
		}

		inputType, ok := fieldInputTypes[field]
		if !ok {
			inputType = "text"
		}

		page.Inputs = append(page.Inputs, formInput{
			Name:     string(field),
			Label:    fieldLabels[field],
			Type:     inputType,
			Value:    draft.Value(field),
			Required: true,
			Error:    violationFor(violations, field),
		})
	}

	for _, m := range registration.Memberships() {
		page.Memberships = append(page.Memberships, membershipOption{
			Value:    string(m),
			Label:    m.Label(),
			Selected: m == draft.Membership,
		})
	}

	return page
}

func violationFor(violations registration.FieldViolations, field registration.Field) string {
	for _, v := range violations {
		if v.Field == field {
			return v.Message
		}
	}
	return ""
}

func (a *API) getForm(w http.ResponseWriter, r *http.Request) {
	a.renderPage(w, r, http.StatusOK, formTemplate, newFormPage(registration.NewDraft(), nil, a.stripePublishableKey))
}

func (a *API) postForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := a.getLoggerOrBaseLogger(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := r.ParseForm()
	if err != nil {
		logger.Warn("Failed to parse registration form", slog.String("error", err.Error()))
		a.renderPage(w, r, http.StatusBadRequest, formTemplate, newFormPage(registration.NewDraft(), nil, a.stripePublishableKey))
		return
	}

	draft, card, err := formValuesToDraft(func(field registration.Field) string {
		return r.PostForm.Get(string(field))
	}, tokenOnlyCardFields)
	if err != nil {
		logger.Warn("Invalid registration form", slog.String("error", err.Error()))
		a.renderPage(w, r, http.StatusBadRequest, formTemplate, newFormPage(registration.NewDraft(), nil, a.stripePublishableKey))
		return
	}

	err = registration.ValidateDraft(draft)
	if err != nil {
		logger.Warn("Registration form is missing required fields", slog.String("error", err.Error()))

		var violations registration.FieldViolations
		errors.As(err, &violations)
		a.renderPage(w, r, http.StatusBadRequest, formTemplate, newFormPage(draft, violations, a.stripePublishableKey))
		return
	}

	var confirmation *registration.Confirmation
	_, err = a.submitter.Submit(ctx, draft, card, registration.ConfirmerFunc(func(_ context.Context, c registration.Confirmation) {
		confirmation = &c
	}))
	if err != nil || confirmation == nil {
		// The form only tells the fan about success. Failures are in the logs
		// and the fan gets a blank form to try again.
		if err != nil {
			logger.Error("Registration form submission failed", slog.String("error", err.Error()))
		}
		a.renderPage(w, r, http.StatusOK, formTemplate, newFormPage(registration.NewDraft(), nil, a.stripePublishableKey))
		return
	}

	a.renderPage(w, r, http.StatusOK, confirmationTemplate, confirmationPage{Message: confirmation.Message})
}

func (a *API) renderPage(w http.ResponseWriter, r *http.Request, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "layout", data)
	if err != nil {
		a.getLoggerOrBaseLogger(r.Context()).Error("Failed to render page", slog.String("error", err.Error()))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
