package main

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/bright-bogota/storefront/internal/contact"
	mw "github.com/bright-bogota/storefront/internal/middleware"
	"github.com/bright-bogota/storefront/internal/observability"
)

// maxContactMemory bounds the multipart form kept in memory; the form has no file parts.
const maxContactMemory = 64 << 10

// ContactView is the view model of the contact form fragment.
type ContactView struct {
	Lang     string
	CSRF     string
	Values   contact.Form
	Errors   map[string]string
	ThankYou bool
	Failure  string
	Details  string
	Disabled bool
}

func emptyContactState() contact.State {
	return contact.State{Errors: contact.FieldErrors{}}
}

// contactView translates the first error code of each field and the submission failure.
func (a *app) contactView(r *http.Request, state contact.State) ContactView {
	lang := mw.Lang(r)
	view := ContactView{
		Lang:     lang,
		CSRF:     mw.CSRFToken(r),
		Values:   state.Values,
		Errors:   make(map[string]string, len(state.Errors)),
		ThankYou: state.ThankYou,
		Disabled: state.Disabled(),
	}
	for _, field := range contact.Fields {
		if code := state.Errors.First(field); code != "" {
			view.Errors[field] = a.bundle.T(lang, "validation."+code)
		}
	}
	if f := state.Error; f != nil {
		view.Failure = a.bundle.T(lang, "contact.failed")
		switch {
		case f.Validation != nil:
			view.Details = strings.TrimSpace(string(f.Validation.Body))
		default:
			view.Details = f.Message
		}
	}
	return view
}

// contactPage renders the standalone contact page.
func (a *app) contactPage(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	vm := a.page(r, a.bundle.T(lang, "contact.title"), a.bundle.T(lang, "contact.intro"), "")
	vm.Contact = a.contactView(r, emptyContactState())
	a.renderPage(w, r, http.StatusOK, "contact", vm)
}

// contactSubmit validates and forwards the form. htmx requests get the form
// fragment back; plain posts get the full contact page.
func (a *app) contactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxContactMemory); err != nil && err != http.ErrNotMultipart {
		a.badRequest(w, r, err)
		return
	}
	form := contact.Form{
		Name:    r.FormValue(contact.FieldName),
		Email:   r.FormValue(contact.FieldEmail),
		Phone:   r.FormValue(contact.FieldPhone),
		City:    r.FormValue(contact.FieldCity),
		Message: r.FormValue(contact.FieldMessage),
	}

	lang := mw.Lang(r)
	state := contact.Process(r.Context(), a.contact, form, contact.Options{Locale: lang})
	logger := observability.FromContext(r.Context())
	switch {
	case state.ThankYou:
		logger.Info("contact submitted",
			zap.String("submission_id", state.Receipt.ID),
			zap.String("status", state.Receipt.Status),
		)
	case state.Error != nil:
		logger.Warn("contact submission failed", zap.String("message", state.Error.Message), zap.Bool("validation", state.Error.Validation != nil))
	}

	view := a.contactView(r, state)
	if mw.IsHTMX(r.Context()) {
		a.renderTemplate(w, r, "frag_contact_form", view)
		return
	}
	vm := a.page(r, a.bundle.T(lang, "contact.title"), a.bundle.T(lang, "contact.intro"), "")
	vm.Contact = view
	status := http.StatusOK
	if len(state.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	a.renderPage(w, r, status, "contact", vm)
}
