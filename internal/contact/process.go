package contact

import (
	"context"
	"errors"
	"time"
)

// Failure is the submission error surfaced to the form. Exactly one of Validation or Message is set.
type Failure struct {
	Validation *ValidationResponse
	Message    string
}

// State is what the contact form renders after an attempt.
type State struct {
	Values   Form
	Errors   FieldErrors
	ThankYou bool
	Error    *Failure
	Receipt  Receipt
}

// Disabled reports whether the submit control must be disabled.
func (s State) Disabled() bool { return len(s.Errors) > 0 }

// Options tune Process.
type Options struct {
	Locale string
	Now    func() time.Time
}

// Process validates form and, when valid, hands it to sub. On success the values are reset and
// ThankYou is set; on failure the entered values are kept.
func Process(ctx context.Context, sub Submitter, form Form, opts Options) State {
	form = form.Normalize()
	state := State{Values: form, Errors: Validate(form)}
	if len(state.Errors) > 0 {
		return state
	}
	if sub == nil {
		state.Error = &Failure{Message: ErrNotConfigured.Error()}
		return state
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	receipt, err := sub.Submit(ctx, NewSubmission(form, opts.Locale, now()))
	if err != nil {
		state.Error = failureFrom(err)
		return state
	}
	return State{Errors: FieldErrors{}, ThankYou: true, Receipt: receipt}
}

func failureFrom(err error) *Failure {
	var vr *ValidationResponse
	if errors.As(err, &vr) {
		return &Failure{Validation: vr}
	}
	var se *SubmitError
	if errors.As(err, &se) {
		return &Failure{Message: se.Error()}
	}
	return &Failure{Message: err.Error()}
}
