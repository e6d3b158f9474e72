package contact

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Form is the contact form as entered by the visitor.
type Form struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
	Message string `json:"message"`
}

// Rule codes reported per field.
const (
	RuleRequired  = "required"
	RulePattern   = "pattern"
	RuleEmail     = "email"
	RuleMinLength = "minlength"
	RuleMaxLength = "maxlength"
)

// Field names, also used as form keys.
const (
	FieldName    = "name"
	FieldEmail   = "email"
	FieldPhone   = "phone"
	FieldCity    = "city"
	FieldMessage = "message"
)

// Fields lists the form fields in display order.
var Fields = []string{FieldName, FieldEmail, FieldPhone, FieldCity, FieldMessage}

// FieldErrors maps a field name to the rule codes it fails, in rule order.
type FieldErrors map[string][]string

// Has reports whether field failed any rule.
func (e FieldErrors) Has(field string) bool { return len(e[field]) > 0 }

// First returns the first failing rule for field, or "".
func (e FieldErrors) First(field string) string {
	if codes := e[field]; len(codes) > 0 {
		return codes[0]
	}
	return ""
}

// Names and cities take any letters, accents included. Messages have no pattern.
var (
	lettersAndSpaces = regexp.MustCompile(`^[\p{L} ]+$`)
	phonePattern     = regexp.MustCompile(`^[1-9]\d{1,10}$`)
	emailPattern     = regexp.MustCompile(`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`)
)

type rule struct {
	code  string
	check func(string) bool
}

func pattern(code string, re *regexp.Regexp) rule {
	return rule{code: code, check: re.MatchString}
}

func minLength(n int) rule {
	return rule{code: RuleMinLength, check: func(v string) bool { return utf8.RuneCountInString(v) >= n }}
}

func maxLength(n int) rule {
	return rule{code: RuleMaxLength, check: func(v string) bool { return utf8.RuneCountInString(v) <= n }}
}

// rules run only on non-empty values; emptiness is reported once as required.
var rules = map[string][]rule{
	FieldName:    {pattern(RulePattern, lettersAndSpaces), minLength(10), maxLength(500)},
	FieldEmail:   {pattern(RuleEmail, emailPattern)},
	FieldPhone:   {pattern(RulePattern, phonePattern), minLength(7), maxLength(10)},
	FieldCity:    {pattern(RulePattern, lettersAndSpaces), minLength(2), maxLength(50)},
	FieldMessage: {minLength(2), maxLength(500)},
}

// Normalize trims surrounding whitespace from every field.
func (f Form) Normalize() Form {
	return Form{
		Name:    strings.TrimSpace(f.Name),
		Email:   strings.TrimSpace(f.Email),
		Phone:   strings.TrimSpace(f.Phone),
		City:    strings.TrimSpace(f.City),
		Message: strings.TrimSpace(f.Message),
	}
}

// Value returns the value of a field by name.
func (f Form) Value(field string) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldPhone:
		return f.Phone
	case FieldCity:
		return f.City
	case FieldMessage:
		return f.Message
	}
	return ""
}

// Validate checks every field of the normalized form. An empty result means the form is valid.
func Validate(f Form) FieldErrors {
	f = f.Normalize()
	errs := FieldErrors{}
	for _, field := range Fields {
		value := f.Value(field)
		if value == "" {
			errs[field] = []string{RuleRequired}
			continue
		}
		for _, r := range rules[field] {
			if !r.check(value) {
				errs[field] = append(errs[field], r.code)
			}
		}
	}
	return errs
}
