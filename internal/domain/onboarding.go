package domain

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

var domainPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*(?:\.[a-z0-9]+(?:-[a-z0-9]+)*)*$`)

// NewTenantInput is the onboarding form for a tenant.
type NewTenantInput struct {
	Name    string  `json:"name"`
	Domain  string  `json:"domain"`
	Plan    string  `json:"plan"`
	Seats   int     `json:"seats"`
	Contact Contact `json:"contact"`
}

// Normalize trims the input and returns it with the contact phone in E.164
// form. defaultRegion is used for numbers written without a country code.
func (in NewTenantInput) Normalize(defaultRegion string) (NewTenantInput, error) {
	out := in
	out.Name = strings.TrimSpace(in.Name)
	out.Domain = strings.ToLower(strings.TrimSpace(in.Domain))
	out.Plan = strings.TrimSpace(in.Plan)
	out.Contact.Name = strings.TrimSpace(in.Contact.Name)
	out.Contact.Email = strings.TrimSpace(in.Contact.Email)

	if err := out.validate(); err != nil {
		return NewTenantInput{}, err
	}

	phone := strings.TrimSpace(in.Contact.Phone)
	if phone == "" {
		return out, nil
	}
	num, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return NewTenantInput{}, NewValidationError("contact.phone", "must be a valid phone number")
	}
	out.Contact.Phone = phonenumbers.Format(num, phonenumbers.E164)
	return out, nil
}

func (in NewTenantInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Domain, validation.Required, validation.Length(1, 253), validation.Match(domainPattern)),
		validation.Field(&in.Plan, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.Seats, validation.Required, validation.Min(1)),
	)
	if err != nil {
		return newValidationError(err)
	}

	c := in.Contact
	err = validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&c.Email, validation.Required, is.Email),
	)
	if err != nil {
		verr := newValidationError(err)
		if ve, ok := verr.(*ValidationError); ok {
			prefixed := make(map[string]string, len(ve.Fields))
			for k, v := range ve.Fields {
				prefixed["contact."+k] = v
			}
			return &ValidationError{Fields: prefixed}
		}
		return verr
	}
	return nil
}

// NormalizeEmail is the canonical form of an account email: trimmed and
// lower-cased.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateEmail checks that s is a well-formed email address.
func ValidateEmail(s string) error {
	if err := validation.Validate(s, validation.Required, is.Email); err != nil {
		return NewValidationError("email", err.Error())
	}
	return nil
}
