// internal/funnel/validate/validate.go
package validate

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"tulipai-funnel/internal/models"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MsgNameRequired        = "Your name is required."
	MsgEmailRequired       = "Your email is required."
	MsgEmailInvalid        = "Please enter a valid email address."
	MsgCompanyNameRequired = "Company name is required."
	MsgWebsiteRequired     = "Company website is required."
	MsgWebsiteInvalid      = "Please enter a valid URL (e.g., https://example.com)."
	MsgRoleRequired        = "Your role is required."
)

var (
	emailPattern  = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)
)

// Validate returns the fields of form that fail the rules of step.
// Only BusinessInfo carries rules; every other step yields an empty map.
func Validate(step models.Step, form models.FormData) models.FormErrors {
	out := models.FormErrors{}
	if step != models.StepBusinessInfo {
		return out
	}

	err := validation.ValidateStruct(&form,
		validation.Field(&form.Name, notBlank(MsgNameRequired)),
		validation.Field(&form.Email,
			validation.Required.Error(MsgEmailRequired),
			validation.Match(emailPattern).Error(MsgEmailInvalid),
		),
		validation.Field(&form.CompanyName, notBlank(MsgCompanyNameRequired)),
		validation.Field(&form.Website,
			validation.Required.Error(MsgWebsiteRequired),
			validation.By(websiteRule),
		),
		validation.Field(&form.Role, notBlank(MsgRoleRequired)),
	)

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		for field, fieldErr := range fieldErrs {
			out[field] = fieldErr.Error()
		}
	}
	return out
}

// NormalizeURL prefixes https:// when raw carries no scheme.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || schemePattern.MatchString(raw) {
		return raw
	}
	return "https://" + raw
}

// ValidURL reports whether raw, after NormalizeURL, is an absolute URL with a host.
func ValidURL(raw string) bool {
	u, err := url.ParseRequestURI(NormalizeURL(raw))
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func notBlank(message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	})
}

func websiteRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !ValidURL(s) {
		return errors.New(MsgWebsiteInvalid)
	}
	return nil
}
