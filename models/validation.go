package models

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var postalCodePattern = regexp.MustCompile(`^\d{3}-?\d{4}$`)

var shippingMessages = map[string]string{
	"name":          "name must be at least 2 characters",
	"email":         "a valid email address is required",
	"address":       "address must be at least 5 characters",
	"city":          "city is required",
	"postalCode":    "postal code must look like 123-4567",
	"paymentMethod": "payment method must be one of credit, bank, cod",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("postalcode", func(fl validator.FieldLevel) bool {
		return postalCodePattern.MatchString(fl.Field().String())
	})
	return v
}

// Normalized returns a copy with surrounding whitespace trimmed from every
// free-text field.
func (s ShippingInfo) Normalized() ShippingInfo {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Address = strings.TrimSpace(s.Address)
	s.City = strings.TrimSpace(s.City)
	s.PostalCode = strings.TrimSpace(s.PostalCode)
	return s
}

// Validate checks the normalized form and returns a message per invalid
// field keyed by its JSON name. A nil map means the info is valid.
func (s ShippingInfo) Validate() map[string]string {
	n := s.Normalized()
	err := validate.Struct(n)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"shippingInfo": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := shippingMessages[fe.Field()]
		if !ok {
			msg = "invalid value"
		}
		fields[fe.Field()] = msg
	}
	return fields
}
