package config

import (
	"fmt"
	"strings"

	"bodhi/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value interface{}) {
	*ve = append(*ve, ValidationError{Field: field, Value: value, Message: message})
}

// Validate checks the configuration and returns every problem found.
func (c Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Server.Host) == "" || strings.ContainsAny(c.Server.Host, "/ ") {
		errs.Add("server.host", "must be a bare host name or address", c.Server.Host)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", c.Server.Port)
	}
	if err := validateOneOf(c.Server.Scheme, []string{"http", "https"}); err != "" {
		errs.Add("server.scheme", err, c.Server.Scheme)
	}

	if c.Auth.Issuer == "" && c.Auth.Realm != "" && c.Auth.URL == "" {
		errs.Add("auth.url", "is required when auth.realm is set", c.Auth.URL)
	}
	urls := []struct{ field, value string }{
		{"auth.url", c.Auth.URL},
		{"auth.issuer", c.Auth.Issuer},
		{"hub.endpoint", c.Hub.Endpoint},
	}
	if c.Auth.MetadataCacheTTL < 0 {
		errs.Add("auth.metadataCacheTTL", "must not be negative", c.Auth.MetadataCacheTTL)
	}
	for _, u := range urls {
		if u.value != "" && !strings.HasPrefix(u.value, "http://") && !strings.HasPrefix(u.value, "https://") {
			errs.Add(u.field, "must be an http(s) URL", u.value)
		}
	}

	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		errs.Add("logging.level", "must be one of: debug, info, warn, error", c.Logging.Level)
	}
	if err := validateOneOf(c.Logging.Format, []string{string(logging.FormatText), string(logging.FormatJSON)}); err != "" {
		errs.Add("logging.format", err, c.Logging.Format)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateOneOf(value string, allowed []string) string {
	for _, a := range allowed {
		if value == a {
			return ""
		}
	}
	return fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))
}
