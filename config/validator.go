package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags plus the cross-field rules, returning every
// violation in one error.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var messages []string
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validation error: %w", err)
		}
		for _, e := range fieldErrs {
			messages = append(messages, formatValidationError(e))
		}
	}

	if cfg.Etcd.TLS != nil && cfg.Etcd.TLS.Enabled && !cfg.Etcd.Enabled() {
		messages = append(messages, "etcd.tls requires etcd.endpoints")
	}
	for _, v := range []string{cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password} {
		if envRef.MatchString(v) {
			messages = append(messages, fmt.Sprintf("unresolved environment reference %s", envRef.FindString(v)))
		}
	}

	if len(messages) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - "))
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got: %v)", field, e.Param(), e.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", field, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", field, e.Param(), e.Value())
	case "url":
		return fmt.Sprintf("%s must be a valid URL (got: %v)", field, e.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port (got: %v)", field, e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", field, e.Tag(), e.Value())
	}
}

// formatFieldPath turns "Config.Import.BatchSize" into "import.batch_size".
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return namespace
	}
	out := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		out = append(out, camelToSnake(p))
	}
	return strings.Join(out, ".")
}

func camelToSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if upper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower && runes[i-1] >= 'A' && runes[i-1] <= 'Z' {
				b.WriteRune('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
