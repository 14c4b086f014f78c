package application

import (
	"maps"
	"slices"
	"strings"
)

// ValidationError reports caller input that could not be interpreted, keyed
// by the request field that carried it. Transports render FieldErrors as-is.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if !v.HasErrors() {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.FieldErrors))
	for _, field := range slices.Sorted(maps.Keys(v.FieldErrors)) {
		parts = append(parts, field+": "+v.FieldErrors[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// err returns v as an error, or nil when nothing was recorded.
func (v *ValidationError) err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}
