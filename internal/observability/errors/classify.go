// Package errors normalizes error values into metric-friendly class names.
package errors

import (
	apperrors "github.com/target/dms-export/internal/errors"
)

// Classify returns a normalized error class suitable for tagging metrics.
// AppError codes map directly; anything else is "unknown".
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return "unknown"
}
