// Package errors normalizes error values into stable names for metric tags.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/stagehand-app/stagehand/internal/errors"
)

// Classify returns a normalized error label suitable for tagging metrics and
// logs. Errors carrying an application code anywhere in the chain use that
// code directly, so the taxonomy ("unavailable", "rate_limited", "external")
// stays stable across refactors. Everything else unwraps to the innermost
// error and falls back to its snake_cased type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) {
		return string(appErr.Code)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
