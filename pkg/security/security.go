// Package security provides validation, sanitization, and limits for the cronloop package.
package security

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/cronloop/pkg/core"
)

// Security limits and configuration
const (
	// MaxTaskNameLength is the maximum length for task names
	MaxTaskNameLength = 255

	// MaxExpressionLength is the maximum length for a schedule expression
	MaxExpressionLength = 255

	// MaxTaskArgsSize is the maximum size in bytes for encoded task arguments (1MB)
	MaxTaskArgsSize = 1 << 20

	// MaxRetries is the hard limit for retry attempts
	MaxRetries = 100

	// MaxConcurrency is the hard limit for worker concurrency
	MaxConcurrency = 1000

	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096
)

// validTaskName matches alphanumeric, hyphens, underscores, and dots
var validTaskName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-\.]*$`)

// ValidateTaskName validates a task name
func ValidateTaskName(name string) error {
	if name == "" {
		return core.ErrInvalidTaskName
	}
	if len(name) > MaxTaskNameLength {
		return core.ErrTaskNameTooLong
	}
	if !validTaskName.MatchString(name) {
		return core.ErrInvalidTaskName
	}
	return nil
}

// ValidateExpression checks the size of a schedule expression. Syntax is
// checked by the parser.
func ValidateExpression(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("%w: empty expression", core.ErrInvalidScheduleExpression)
	}
	if len(expr) > MaxExpressionLength {
		return core.ErrExpressionTooLong
	}
	return nil
}

// ValidateArgsSize rejects encoded task arguments above MaxTaskArgsSize.
func ValidateArgsSize(encoded []byte) error {
	if len(encoded) > MaxTaskArgsSize {
		return core.ErrTaskArgsTooLarge
	}
	return nil
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	if utf8.RuneCountInString(result) > MaxErrorMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxErrorMessageLength-3]) + "..."
	}

	return result
}

// ClampRetries ensures retry count is within limits
func ClampRetries(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxRetries {
		return MaxRetries
	}
	return n
}

// ClampConcurrency ensures concurrency is within limits
func ClampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}
