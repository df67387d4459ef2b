// Package handler provides internal reflection-based handler execution.
//
// This package is internal and should not be imported directly.
// It provides:
//   - Handler: signature validation for registered task functions
//   - Reflection-based argument unmarshaling and invocation
package handler
