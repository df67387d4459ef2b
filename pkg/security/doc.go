// Package security provides validation, sanitization, and limits for the cronloop package.
//
// This package includes:
//   - Input validation for task names and schedule expressions
//   - Error message sanitization before outcomes are recorded
//   - Clamping functions to enforce safe limits on retries and concurrency
//   - Security-related constants defining maximum sizes and counts
//
// Most users should import the root package github.com/jdziat/cronloop
// which re-exports these functions.
package security
