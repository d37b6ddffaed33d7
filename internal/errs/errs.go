// Package errs defines idcenter's structured error taxonomy and the
// exponential-backoff retry classifier the Batch Executor uses.
package errs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind is one of the seven error taxonomy kinds. It is not a Go error type
// itself; every kind shares the single *Error type, so callers errors.As
// against *Error and inspect its Kind.
type Kind string

const (
	KindValidation    Kind = "validation_error"
	KindParsing       Kind = "parsing_error"
	KindExecution     Kind = "execution_error"
	KindPermission    Kind = "permission_error"
	KindNetwork       Kind = "network_error"
	KindConfiguration Kind = "configuration_error"
	KindStorage       Kind = "storage_error"
)

// Error is the common shape every taxonomy error satisfies: a stable
// machine-readable code, a human message, and a recovery suggestion looked
// up from the static table keyed by (kind, code).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// RecoverySuggestion returns the static recovery hint for this error's
// (kind, code), or a generic fallback if none is registered.
func (e *Error) RecoverySuggestion() string {
	if m, ok := recoverySuggestions[e.Kind]; ok {
		if s, ok := m[e.Code]; ok {
			return s
		}
	}
	return "Review the error details and retry the operation."
}

// New constructs a taxonomy error of the given kind and code, optionally
// wrapping an underlying cause.
func New(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Wrapped: cause}
}

// recoverySuggestions mirrors the static recovery-suggestion table the
// template-error handler keeps for each (kind, code) pair; built once at
// package init rather than computed per error.
var recoverySuggestions = map[Kind]map[string]string{
	KindValidation: {
		"missing_required_field": "Add the missing field to the input.",
		"invalid_entity_format":  "Check entity format; it must follow 'user:name' or 'group:name'.",
		"invalid_permission_set": "Verify the permission set exists and check spelling.",
		"invalid_account_id":     "Verify the account ID is a 12-digit number.",
		"invalid_tag_format":     "Ensure tags are non-empty key=value pairs.",
		"unresolvable_principal": "Verify names match exactly (case-sensitive).",
		"empty_assignments":      "Add at least one assignment.",
	},
	KindParsing: {
		"unsupported_format": "Convert the file to a supported dialect (CSV or JSON).",
		"empty_file":         "Add content to the input file.",
		"malformed_csv":      "Check CSV syntax; ensure the header row matches required columns.",
		"malformed_json":     "Check JSON syntax using a validator.",
	},
	KindExecution: {
		"rate_limited":         "Wait and retry; the directory service is rate-limiting requests.",
		"service_unavailable":  "Wait for the directory service to recover and retry.",
		"invalid_parameters":   "Review and correct the parameters sent to the directory service.",
		"assignment_failed":    "Check directory-service credentials and verify the account exists.",
		"rollback_failed":      "Manual intervention may be required to reconcile partially-applied changes.",
	},
	KindPermission: {
		"insufficient_permissions": "Request additional permissions or use different credentials.",
		"cross_account_access":     "Verify cross-account role configuration.",
	},
	KindNetwork: {
		"connection_timeout": "Check network connectivity and firewall settings.",
		"request_timeout":    "Increase timeout settings or check network stability.",
		"dns_failure":        "Check DNS configuration and network connectivity.",
		"tls_failure":        "Verify TLS configuration and certificate validity.",
	},
	KindConfiguration: {
		"missing_profile_binding":  "Set the missing profile binding in configuration.",
		"missing_instance_binding": "Bind the profile to an identity-center instance.",
		"corrupt_configuration":    "Restore configuration from backup or reset to defaults.",
	},
	KindStorage: {
		"write_failed":  "Check disk space and storage-backend permissions.",
		"delete_failed": "Check storage-backend permissions; the backup may already be gone.",
		"list_failed":   "Check storage-backend connectivity.",
	},
}

// IsTransient reports whether err represents a condition the Batch
// Executor retries rather than treats as a hard failure: rate-limiting,
// timeouts, or service unavailability.
func IsTransient(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindExecution:
		switch e.Code {
		case "rate_limited", "service_unavailable":
			return true
		}
	case KindNetwork:
		return true
	}
	return false
}

// NextDelay returns the exponential backoff delay for the given zero-based
// retry attempt: base * 2^attempt, capped at cap.
func NextDelay(attempt int, base, cap time.Duration) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > cap {
		return cap
	}
	return d
}

// DefaultBase and DefaultCap are the backoff parameters named in §4.D: a
// 1-second base doubling up to a 60-second cap.
const (
	DefaultBase = time.Second
	DefaultCap  = 60 * time.Second
)
