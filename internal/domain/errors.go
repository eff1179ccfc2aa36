package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidPair       = errors.New("invalid pair")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrInvalidQuote      = errors.New("invalid quote")
	ErrConfiguration     = errors.New("configuration error")
)

// Failure kinds reported in fetch diagnostics.
const (
	FailureSourceUnavailable = "source_unavailable"
	FailureInvalidQuote      = "invalid_quote"
	FailureUnknown           = "unknown"
)

// FailureKind classifies a fetch error for diagnostics.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuote):
		return FailureInvalidQuote
	case errors.Is(err, ErrSourceUnavailable):
		return FailureSourceUnavailable
	default:
		return FailureUnknown
	}
}

// ConfigurationError rejects a scanner setup before any cycle runs.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Field + ": " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }
