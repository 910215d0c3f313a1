package domain

import (
	"fmt"
	"time"
)

// FormatError indicates a malformed variant file. Fatal for the whole
// request: no partial output is produced.
type FormatError struct {
	Reason string `json:"reason"`
	Line   int    `json:"line,omitempty"` // 1-based line number when known
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed variant file at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed variant file: %s", e.Reason)
}

// NewFormatError creates a request-fatal file format error.
func NewFormatError(reason string) *FormatError {
	return &FormatError{Reason: reason}
}

// NoDrugsSpecifiedError indicates that the caller supplied an empty drug
// list. Fatal at request level; zero assessments are produced.
type NoDrugsSpecifiedError struct{}

// Error implements the error interface.
func (e *NoDrugsSpecifiedError) Error() string {
	return "no drugs specified: at least one drug name is required"
}

// UnsupportedGeneError indicates that a requested drug maps to a gene the
// system does not model (or maps to no gene at all). Fatal for that drug
// only; other drugs in the same request proceed.
type UnsupportedGeneError struct {
	Drug string `json:"drug,omitempty"`
	Gene string `json:"gene,omitempty"`
}

// Error implements the error interface.
func (e *UnsupportedGeneError) Error() string {
	if e.Drug != "" && e.Gene != "" {
		return fmt.Sprintf("drug %s maps to unsupported gene %s", e.Drug, e.Gene)
	}
	if e.Drug != "" {
		return fmt.Sprintf("no supported pharmacogene mapping for drug %s", e.Drug)
	}
	return fmt.Sprintf("unsupported gene %s", e.Gene)
}

// InferenceError indicates that model inference failed for one variant
// (malformed tensor shape or an internal numeric fault). Recovered locally by
// marking that variant unresolved; never fatal for the request.
type InferenceError struct {
	Reason string `json:"reason"`
	Key    string `json:"variant_key,omitempty"`
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("inference failed for %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("inference failed: %s", e.Reason)
}

// APIError is the standardized error body returned to HTTP clients.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeFormat          = "VCF_FORMAT_ERROR"
	ErrCodeNoDrugs         = "NO_DRUGS_SPECIFIED"
	ErrCodeUnsupportedGene = "UNSUPPORTED_GENE"
	ErrCodeInference       = "INFERENCE_ERROR"
	ErrCodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal        = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with a UTC timestamp.
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
