// Package errors provides coded errors for the ranking service and their
// translation into BPMN errors for the workflow engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigurationInvalid  ErrorCode = "CONFIGURATION_INVALID"
	ErrCodeConfigurationNotFound ErrorCode = "CONFIGURATION_NOT_FOUND"

	ErrCodeSupplierComputationFailed ErrorCode = "SUPPLIER_COMPUTATION_FAILED"
	ErrCodeGuardBlocked              ErrorCode = "GUARD_BLOCKED"
	ErrCodeRankingInconsistent       ErrorCode = "RANKING_INCONSISTENT"
	ErrCodeSnapshotCommitFailed      ErrorCode = "SNAPSHOT_COMMIT_FAILED"

	ErrCodeDataSourceFailed   ErrorCode = "DATA_SOURCE_FAILED"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeCacheFailed        ErrorCode = "CACHE_FAILED"
	ErrCodeIndexPublishFailed ErrorCode = "INDEX_PUBLISH_FAILED"
	ErrCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key to the error metadata and returns e.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewConfigurationInvalidError(cause error) *StandardError {
	return newError(ErrCodeConfigurationInvalid, "Ranking configuration is invalid", cause, false)
}

func NewConfigurationNotFoundError() *StandardError {
	return newError(ErrCodeConfigurationNotFound, "No active ranking configuration", nil, false)
}

// NewSupplierComputationError is recorded per supplier; it never aborts a run.
func NewSupplierComputationError(supplierID string, cause error) *StandardError {
	return newError(ErrCodeSupplierComputationFailed, "Score computation failed for supplier", cause, false).
		WithMetadata("supplierId", supplierID)
}

func NewGuardBlockedError(lastComputed time.Time) *StandardError {
	return newError(ErrCodeGuardBlocked, "Recent scores exist, run skipped", nil, false).
		WithMetadata("lastComputedAt", lastComputed.UTC().Format(time.RFC3339))
}

func NewRankingInconsistentError(regionID string, cause error) *StandardError {
	return newError(ErrCodeRankingInconsistent, "Current snapshot set changed before ranking", cause, false).
		WithMetadata("regionId", regionID)
}

func NewSnapshotCommitFailedError(cause error) *StandardError {
	return newError(ErrCodeSnapshotCommitFailed, "Snapshot batch commit failed", cause, true)
}

func NewDataSourceError(source string, cause error) *StandardError {
	return newError(ErrCodeDataSourceFailed, fmt.Sprintf("Data source '%s' failed", source), cause, true)
}

func NewInvalidInputError(details string) *StandardError {
	se := newError(ErrCodeInvalidInput, "Invalid job input", nil, false)
	se.Details = details
	return se
}

func NewCacheError(cause error) *StandardError {
	return newError(ErrCodeCacheFailed, "Ranking cache operation failed", cause, true)
}

func NewIndexPublishError(index string, cause error) *StandardError {
	return newError(ErrCodeIndexPublishFailed, fmt.Sprintf("Publishing to index '%s' failed", index), cause, true)
}

func NewResourceNotFoundError(resource, details string) *StandardError {
	se := newError(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource), nil, false)
	se.Details = details
	return se
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes caught
// by boundary events in the ranking process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfigurationInvalid:      "RANKING_CONFIGURATION_INVALID",
	ErrCodeConfigurationNotFound:     "RANKING_CONFIGURATION_INVALID",
	ErrCodeSupplierComputationFailed: "SUPPLIER_COMPUTATION_FAILED",
	ErrCodeGuardBlocked:              "GUARD_BLOCKED",
	ErrCodeRankingInconsistent:       "RANKING_INCONSISTENT",
	ErrCodeSnapshotCommitFailed:      "SNAPSHOT_COMMIT_FAILED",
	ErrCodeDataSourceFailed:          "DATA_SOURCE_FAILED",
	ErrCodeInvalidInput:              "INVALID_INPUT",
	ErrCodeCacheFailed:               "CACHE_FAILED",
	ErrCodeIndexPublishFailed:        "INDEX_PUBLISH_FAILED",
	ErrCodeResourceNotFound:          "RESOURCE_NOT_FOUND",
}

// GetRetryCount returns how many times the job should be retried for code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDataSourceFailed,
		ErrCodeSnapshotCommitFailed:
		return 3
	case ErrCodeCacheFailed,
		ErrCodeIndexPublishFailed:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard returns the StandardError in err's chain, if any.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsStandard(err)
	return ok && se.Code == code
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "SUPPLIER") ||
		strings.Contains(codeStr, "RANKING") ||
		strings.Contains(codeStr, "GUARD") ||
		strings.Contains(codeStr, "SNAPSHOT"):
		return "RANKING"
	case strings.Contains(codeStr, "SOURCE"):
		return "DATABASE"
	case strings.Contains(codeStr, "CACHE") || strings.Contains(codeStr, "INDEX"):
		return "DOWNSTREAM"
	case strings.Contains(codeStr, "INPUT") || strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// IsBPMNCode reports whether code is one the workers can throw to the
// workflow engine.
func IsBPMNCode(code string) bool {
	for _, bpmn := range BPMNErrorMapping {
		if bpmn == code {
			return true
		}
	}
	return ErrorCode(code) == ErrCodeInternal
}
