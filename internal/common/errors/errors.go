// Package errors provides the standardized error taxonomy shared by the
// dispatch pipeline and the surrounding CRUD services.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Error Kinds and Codes
// ==========================

// Kind classifies an error for transport mapping (HTTP status, logging).
type Kind string

const (
	KindAuthentication Kind = "AUTHENTICATION"
	KindNotFound       Kind = "NOT_FOUND"
	KindValidation     Kind = "VALIDATION"
	KindState          Kind = "STATE"
	KindInternal       Kind = "INTERNAL"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidAPIKey       ErrorCode = "INVALID_API_KEY"
	ErrCodeTemplateNotOwned    ErrorCode = "TEMPLATE_NOT_OWNED"
	ErrCodeTenantNotFound      ErrorCode = "TENANT_NOT_FOUND"
	ErrCodeTemplateNotFound    ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTagNotFound         ErrorCode = "TAG_NOT_FOUND"
	ErrCodeNotificationMissing ErrorCode = "NOTIFICATION_NOT_FOUND"

	ErrCodeTagValidationFailed ErrorCode = "TAG_VALIDATION_FAILED"
	ErrCodeInvalidRecipient    ErrorCode = "INVALID_RECIPIENT"
	ErrCodeDuplicateRecipient  ErrorCode = "DUPLICATE_RECIPIENT"
	ErrCodeNoRecipients        ErrorCode = "NO_RECIPIENTS"
	ErrCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrCodeDuplicateResource   ErrorCode = "DUPLICATE_RESOURCE"

	ErrCodeTenantInactive     ErrorCode = "TENANT_INACTIVE"
	ErrCodeTemplateInactive   ErrorCode = "TEMPLATE_INACTIVE"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeRetryNotPermitted  ErrorCode = "RETRY_NOT_PERMITTED"
	ErrCodeInvalidOperation   ErrorCode = "INVALID_OPERATION"
	ErrCodeDatabaseFailure    ErrorCode = "DATABASE_FAILURE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// AppError represents a structured application error.
type AppError struct {
	Code      ErrorCode `json:"code"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("AppError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidAPIKeyError creates an authentication error for an unknown API key.
func NewInvalidAPIKeyError() *AppError {
	return &AppError{
		Code:      ErrCodeInvalidAPIKey,
		Kind:      KindAuthentication,
		Message:   "Invalid API Key",
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotOwnedError creates an authentication error for cross-tenant template use.
func NewTemplateNotOwnedError(templateID int64) *AppError {
	return &AppError{
		Code:      ErrCodeTemplateNotOwned,
		Kind:      KindAuthentication,
		Message:   fmt.Sprintf("Template ID %d does not belong to this application", templateID),
		Timestamp: time.Now().UTC(),
	}
}

// NewTenantNotFoundError creates a not-found error for an absent tenant.
func NewTenantNotFoundError(tenantID int64) *AppError {
	return &AppError{
		Code:      ErrCodeTenantNotFound,
		Kind:      KindNotFound,
		Message:   fmt.Sprintf("Application not found with ID: %d", tenantID),
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a not-found error for an absent template.
func NewTemplateNotFoundError(templateID int64) *AppError {
	return &AppError{
		Code:      ErrCodeTemplateNotFound,
		Kind:      KindNotFound,
		Message:   fmt.Sprintf("Template not found with ID: %d", templateID),
		Timestamp: time.Now().UTC(),
	}
}

// NewTagNotFoundError creates a not-found error for an undeclared tag name.
func NewTagNotFoundError(tagName string) *AppError {
	return &AppError{
		Code:      ErrCodeTagNotFound,
		Kind:      KindNotFound,
		Message:   fmt.Sprintf("Tag '%s' not found in this template", tagName),
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationNotFoundError creates a not-found error for an absent delivery record.
func NewNotificationNotFoundError(notificationID int64) *AppError {
	return &AppError{
		Code:      ErrCodeNotificationMissing,
		Kind:      KindNotFound,
		Message:   fmt.Sprintf("Notification not found with ID: %d", notificationID),
		Timestamp: time.Now().UTC(),
	}
}

// NewTagValidationError creates a validation error for missing, mistyped or extra tags.
func NewTagValidationError(details string) *AppError {
	return &AppError{
		Code:      ErrCodeTagValidationFailed,
		Kind:      KindValidation,
		Message:   "Placeholder validation failed",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRecipientError creates a validation error for a malformed email address.
func NewInvalidRecipientError(email string) *AppError {
	return &AppError{
		Code:      ErrCodeInvalidRecipient,
		Kind:      KindValidation,
		Message:   fmt.Sprintf("Recipient '%s' is not a valid email address", email),
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateRecipientError creates a validation error for repeated addresses.
func NewDuplicateRecipientError() *AppError {
	return &AppError{
		Code:      ErrCodeDuplicateRecipient,
		Kind:      KindValidation,
		Message:   "Duplicate emails are not allowed in the request",
		Timestamp: time.Now().UTC(),
	}
}

// NewNoRecipientsError creates a validation error for an empty recipient list.
func NewNoRecipientsError() *AppError {
	return &AppError{
		Code:      ErrCodeNoRecipients,
		Kind:      KindValidation,
		Message:   "At least one recipient must be provided",
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a generic request validation error.
func NewInvalidRequestError(details string) *AppError {
	return &AppError{
		Code:      ErrCodeInvalidRequest,
		Kind:      KindValidation,
		Message:   "Invalid request",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateResourceError creates a validation error for unique-constraint conflicts.
func NewDuplicateResourceError(details string) *AppError {
	return &AppError{
		Code:      ErrCodeDuplicateResource,
		Kind:      KindValidation,
		Message:   "Resource already exists",
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewTenantInactiveError creates a state error for a non-ACTIVE or deleted tenant.
func NewTenantInactiveError(status string) *AppError {
	return &AppError{
		Code:      ErrCodeTenantInactive,
		Kind:      KindState,
		Message:   fmt.Sprintf("Application is %s or deleted, cannot send", status),
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateInactiveError creates a state error for a non-ACTIVE template.
func NewTemplateInactiveError(status string) *AppError {
	return &AppError{
		Code:      ErrCodeTemplateInactive,
		Kind:      KindState,
		Message:   fmt.Sprintf("Template is not active. Current status: %s", status),
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a state error for a disallowed status change.
func NewInvalidTransitionError(from, to string) *AppError {
	return &AppError{
		Code:      ErrCodeInvalidTransition,
		Kind:      KindState,
		Message:   fmt.Sprintf("Cannot transition from %s to %s", from, to),
		Timestamp: time.Now().UTC(),
	}
}

// NewRetryNotPermittedError creates a state error for retrying a non-FAILED record.
func NewRetryNotPermittedError() *AppError {
	return &AppError{
		Code:      ErrCodeRetryNotPermitted,
		Kind:      KindState,
		Message:   "Only FAILED notifications can be retried",
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidOperationError creates a state error for a disallowed operation.
func NewInvalidOperationError(message string) *AppError {
	return &AppError{
		Code:      ErrCodeInvalidOperation,
		Kind:      KindState,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseError wraps a persistence failure.
func NewDatabaseError(err error) *AppError {
	return &AppError{
		Code:      ErrCodeDatabaseFailure,
		Kind:      KindInternal,
		Message:   "Database operation failed",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Transport Mapping
// ==========================

// HTTPStatus maps an error kind to its HTTP status equivalent.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthentication:
		return 401
	case KindNotFound:
		return 404
	case KindValidation, KindState:
		return 400
	default:
		return 500
	}
}

// AsAppError normalizes any error into an *AppError.
func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return &AppError{
		Code:      ErrCodeInternal,
		Kind:      KindInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

// KindOf returns the kind of an error, KindInternal for non-AppErrors.
func KindOf(err error) Kind {
	return AsAppError(err).Kind
}
