package common

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError indicates invalid input data or an unmet channel precondition.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError indicates missing or invalid authentication.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// NewUnauthorizedError creates a new UnauthorizedError.
func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

// TemplateNotFoundError indicates no active template exists for a code.
type TemplateNotFoundError struct {
	Code string
}

func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("no active template found for code '%s'", e.Code)
}

// NewTemplateNotFoundError creates a new TemplateNotFoundError.
func NewTemplateNotFoundError(code string) *TemplateNotFoundError {
	return &TemplateNotFoundError{Code: code}
}

// TemplateRenderError indicates a template could not be rendered,
// typically because required variables are missing.
type TemplateRenderError struct {
	Message string
	Missing []string
}

func (e *TemplateRenderError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing required variables [%s]", e.Message, strings.Join(e.Missing, ", "))
	}
	return e.Message
}

// NewTemplateRenderError creates a new TemplateRenderError.
func NewTemplateRenderError(message string, missing []string) *TemplateRenderError {
	return &TemplateRenderError{Message: message, Missing: missing}
}

// ChannelNotSupportedError indicates no strategy is registered for a channel.
type ChannelNotSupportedError struct {
	Channel string
}

func (e *ChannelNotSupportedError) Error() string {
	return fmt.Sprintf("channel not supported: %s", e.Channel)
}

// NewChannelNotSupportedError creates a new ChannelNotSupportedError.
func NewChannelNotSupportedError(channel string) *ChannelNotSupportedError {
	return &ChannelNotSupportedError{Channel: channel}
}

// SendError indicates an external channel provider failure.
type SendError struct {
	Channel string
	Message string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s send failed: %s", e.Channel, e.Message)
}

// NewSendError creates a new SendError.
func NewSendError(channel, message string) *SendError {
	return &SendError{Channel: channel, Message: message}
}

// PersistenceError indicates the store was unavailable or rejected an operation.
// The dispatch engine surfaces these immediately without retrying.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
