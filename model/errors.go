package model

import (
	"errors"
	"fmt"
)

// Code classifies engine errors so that a boundary layer can map them to precise responses.
type Code string

const (
	CodeValidation          Code = "VALIDATION"
	CodeDuplicateSubmission Code = "DUPLICATE_SUBMISSION"
	CodeUnknownEntityType   Code = "UNKNOWN_ENTITY_TYPE"
	CodeNoWorkflowDefined   Code = "NO_WORKFLOW_DEFINED"
	CodeTaskNotPending      Code = "TASK_NOT_PENDING"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeNotAuthorized       Code = "NOT_AUTHORIZED"
	CodeEntityNotFound      Code = "ENTITY_NOT_FOUND"
	CodeInstanceNotFound    Code = "INSTANCE_NOT_FOUND"
	CodeTaskNotFound        Code = "TASK_NOT_FOUND"
	CodeInvalidAction       Code = "INVALID_ACTION"
	CodeAssigneeUnresolved  Code = "ASSIGNEE_UNRESOLVED"
	CodeDefinitionConflict  Code = "DEFINITION_CONFLICT"
	CodeInvalidDefinition   Code = "INVALID_DEFINITION"
)

// Sentinels for errors.Is; any *Error with the same code matches.
var (
	ErrValidation          = &Error{Code: CodeValidation}
	ErrDuplicateSubmission = &Error{Code: CodeDuplicateSubmission}
	ErrUnknownEntityType   = &Error{Code: CodeUnknownEntityType}
	ErrNoWorkflowDefined   = &Error{Code: CodeNoWorkflowDefined}
	ErrTaskNotPending      = &Error{Code: CodeTaskNotPending}
	ErrInvalidState        = &Error{Code: CodeInvalidState}
	ErrNotAuthorized       = &Error{Code: CodeNotAuthorized}
	ErrEntityNotFound      = &Error{Code: CodeEntityNotFound}
	ErrInstanceNotFound    = &Error{Code: CodeInstanceNotFound}
	ErrTaskNotFound        = &Error{Code: CodeTaskNotFound}
	ErrInvalidAction       = &Error{Code: CodeInvalidAction}
	ErrAssigneeUnresolved  = &Error{Code: CodeAssigneeUnresolved}
	ErrDefinitionConflict  = &Error{Code: CodeDefinitionConflict}
	ErrInvalidDefinition   = &Error{Code: CodeInvalidDefinition}
)

// Error is a typed engine error.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// NewError creates an error with a formatted message.
func NewError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an error carrying an underlying cause.
func WrapError(code Code, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	} else {
		msg = string(e.Code) + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on code so that callers can use the package sentinels with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the code of the first *Error in err's chain, or "" when none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConfiguration reports whether err signals an operator-actionable configuration problem.
func IsConfiguration(err error) bool {
	switch CodeOf(err) {
	case CodeUnknownEntityType, CodeNoWorkflowDefined, CodeAssigneeUnresolved, CodeInvalidDefinition:
		return true
	}
	return false
}
