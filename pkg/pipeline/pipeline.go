// Package pipeline declares the observer pipeline contract that DataMount
// and DescribeMount invoke on every write, delete and soft-delete. The
// pipeline's own business logic (validation rules, schema checks, ACL
// policy) is an external collaborator — this package only fixes the
// interface and the stable error codes spec §7.2 requires.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
)

// Code is one of the five stable pipeline error codes.
type Code string

const (
	// ValidationError indicates the proposed value failed field validation.
	ValidationError Code = "VALIDATION_ERROR"
	// SchemaError indicates the write violates the model's declared schema.
	SchemaError Code = "SCHEMA_ERROR"
	// SoftDeleteProtection indicates the record is protected from soft deletion.
	SoftDeleteProtection Code = "SOFT_DELETE_PROTECTION"
	// HardDeleteProtection indicates the record is protected from hard deletion.
	HardDeleteProtection Code = "HARD_DELETE_PROTECTION"
	// InsufficientPermissions indicates the caller's identity/ACL does not permit the operation.
	InsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
)

// defaultHTTPStatus maps a pipeline code to its HTTP status per spec §7.2.
var defaultHTTPStatus = map[Code]int{
	ValidationError:          400,
	SchemaError:              400,
	SoftDeleteProtection:     405,
	HardDeleteProtection:     405,
	InsufficientPermissions:  403,
}

// HTTPStatus returns the HTTP status a pipeline code maps to.
func HTTPStatus(c Code) int {
	if s, ok := defaultHTTPStatus[c]; ok {
		return s
	}
	return 400
}

// Error is a structured pipeline rejection.
type Error struct {
	Code    Code   `json:"code"`
	Model   string `json:"model,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Model, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Model, e.Message)
}

// JSON renders the error body.
func (e *Error) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// New constructs a pipeline error.
func New(code Code, model, field, message string) *Error {
	return &Error{Code: code, Model: model, Field: field, Message: message}
}

// Mutation is the payload DataMount/DescribeMount hand to the pipeline for
// a single-column write: the record id and the one field being changed,
// already parsed out of its wire representation.
type Mutation struct {
	Model string
	ID    string
	Field string
	Value interface{}
}

// Deletion describes a soft or hard delete request routed through the
// pipeline.
type Deletion struct {
	Model string
	ID    string
	Hard  bool
}

// Pipeline is the external observer/validation chain. Implementations may
// reject a Write or Delete by returning a *Error; any other error is
// treated as an unexpected backend failure and surfaces as EIO.
type Pipeline interface {
	// Write validates a single-column mutation, returning a *Error to
	// reject it; it returns no value.
	Write(ctx context.Context, m Mutation) error
	// Delete validates and applies a soft or hard delete.
	Delete(ctx context.Context, d Deletion) error
}

// NopPipeline accepts every mutation unconditionally. Used by tests and by
// callers that have no external validation chain configured.
type NopPipeline struct{}

func (NopPipeline) Write(ctx context.Context, m Mutation) error   { return nil }
func (NopPipeline) Delete(ctx context.Context, d Deletion) error { return nil }
