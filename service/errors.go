package service

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionBusy       = errors.New("another request is already running for this session")
	ErrFeatureDisabled   = errors.New("feature is disabled")
	ErrNoDocument        = errors.New("no document has been uploaded")
	ErrNoExtractableText = errors.New("no extractable text found in the document; it may be a scanned image that needs OCR")
	ErrNotLegalDocument  = errors.New("the uploaded document does not appear to be a legal document")
	ErrEmptyMessage      = errors.New("message is empty")
)

// InputError blocks an operation before any completion is attempted.
type InputError struct {
	Reason error
	Detail string
}

func (e *InputError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v: %s", e.Reason, e.Detail)
	}
	return e.Reason.Error()
}

func (e *InputError) Unwrap() error {
	return e.Reason
}

func inputError(reason error, detail string) *InputError {
	return &InputError{Reason: reason, Detail: detail}
}

// ParseError means no JSON value of the expected kind could be recovered from a reply.
type ParseError struct {
	Shape  Shape
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s from model reply: %s: %v", e.Shape, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to parse %s from model reply: %s", e.Shape, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShapeError means the parsed value cannot be coerced into even a minimal result.
type ShapeError struct {
	Task Task
	Want string
	Got  string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s reply has wrong shape: want %s, got %s", e.Task, e.Want, e.Got)
}
