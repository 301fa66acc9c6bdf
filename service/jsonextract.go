package service

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Shape is the top-level JSON container a task expects.
type Shape int

const (
	ShapeObject Shape = iota
	ShapeArray
)

func (s Shape) String() string {
	if s == ShapeArray {
		return "array"
	}
	return "object"
}

func (s Shape) delimiters() (byte, byte) {
	if s == ShapeArray {
		return '[', ']'
	}
	return '{', '}'
}

// ExtractJSON recovers a JSON value from free-form model output.
//
// It slices from the first opening delimiter to the last closing one and parses
// that span strictly. Replies containing several top-level values, or a brace in
// prose before the real payload, fail to parse rather than being repaired.
// Numbers decode as json.Number.
func ExtractJSON(raw string, shape Shape) (any, error) {
	open, closing := shape.delimiters()

	start := strings.IndexByte(raw, open)
	if start < 0 {
		return nil, &ParseError{Shape: shape, Reason: "no opening " + string(open) + " found"}
	}
	end := strings.LastIndexByte(raw, closing)
	if end < start {
		return nil, &ParseError{Shape: shape, Reason: "no closing " + string(closing) + " after the opening one"}
	}

	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Shape: shape, Reason: "invalid JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Shape: shape, Reason: "unexpected data after the JSON value"}
	}
	return v, nil
}
