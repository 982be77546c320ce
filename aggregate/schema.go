package aggregate

import (
	"bytes"
	"errors"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrValidationFailed is the sentinel wrapped by every ValidationError, so
// callers can branch with errors.Is without inspecting the details.
var ErrValidationFailed = errors.New("event payload failed schema validation")

// ErrInvalidSchemaJSON is returned when a payload schema cannot be compiled.
var ErrInvalidSchemaJSON = errors.New("payload schema json is not valid")

const schemaResourceURL = "mem://payload-schema.json"

// ValidationError reports an event payload that failed schema validation.
// No storage writes occur when it is returned.
type ValidationError struct {
	Detail string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), e.Detail)
}

// Unwrap makes errors.Is(err, ErrValidationFailed) work.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// PayloadSchema validates event payloads against a compiled JSON schema.
//
// Each aggregate registers one schema covering all of its event payloads as a
// discriminated union: a oneOf over the known payload shapes, each pinned by a
// const "type" discriminant. The schema is compiled once at construction and
// is safe for concurrent use.
type PayloadSchema struct {
	compiled *jsonschema.Schema
}

// CompilePayloadSchema compiles the given JSON schema document.
// Returns an error if the document is not valid JSON or not a valid schema.
func CompilePayloadSchema(schemaJSON []byte) (*PayloadSchema, error) {
	doc, unmarshalErr := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if unmarshalErr != nil {
		return nil, errors.Join(ErrInvalidSchemaJSON, unmarshalErr)
	}

	compiler := jsonschema.NewCompiler()

	if addErr := compiler.AddResource(schemaResourceURL, doc); addErr != nil {
		return nil, errors.Join(ErrInvalidSchemaJSON, addErr)
	}

	compiled, compileErr := compiler.Compile(schemaResourceURL)
	if compileErr != nil {
		return nil, errors.Join(ErrInvalidSchemaJSON, compileErr)
	}

	return &PayloadSchema{compiled: compiled}, nil
}

// MustCompilePayloadSchema is like CompilePayloadSchema but panics on error.
// Intended for package-level schema constants that are covered by tests.
func MustCompilePayloadSchema(schemaJSON []byte) *PayloadSchema {
	schema, err := CompilePayloadSchema(schemaJSON)
	if err != nil {
		panic(err)
	}

	return schema
}

// Validate checks the given payload against the compiled schema.
// Returns a *ValidationError (wrapping ErrValidationFailed) on violation.
func (s *PayloadSchema) Validate(payloadJSON []byte) error {
	instance, unmarshalErr := jsonschema.UnmarshalJSON(bytes.NewReader(payloadJSON))
	if unmarshalErr != nil {
		return &ValidationError{Detail: ErrInvalidPayloadJSON.Error()}
	}

	if validateErr := s.compiled.Validate(instance); validateErr != nil {
		return &ValidationError{Detail: validateErr.Error()}
	}

	return nil
}
