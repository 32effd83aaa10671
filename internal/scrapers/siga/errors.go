package siga

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is returned when the portal rejects the credentials,
// its message is shown to end users as is.
var ErrInvalidCredentials = errors.New("Usuário ou senha inválidos.")

// ErrMissingCredentials is returned when the user or password is empty.
var ErrMissingCredentials = errors.New("Usuário não autorizado.")

// TransportError is a navigation or element wait failure: the portal is
// unreachable or its markup changed beyond recognition.
type TransportError struct {
	Op  string
	Url string
	Err error
}

func (e *TransportError) Error() string {
	if e.Url == "" {
		return fmt.Sprintf("siga: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("siga: %s %s: %v", e.Op, e.Url, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExtractionError is raised when an element an extractor expects is absent
// or a positional assumption (cell or line count) does not hold.
type ExtractionError struct {
	Component string
	Reason    string
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("siga: extract %s: %s", e.Component, e.Reason)
	}
	return fmt.Sprintf("siga: extract %s: %s: %v", e.Component, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func transportError(op, url string, err error) error {
	return &TransportError{Op: op, Url: url, Err: err}
}

func extractionError(component string, err error, format string, args ...any) error {
	return &ExtractionError{
		Component: component,
		Reason:    fmt.Sprintf(format, args...),
		Err:       err,
	}
}
