package api

import "errors"

var (
	// ErrNetwork matches every failure to get a usable response out of the transport.
	ErrNetwork = errors.New("network error")
	// ErrParse matches responses that arrived but did not have the expected JSON shape.
	ErrParse = errors.New("unexpected response")
)

type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

type ParseError struct {
	What string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return "couldn't parse " + e.What
	}
	return "couldn't parse " + e.What + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func NewParseError(what string, err error) error {
	return &ParseError{What: what, Err: err}
}
