package rig

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

type Code int

const (
	NoError Code = iota
	ErrFileNotFound
	ErrFormatNotRecognized
	ErrComponentLoad
)

func (c Code) String() string {
	switch c {
	case NoError:
		return "no error"
	case ErrFileNotFound:
		return "file not found"
	case ErrFormatNotRecognized:
		return "format not recognized"
	case ErrComponentLoad:
		return "component load failed"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// LoadError is returned by every loading step. Component is the descriptor
// record it failed on: rig, skeleton, mesh, weights or animation.
type LoadError struct {
	Code      Code
	Component string
	Path      string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%v: %s '%s': %v", e.Code, e.Component, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func CodeOf(err error) Code {
	if err == nil {
		return NoError
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrComponentLoad
}

func fileError(component, path string, err error) *LoadError {
	code := ErrComponentLoad
	if os.IsNotExist(err) {
		code = ErrFileNotFound
	}
	return &LoadError{Code: code, Component: component, Path: path, Err: err}
}
