// Package apperr holds the sentinel errors shared across Scribe packages.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrOutOfRange      = errors.New("index out of range")
)
