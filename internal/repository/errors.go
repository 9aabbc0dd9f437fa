package repository

import (
	"errors"
	"fmt"
)

// Kind classifies why a store operation failed.
type Kind int

const (
	// KindUnavailable covers failures not attributable to the supplied values.
	KindUnavailable Kind = iota
	// KindDuplicate means a uniqueness constraint rejected the row.
	KindDuplicate
	// KindRejected means the store refused the supplied values.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindDuplicate:
		return "duplicate"
	case KindRejected:
		return "rejected"
	default:
		return "unavailable"
	}
}

// StoreError is returned by every repository method that fails.
// Message carries the store's own wording.
type StoreError struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or KindUnavailable when err did
// not come from a repository.
func KindOf(err error) Kind {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Kind
	}
	return KindUnavailable
}

// MessageOf returns the store message carried by err.
func MessageOf(err error) string {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Message
	}
	return err.Error()
}
