package domain

import (
	"errors"
	"fmt"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTemporary       = errors.New("temporary failure")
	ErrPermanent       = errors.New("permanent failure")
	// ErrConsistency marks a fingerprint resolving to more than one
	// article ID. It is never retried; ingestion halts on it.
	ErrConsistency = errors.New("consistency violation")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
