package store

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		}
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports a 23505 error from postgres
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// IsForeignKeyViolation reports a 23503 error from postgres
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// ErrNotFound is wrapped by every "x not found" error below
var ErrNotFound = errors.New("not found")

var (
	ErrCategoryNotFound = notFound("category not found")
	ErrProductNotFound  = notFound("product not found")
	ErrOrderNotFound    = notFound("order not found")
	ErrUserNotFound     = notFound("user not found")
	ErrAddressNotFound  = notFound("address not found")
	ErrFAQNotFound      = notFound("faq not found")

	ErrDuplicate = errors.New("already exists")
	ErrInUse     = errors.New("still referenced")
)

type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

func (e *notFoundError) Unwrap() error { return ErrNotFound }

// translate maps driver errors onto the store sentinels
func translate(err error, missing error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return missing
	case IsUniqueViolation(err):
		return ErrDuplicate
	case IsForeignKeyViolation(err):
		return ErrInUse
	}
	return err
}
